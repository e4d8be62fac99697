package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/scenario"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute E2SFCA accessibility scores for a scenario",
	Long: `Score every population location in a scenario with the enhanced two-step
floating catchment area method.

Step 1 weighs population within each facility's catchment by the distance
tiers and divides capacity by that weighted demand. Step 2 sums the
weighted ratios reachable from each location.

Examples:
  # Score with the configured weight tiers
  score --scenario clinics.yaml

  # Show facility demand and supply ratios
  score --scenario clinics.yaml --level facility

  # Export location scores to CSV
  score --scenario clinics.yaml --format csv --output access.csv`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("scenario", "", "scenario YAML file")
	f.String("level", "location", "rows to report: location or facility")
	f.Bool("colocated", false, "weight zero-distance pairs with the first tier (overrides config)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")
	_ = scoreCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(scoreCmd)
}

// locationRow is one population location in score output.
type locationRow struct {
	ID            string
	Population    float64
	Accessibility float64
}

// facilityRow is one facility in score output.
type facilityRow struct {
	ID       string
	Capacity float64
	Demand   float64
	Ratio    float64
}

func runScore(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("level")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	if err := checkFormat(format); err != nil {
		return eris.Wrap(err, "score")
	}
	if level != "location" && level != "facility" {
		return eris.Errorf("score: --level must be location or facility (got %q)", level)
	}

	log := zap.L().With(zap.String("command", "score"))

	sc, setup, err := loadScenario(cmd)
	if err != nil {
		return eris.Wrap(err, "score")
	}

	res, err := setup.evaluate(sc.Supply(), sc.Population())
	if err != nil {
		return eris.Wrap(err, "score: evaluate")
	}

	sum := summarize(res.Accessibility)
	log.Info("scoring complete",
		zap.String("scenario", sc.Name),
		zap.Int("locations", len(sc.Populations)),
		zap.Int("facilities", len(sc.Facilities)),
		zap.Float64("catchment", setup.tiers.CatchmentRadius()),
		zap.Float64("min_access", sum.Min),
		zap.Float64("mean_access", sum.Mean),
	)

	w, closeOut, err := openOutput(outputPath)
	if err != nil {
		return eris.Wrap(err, "score")
	}
	defer closeOut()

	if level == "facility" {
		rows := facilityRows(sc, res)
		if format == "csv" {
			return writeFacilityCSV(w, rows)
		}
		return writeFacilityTable(w, rows)
	}

	rows := locationRows(sc, res)
	if format == "csv" {
		if err := writeLocationCSV(w, rows); err != nil {
			return err
		}
	} else if err := writeLocationTable(w, rows); err != nil {
		return err
	}
	printAccessSummary(os.Stderr, sum)
	return nil
}

func locationRows(sc *scenario.Scenario, res *fca.Result) []locationRow {
	rows := make([]locationRow, len(sc.Populations))
	for i, p := range sc.Populations {
		rows[i] = locationRow{ID: p.ID, Population: p.Population, Accessibility: res.Accessibility[i]}
	}
	return rows
}

func facilityRows(sc *scenario.Scenario, res *fca.Result) []facilityRow {
	rows := make([]facilityRow, len(sc.Facilities))
	for j, f := range sc.Facilities {
		rows[j] = facilityRow{ID: f.ID, Capacity: f.Capacity, Demand: res.Demand[j], Ratio: res.Ratios[j]}
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func writeLocationCSV(w io.Writer, rows []locationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "population", "accessibility"}); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ID, formatFloat(r.Population), formatFloat(r.Accessibility)}); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "score: flush CSV")
	}
	return nil
}

func writeFacilityCSV(w io.Writer, rows []facilityRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "capacity", "demand", "ratio"}); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for _, r := range rows {
		row := []string{r.ID, formatFloat(r.Capacity), formatFloat(r.Demand), formatFloat(r.Ratio)}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "score: flush CSV")
	}
	return nil
}

func writeLocationTable(w io.Writer, rows []locationRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LOCATION\tPOPULATION\tACCESSIBILITY")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%.0f\t%.6f\n", r.ID, r.Population, r.Accessibility)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "score: write table")
	}
	return nil
}

func writeFacilityTable(w io.Writer, rows []facilityRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FACILITY\tCAPACITY\tDEMAND\tRATIO")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.6f\n", r.ID, r.Capacity, r.Demand, r.Ratio)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "score: write table")
	}
	return nil
}

func printAccessSummary(w io.Writer, s accessSummary) {
	_, _ = fmt.Fprintf(w, "\n--- Summary ---\n")
	_, _ = fmt.Fprintf(w, "Min accessibility:  %.6f\n", s.Min)
	_, _ = fmt.Fprintf(w, "Mean accessibility: %.6f\n", s.Mean)
	_, _ = fmt.Fprintf(w, "Max accessibility:  %.6f\n", s.Max)
}
