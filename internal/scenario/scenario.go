// Package scenario loads study-area definitions (population locations,
// facilities and optional travel costs) from YAML.
package scenario

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/geodist"
)

// Scenario is one study area.
type Scenario struct {
	Name        string       `yaml:"name"`
	Metric      string       `yaml:"metric"` // "haversine" (default) or "euclidean"
	Populations []Population `yaml:"populations"`
	Facilities  []Facility   `yaml:"facilities"`
	// Distances, when present, is the n x m travel cost matrix and takes
	// precedence over coordinates.
	Distances [][]float64 `yaml:"distances,omitempty"`
	Tiers     fca.Tiers   `yaml:"tiers,omitempty"`
}

// Population is a demand location.
type Population struct {
	ID         string  `yaml:"id"`
	Lng        float64 `yaml:"lng"`
	Lat        float64 `yaml:"lat"`
	Population float64 `yaml:"population"`
}

// Facility is a supply location.
type Facility struct {
	ID       string  `yaml:"id"`
	Lng      float64 `yaml:"lng"`
	Lat      float64 `yaml:"lat"`
	Capacity float64 `yaml:"capacity"`
}

// Load reads a scenario from a YAML file with a top-level "scenario" key.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var wrapper struct {
		Scenario Scenario `yaml:"scenario"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "scenario: parse")
	}

	s := &wrapper.Scenario
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the scenario for structural problems. Numeric ranges are
// checked again when the model is built.
func (s *Scenario) Validate() error {
	if len(s.Populations) == 0 {
		return eris.New("scenario: at least one population location is required")
	}
	if len(s.Facilities) == 0 {
		return eris.New("scenario: at least one facility is required")
	}
	if _, err := geodist.ParseMetric(s.Metric); err != nil {
		return eris.Wrap(err, "scenario: metric")
	}
	if s.Distances != nil {
		if len(s.Distances) != len(s.Populations) {
			return eris.Wrapf(fca.ErrShapeMismatch, "scenario: distances has %d rows, want %d",
				len(s.Distances), len(s.Populations))
		}
		for i, row := range s.Distances {
			if len(row) != len(s.Facilities) {
				return eris.Wrapf(fca.ErrShapeMismatch, "scenario: distances row %d has %d columns, want %d",
					i, len(row), len(s.Facilities))
			}
		}
	}
	if len(s.Tiers) > 0 {
		if err := s.Tiers.Validate(); err != nil {
			return eris.Wrap(err, "scenario: tiers")
		}
	}
	return nil
}

// Supply returns facility capacities in file order.
func (s *Scenario) Supply() []float64 {
	out := make([]float64, len(s.Facilities))
	for j, f := range s.Facilities {
		out[j] = f.Capacity
	}
	return out
}

// Population returns population counts in file order.
func (s *Scenario) Population() []float64 {
	out := make([]float64, len(s.Populations))
	for i, p := range s.Populations {
		out[i] = p.Population
	}
	return out
}

// DistanceMatrix returns the explicit distances if present, otherwise the
// distances between coordinates under the scenario metric.
func (s *Scenario) DistanceMatrix() (*mat.Dense, error) {
	if s.Distances != nil {
		d := mat.NewDense(len(s.Populations), len(s.Facilities), nil)
		for i, row := range s.Distances {
			d.SetRow(i, row)
		}
		return d, nil
	}

	metric, err := geodist.ParseMetric(s.Metric)
	if err != nil {
		return nil, eris.Wrap(err, "scenario: metric")
	}
	origins := make([]*geom.Point, len(s.Populations))
	for i, p := range s.Populations {
		origins[i] = geodist.NewPoint(p.Lng, p.Lat)
	}
	destinations := make([]*geom.Point, len(s.Facilities))
	for j, f := range s.Facilities {
		destinations[j] = geodist.NewPoint(f.Lng, f.Lat)
	}

	d, err := geodist.Matrix(origins, destinations, metric)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: %s distances", s.Name)
	}
	return d, nil
}

// WeightTiers returns the scenario tiers, or fallback when none are set.
func (s *Scenario) WeightTiers(fallback fca.Tiers) fca.Tiers {
	if len(s.Tiers) > 0 {
		return s.Tiers
	}
	return fallback
}
