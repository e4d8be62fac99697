// Package geodist builds origin-destination distance matrices from point
// coordinates.
package geodist

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/mat"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0088

// Metric selects how the distance between two points is measured.
type Metric int

const (
	// Haversine is the great-circle distance in kilometers. Points are
	// (longitude, latitude) in degrees.
	Haversine Metric = iota
	// Euclidean is the planar distance in coordinate units.
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case Haversine:
		return "haversine"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseMetric maps a metric name to a Metric.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "haversine", "greatcircle":
		return Haversine, nil
	case "euclidean", "planar":
		return Euclidean, nil
	default:
		return 0, eris.Errorf("geodist: unknown metric %q", name)
	}
}

// NewPoint returns an XY point with SRID 4326.
func NewPoint(lng, lat float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
}

// Distance measures the distance between two points.
func (m Metric) Distance(a, b *geom.Point) float64 {
	switch m {
	case Euclidean:
		return math.Hypot(b.X()-a.X(), b.Y()-a.Y())
	default:
		return haversine(a.X(), a.Y(), b.X(), b.Y())
	}
}

// Matrix returns the len(origins) x len(destinations) distance matrix.
func Matrix(origins, destinations []*geom.Point, metric Metric) (*mat.Dense, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, eris.New("geodist: origins and destinations must be non-empty")
	}
	if err := checkPoints("origin", origins, metric); err != nil {
		return nil, err
	}
	if err := checkPoints("destination", destinations, metric); err != nil {
		return nil, err
	}

	d := mat.NewDense(len(origins), len(destinations), nil)
	for i, o := range origins {
		for j, dst := range destinations {
			d.Set(i, j, metric.Distance(o, dst))
		}
	}
	return d, nil
}

func checkPoints(kind string, pts []*geom.Point, metric Metric) error {
	for i, p := range pts {
		if p == nil || p.Layout() != geom.XY {
			return eris.Errorf("geodist: %s %d must be a non-nil XY point", kind, i)
		}
		x, y := p.X(), p.Y()
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return eris.Errorf("geodist: %s %d has non-finite coordinates", kind, i)
		}
		if metric == Haversine && (math.Abs(y) > 90 || math.Abs(x) > 180) {
			return eris.Errorf("geodist: %s %d (%g, %g) is not a valid lng/lat", kind, i, x, y)
		}
	}
	return nil
}

func haversine(lng1, lat1, lng2, lat2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}
