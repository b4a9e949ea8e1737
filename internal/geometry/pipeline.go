// Package geometry computes parcel measurements in a planar state-plane
// projection. Lengths and areas are never taken in geographic degrees.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// SquareFeetPerAcre converts planar square feet to acres.
const SquareFeetPerAcre = 43560.0

// ErrNoGeometry is returned for features without a geometry.
var ErrNoGeometry = eris.New("geometry: feature has no geometry")

// Metrics are a parcel's planar measurements. Values are full precision;
// use Rounded for display.
type Metrics struct {
	PerimeterFt float64
	AreaSqFt    float64
	AreaAcres   float64
	// Centroid is in geographic coordinates: [0]=lon, [1]=lat.
	Centroid geom.Coord
}

// Rounded returns a copy with perimeter and areas rounded to two decimals.
// The centroid is left untouched.
func (m Metrics) Rounded() Metrics {
	out := m
	out.PerimeterFt = Round2(m.PerimeterFt)
	out.AreaSqFt = Round2(m.AreaSqFt)
	out.AreaAcres = Round2(m.AreaAcres)
	return out
}

// Lat returns the centroid latitude.
func (m Metrics) Lat() float64 { return coordAt(m.Centroid, 1) }

// Lon returns the centroid longitude.
func (m Metrics) Lon() float64 { return coordAt(m.Centroid, 0) }

func coordAt(c geom.Coord, i int) float64 {
	if len(c) <= i {
		return 0
	}
	return c[i]
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Pipeline reprojects geographic parcel geometry and measures it.
type Pipeline struct {
	proj Projection
}

// NewPipeline creates a pipeline that measures in proj.
func NewPipeline(proj Projection) *Pipeline {
	return &Pipeline{proj: proj}
}

// Projection returns the planar projection used for measurement.
func (p *Pipeline) Projection() Projection { return p.proj }

type measurable interface {
	Area() float64
	Length() float64
}

// Compute measures a Polygon or MultiPolygon given in lon/lat degrees.
// Perimeter is the length of every ring, holes included; area subtracts
// holes. For a MultiPolygon both are summed over the parts.
func (p *Pipeline) Compute(g geom.T) (Metrics, error) {
	if g == nil {
		return Metrics{}, ErrNoGeometry
	}

	projected, err := p.Reproject(g)
	if err != nil {
		return Metrics{}, err
	}
	if len(projected.FlatCoords()) == 0 {
		return Metrics{}, eris.Wrap(ErrNoGeometry, "geometry: empty geometry")
	}

	meas, ok := projected.(measurable)
	if !ok {
		return Metrics{}, eris.Errorf("geometry: unsupported geometry %T", g)
	}

	centroid, err := xy.Centroid(g)
	if err != nil {
		return Metrics{}, eris.Wrap(err, "geometry: centroid")
	}

	area := meas.Area()
	return Metrics{
		PerimeterFt: meas.Length(),
		AreaSqFt:    area,
		AreaAcres:   area / SquareFeetPerAcre,
		Centroid:    centroid,
	}, nil
}

// Reproject returns a copy of g with every coordinate projected to the
// pipeline's planar grid. Only Polygon and MultiPolygon are supported.
func (p *Pipeline) Reproject(g geom.T) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), p.projectFlat(t.FlatCoords(), t.Stride()), t.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(t.Layout(), p.projectFlat(t.FlatCoords(), t.Stride()), t.Endss()), nil
	case nil:
		return nil, ErrNoGeometry
	default:
		return nil, eris.Errorf("geometry: unsupported geometry %T", g)
	}
}

func (p *Pipeline) projectFlat(flat []float64, stride int) []float64 {
	out := make([]float64, len(flat))
	copy(out, flat)
	for i := 0; i+1 < len(out); i += stride {
		out[i], out[i+1] = p.proj.Forward(out[i], out[i+1])
	}
	return out
}

// ExteriorRings returns the outer ring of each polygon part in the input's
// own coordinates. Holes are dropped.
func ExteriorRings(g geom.T) ([][]geom.Coord, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil, eris.New("geometry: polygon has no rings")
		}
		return [][]geom.Coord{t.LinearRing(0).Coords()}, nil
	case *geom.MultiPolygon:
		rings := make([][]geom.Coord, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			poly := t.Polygon(i)
			if poly.NumLinearRings() == 0 {
				continue
			}
			rings = append(rings, poly.LinearRing(0).Coords())
		}
		if len(rings) == 0 {
			return nil, eris.New("geometry: multipolygon has no rings")
		}
		return rings, nil
	case nil:
		return nil, ErrNoGeometry
	default:
		return nil, eris.Errorf("geometry: unsupported geometry %T", g)
	}
}
