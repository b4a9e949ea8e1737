package geometry

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func newSouthCentral(t *testing.T) *Pipeline {
	t.Helper()
	p, err := ProjectionByCode("EPSG:2278")
	require.NoError(t, err)
	return NewPipeline(p)
}

// squareRing builds a closed lon/lat ring whose projected shape is an
// axis-aligned square with the given origin and side length in feet.
func squareRing(p Projection, x0, y0, side float64) []geom.Coord {
	corners := [][2]float64{
		{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0},
	}
	ring := make([]geom.Coord, 0, len(corners))
	for _, c := range corners {
		lon, lat := p.Inverse(c[0], c[1])
		ring = append(ring, geom.Coord{lon, lat})
	}
	return ring
}

func TestCompute_Square(t *testing.T) {
	pl := newSouthCentral(t)
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		squareRing(pl.Projection(), 3120000, 13840000, 100),
	})

	m, err := pl.Compute(poly)
	require.NoError(t, err)

	r := m.Rounded()
	assert.InDelta(t, 400.0, r.PerimeterFt, 0.05)
	assert.InDelta(t, 10000.0, r.AreaSqFt, 0.05)
	assert.Equal(t, 0.23, r.AreaAcres)

	x, y := pl.Projection().Forward(m.Lon(), m.Lat())
	assert.InDelta(t, 3120050, x, 0.1)
	assert.InDelta(t, 13840050, y, 0.1)
}

func TestCompute_HoleSubtractsArea(t *testing.T) {
	pl := newSouthCentral(t)
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		squareRing(pl.Projection(), 3120000, 13840000, 100),
		squareRing(pl.Projection(), 3120025, 13840025, 50),
	})

	m, err := pl.Compute(poly)
	require.NoError(t, err)

	r := m.Rounded()
	assert.InDelta(t, 7500.0, r.AreaSqFt, 0.05)
	assert.InDelta(t, 600.0, r.PerimeterFt, 0.05)
}

func TestCompute_MultiPolygonSums(t *testing.T) {
	pl := newSouthCentral(t)
	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{squareRing(pl.Projection(), 3120000, 13840000, 100)},
		{squareRing(pl.Projection(), 3121000, 13840000, 200)},
	})

	m, err := pl.Compute(mp)
	require.NoError(t, err)

	r := m.Rounded()
	assert.InDelta(t, 50000.0, r.AreaSqFt, 0.05)
	assert.InDelta(t, 1200.0, r.PerimeterFt, 0.05)
	assert.Equal(t, 1.15, r.AreaAcres)
}

func TestCompute_Idempotent(t *testing.T) {
	pl := newSouthCentral(t)
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		squareRing(pl.Projection(), 3100000, 13800000, 330),
	})

	first, err := pl.Compute(poly)
	require.NoError(t, err)
	second, err := pl.Compute(poly)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_Errors(t *testing.T) {
	pl := newSouthCentral(t)

	_, err := pl.Compute(nil)
	assert.ErrorIs(t, err, ErrNoGeometry)

	_, err = pl.Compute(geom.NewPointFlat(geom.XY, []float64{-95.7, 29.5}))
	assert.Error(t, err)

	_, err = pl.Compute(geom.NewPolygon(geom.XY))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoGeometry), "empty polygon degrades like a null geometry")

	_, err = pl.Compute(geom.NewMultiPolygon(geom.XY))
	assert.True(t, eris.Is(err, ErrNoGeometry))
}

func TestReproject_LeavesInputUntouched(t *testing.T) {
	pl := newSouthCentral(t)
	ring := squareRing(pl.Projection(), 3120000, 13840000, 100)
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
	before := append([]float64(nil), poly.FlatCoords()...)

	out, err := pl.Reproject(poly)
	require.NoError(t, err)
	assert.Equal(t, before, poly.FlatCoords())
	assert.InDelta(t, 3120000, out.FlatCoords()[0], 1e-6)
}

func TestExteriorRings(t *testing.T) {
	pl := newSouthCentral(t)
	outer := squareRing(pl.Projection(), 3120000, 13840000, 100)
	hole := squareRing(pl.Projection(), 3120025, 13840025, 50)

	rings, err := ExteriorRings(geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{outer, hole}))
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 5)

	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{outer}, {hole}})
	rings, err = ExteriorRings(mp)
	require.NoError(t, err)
	assert.Len(t, rings, 2)

	_, err = ExteriorRings(nil)
	assert.ErrorIs(t, err, ErrNoGeometry)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.2351))
	assert.Equal(t, 0.0, Round2(0.004))
}
