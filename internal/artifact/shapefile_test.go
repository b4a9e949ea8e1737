package artifact

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// unzipTo extracts the archive into a temp dir and returns the member names.
func unzipTo(t *testing.T, data []byte) (string, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	dir := t.TempDir()
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name), body, 0o600))
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return dir, names
}

func TestRenderShapefile(t *testing.T) {
	data, err := RenderShapefile(sampleRecord(), ccwSquare())
	require.NoError(t, err)

	dir, names := unzipTo(t, data)
	assert.Equal(t, []string{"parcel.dbf", "parcel.prj", "parcel.shp", "parcel.shx"}, names)

	prj, err := os.ReadFile(filepath.Join(dir, "parcel.prj"))
	require.NoError(t, err)
	assert.Contains(t, string(prj), "WGS_1984")

	reader, err := shp.Open(filepath.Join(dir, "parcel.shp"))
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	assert.Equal(t, shp.POLYGON, reader.GeometryType)

	fields := map[string]int{}
	for i, f := range reader.Fields() {
		fields[strings.TrimRight(f.String(), "\x00")] = i
	}

	require.True(t, reader.Next())
	_, shape := reader.Shape()
	poly, ok := shape.(*shp.Polygon)
	require.True(t, ok)
	require.Len(t, poly.Points, 5)

	// Input was counter-clockwise, so the written ring runs the other way.
	assert.Equal(t, shp.Point{X: -95.6300, Y: 29.6000}, poly.Points[0])
	assert.Equal(t, shp.Point{X: -95.6300, Y: 29.6010}, poly.Points[1])

	attr := func(name string) string {
		idx, ok := fields[name]
		require.True(t, ok, name)
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}
	assert.Equal(t, "DOE JOHN & JANE", attr("OWNER"))
	assert.Equal(t, "R123456", attr("GEO_ID"))
	assert.Equal(t, "LOT 7", attr("LOT_RES"))
	assert.Equal(t, "0.23", attr("ACRES"))

	assert.False(t, reader.Next())
}

func TestRenderShapefile_ClipsLongStrings(t *testing.T) {
	rec := sampleRecord()
	rec.LegalDescription = strings.Repeat("X", 400)

	_, err := RenderShapefile(rec, ccwSquare())
	assert.NoError(t, err)
}

func TestClip_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", clip("short"))

	ascii := strings.Repeat("X", 400)
	assert.Len(t, clip(ascii), maxDBFString)

	// 253 ASCII bytes then a two-byte rune straddling the limit.
	s := strings.Repeat("X", maxDBFString-1) + "ÑAPO"
	got := clip(s)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("X", maxDBFString-1), got)

	multi := strings.Repeat("€", 100) // three bytes each
	got = clip(multi)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxDBFString)
	assert.Equal(t, strings.Repeat("€", maxDBFString/3), got)
}

func TestRenderShapefile_NoGeometry(t *testing.T) {
	_, err := RenderShapefile(sampleRecord(), nil)
	assert.Error(t, err)
}

func TestClockwise_KeepsClockwiseRings(t *testing.T) {
	ring := ccwSquare().LinearRing(0).Coords()
	cw := clockwise(ring)

	reversed := make([][]float64, 0, len(cw))
	for _, p := range cw {
		reversed = append(reversed, []float64{p.X, p.Y})
	}
	again := clockwise(ringFrom(reversed))
	assert.Equal(t, cw, again)
}

func ringFrom(pts [][]float64) []geom.Coord {
	out := make([]geom.Coord, 0, len(pts))
	for _, p := range pts {
		out = append(out, geom.Coord{p[0], p[1]})
	}
	return out
}
