package artifact

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tejas-estimator/internal/geometry"
	"github.com/sells-group/tejas-estimator/internal/model"
)

// wgs84PRJ is the ESRI WKT for geographic WGS 84.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const (
	shapeLayer = "parcel"
	// DBF character fields hold at most 254 bytes.
	maxDBFString = 254
)

// shapeFields is the DBF schema. Names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("OWNER", maxDBFString),
	shp.StringField("ADDRESS", maxDBFString),
	shp.StringField("GEO_ID", 64),
	shp.StringField("PARCEL_ID", 64),
	shp.StringField("LEGAL", maxDBFString),
	shp.StringField("SUBDIV", 128),
	shp.StringField("BLOCK", 32),
	shp.StringField("LOT_RES", 64),
	shp.StringField("DEED", 64),
	shp.FloatField("ACRES", 18, 2),
	shp.FloatField("PERIM_FT", 18, 2),
}

// RenderShapefile writes the parcel as a one-record polygon shapefile and
// returns the .shp, .shx, .dbf and .prj members zipped together. Exterior
// rings are written clockwise; holes are dropped.
func RenderShapefile(rec model.EstimateRecord, g geom.T) ([]byte, error) {
	rings, err := geometry.ExteriorRings(g)
	if err != nil {
		return nil, eris.Wrap(err, "artifact: shapefile geometry")
	}

	dir, err := os.MkdirTemp("", "tejas-shp-")
	if err != nil {
		return nil, eris.Wrap(err, "artifact: create temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := writeShapefile(filepath.Join(dir, shapeLayer+".shp"), rec, rings); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, shapeLayer+".prj"), []byte(wgs84PRJ), 0o600); err != nil {
		return nil, eris.Wrap(err, "artifact: write prj")
	}

	return zipDir(dir, []string{".shp", ".shx", ".dbf", ".prj"})
}

func writeShapefile(path string, rec model.EstimateRecord, rings [][]geom.Coord) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "artifact: create shapefile %s", path)
	}
	closed := false
	defer func() {
		if !closed {
			w.Close()
		}
	}()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "artifact: set dbf fields")
	}

	parts := make([][]shp.Point, 0, len(rings))
	for _, ring := range rings {
		parts = append(parts, clockwise(ring))
	}
	poly := shp.Polygon(*shp.NewPolyLine(parts))
	row := int(w.Write(&poly))

	values := []any{
		clip(rec.Owner),
		clip(rec.Address),
		clip(rec.QuickRefID),
		clip(rec.ParcelID),
		clip(rec.LegalDescription),
		clip(deref(rec.Subdivision)),
		clip(deref(rec.Block)),
		clip(deref(rec.LotReserve)),
		clip(rec.Deed),
		rec.ParcelSizeAcres,
		rec.PerimeterFt,
	}
	for i, v := range values {
		if err := w.WriteAttribute(row, i, v); err != nil {
			return eris.Wrapf(err, "artifact: write attribute %d", i)
		}
	}

	w.Close()
	closed = true
	return nil
}

// clockwise converts a ring to shapefile points, reversing it when its
// signed area is positive (counter-clockwise).
func clockwise(ring []geom.Coord) []shp.Point {
	pts := make([]shp.Point, 0, len(ring))
	for _, c := range ring {
		pts = append(pts, shp.Point{X: c[0], Y: c[1]})
	}
	var sum float64
	for i := 0; i+1 < len(pts); i++ {
		sum += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	if sum > 0 {
		for i, k := 0, len(pts)-1; i < k; i, k = i+1, k-1 {
			pts[i], pts[k] = pts[k], pts[i]
		}
	}
	return pts
}

// clip shortens s to the DBF field size without splitting a rune.
func clip(s string) string {
	if len(s) <= maxDBFString {
		return s
	}
	i := maxDBFString
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}

func zipDir(dir string, exts []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ext := range exts {
		name := shapeLayer + ext
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, eris.Wrapf(err, "artifact: read %s", name)
		}
		f, err := zw.Create(name)
		if err != nil {
			return nil, eris.Wrapf(err, "artifact: zip %s", name)
		}
		if _, err := f.Write(data); err != nil {
			return nil, eris.Wrapf(err, "artifact: zip %s", name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, eris.Wrap(err, "artifact: close zip")
	}
	return buf.Bytes(), nil
}
