package artifact

import (
	"bytes"
	"fmt"
	"html"
	"image/color"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomkml "github.com/twpayne/go-geom/encoding/kml"
	"github.com/twpayne/go-kml/v3"

	"github.com/sells-group/tejas-estimator/internal/geometry"
	"github.com/sells-group/tejas-estimator/internal/model"
)

const (
	styleID      = "parcel-outline"
	outlineWidth = 3
)

// outlineColor is opaque red; KML writes it as aabbggrr "ff0000ff".
var outlineColor = color.RGBA{R: 0xff, A: 0xff}

// RenderKML writes a single-placemark KML document: an unfilled outline of
// each exterior ring and an HTML description of the parcel's attributes.
func RenderKML(rec model.EstimateRecord, g geom.T) ([]byte, error) {
	rings, err := geometry.ExteriorRings(g)
	if err != nil {
		return nil, eris.Wrap(err, "artifact: kml geometry")
	}
	if len(rings) == 0 {
		return nil, eris.Wrap(geometry.ErrNoGeometry, "artifact: kml geometry")
	}

	shape, err := outlineElement(rings)
	if err != nil {
		return nil, err
	}

	style := kml.SharedStyle(styleID,
		kml.LineStyle(
			kml.Color(outlineColor),
			kml.Width(outlineWidth),
		),
		kml.PolyStyle(
			kml.Fill(false),
			kml.Outline(true),
		),
	)

	name := placemarkName(rec)
	doc := kml.KML(
		kml.Document(
			kml.Name(name),
			style,
			kml.Placemark(
				kml.Name(name),
				kml.Description(describe(rec)),
				kml.StyleURL(style.URL()),
				shape,
			),
		),
	)

	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		return nil, eris.Wrap(err, "artifact: encode kml")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// outlineElement encodes the exterior rings as a Polygon, or a MultiGeometry
// of Polygons when the parcel has several parts.
func outlineElement(rings [][]geom.Coord) (kml.Element, error) {
	parts := make([][][]geom.Coord, 0, len(rings))
	for _, ring := range rings {
		flat := make([]geom.Coord, 0, len(ring))
		for _, c := range ring {
			if len(c) < 2 {
				continue
			}
			flat = append(flat, geom.Coord{c[0], c[1]})
		}
		parts = append(parts, [][]geom.Coord{flat})
	}

	if len(parts) == 1 {
		poly, err := geom.NewPolygon(geom.XY).SetCoords(parts[0])
		if err != nil {
			return nil, eris.Wrap(err, "artifact: kml polygon")
		}
		return geomkml.EncodePolygon(poly), nil
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(parts)
	if err != nil {
		return nil, eris.Wrap(err, "artifact: kml multipolygon")
	}
	return geomkml.EncodeMultiPolygon(mp), nil
}

func placemarkName(rec model.EstimateRecord) string {
	if rec.Address != "" && rec.Address != model.NotAvailable {
		return rec.Address
	}
	if rec.Owner != "" {
		return rec.Owner
	}
	return "Parcel"
}

// describe builds the HTML attribute table shown in the placemark balloon.
func describe(rec model.EstimateRecord) string {
	rows := [][2]string{
		{"Owner", rec.Owner},
		{"Geo ID", rec.QuickRefID},
		{"Parcel ID", rec.ParcelID},
		{"Legal", rec.LegalDescription},
		{"Subdivision", deref(rec.Subdivision)},
		{"Block", deref(rec.Block)},
		{"Lot/Reserve", deref(rec.LotReserve)},
		{"Deed", rec.Deed},
		{"Area (acres)", fmt.Sprintf("%.2f", rec.ParcelSizeAcres)},
		{"Perimeter (ft)", fmt.Sprintf("%.2f", rec.PerimeterFt)},
	}

	var b strings.Builder
	b.WriteString("<table>")
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><th>%s</th><td>%s</td></tr>", html.EscapeString(r[0]), html.EscapeString(r[1]))
	}
	b.WriteString("</table>")
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
