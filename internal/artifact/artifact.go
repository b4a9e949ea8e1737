// Package artifact renders resolved parcels as downloadable vector files
// and keeps them in a token-keyed store until they expire.
package artifact

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tejas-estimator/internal/model"
)

// Format is a vector-file encoding.
type Format string

const (
	FormatNone      Format = "none"
	FormatKML       Format = "kml"
	FormatShapefile Format = "shapefile"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = eris.New("artifact not found")

// ParseFormat accepts "kml", "shapefile" (or "shp", "zip") and "none".
// An empty string yields def.
func ParseFormat(s string, def Format) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "kml":
		return FormatKML, nil
	case "shapefile", "shp", "zip":
		return FormatShapefile, nil
	case "none":
		return FormatNone, nil
	default:
		return "", eris.Wrapf(model.ErrInvalidInput, "unsupported artifact format: %s", s)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatKML:
		return "application/vnd.google-earth.kml+xml"
	case FormatShapefile:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatKML:
		return ".kml"
	case FormatShapefile:
		return ".zip"
	default:
		return ""
	}
}

// Artifact is a rendered file.
type Artifact struct {
	Format    Format    `json:"format"`
	Filename  string    `json:"filename"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentType returns the artifact's MIME type.
func (a *Artifact) ContentType() string { return a.Format.ContentType() }

// Store keeps artifacts under opaque tokens.
type Store interface {
	Put(ctx context.Context, a *Artifact) (string, error)
	Get(ctx context.Context, token string) (*Artifact, error)
}

// Render encodes the parcel in format f. g must be in lon/lat.
func Render(f Format, rec model.EstimateRecord, g geom.T, now time.Time) (*Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatKML:
		data, err = RenderKML(rec, g)
	case FormatShapefile:
		data, err = RenderShapefile(rec, g)
	default:
		return nil, eris.Errorf("artifact: cannot render format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Format:    f,
		Filename:  baseName(rec) + f.Extension(),
		Data:      data,
		CreatedAt: now.UTC(),
	}, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func baseName(rec model.EstimateRecord) string {
	for _, id := range []string{rec.QuickRefID, rec.ParcelID} {
		if id == "" || id == model.NotAvailable {
			continue
		}
		if clean := strings.Trim(unsafeName.ReplaceAllString(id, "_"), "_"); clean != "" {
			return "parcel_" + clean
		}
	}
	return "parcel"
}
