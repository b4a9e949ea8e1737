package model

import "github.com/twpayne/go-geom"

// Feature is a single parcel returned by a jurisdiction's datastore.
// Geometry is in geographic coordinates (EPSG:4326, x=lon, y=lat) and may be
// nil when the service omits it. Attributes are keyed by the jurisdiction's
// native field names.
type Feature struct {
	Geometry   geom.T
	Attributes map[string]any
}

// Attribute returns the raw attribute value, treating JSON null as absent.
func (f Feature) Attribute(name string) (any, bool) {
	v, ok := f.Attributes[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
