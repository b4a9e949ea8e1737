// Package estimate turns a resolved parcel feature into an EstimateRecord
// and orchestrates the full lookup.
package estimate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/tejas-estimator/internal/geometry"
	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
	"github.com/sells-group/tejas-estimator/internal/legal"
	"github.com/sells-group/tejas-estimator/internal/model"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// Assemble merges attributes, the legal breakdown and the metrics into a
// record. It does no I/O. Missing or null attributes become "N/A", except
// deed which becomes "".
func Assemble(j jurisdiction.Jurisdiction, f model.Feature, b legal.Breakdown, m geometry.Metrics) model.EstimateRecord {
	attr := func(c jurisdiction.CanonicalField, missing string) string {
		v, ok := f.Attribute(j.Fields.Name(c))
		if !ok {
			return missing
		}
		return FormatValue(v)
	}

	r := m.Rounded()
	return model.EstimateRecord{
		Jurisdiction:     j.Key,
		Owner:            attr(jurisdiction.Owner, model.NotAvailable),
		Address:          siteAddress(j, f),
		LegalDescription: attr(jurisdiction.Legal, model.NotAvailable),
		Subdivision:      b.Subdivision,
		Block:            b.Block,
		LotReserve:       b.LotOrReserve,
		Deed:             attr(jurisdiction.Deed, ""),
		CalledAcreage:    attr(jurisdiction.Acres, model.NotAvailable),
		MarketValue:      attr(jurisdiction.Market, model.NotAvailable),
		QuickRefID:       attr(jurisdiction.QuickRefID, model.NotAvailable),
		ParcelID:         attr(jurisdiction.ParcelID, model.NotAvailable),
		ParcelSizeAcres:  r.AreaAcres,
		PerimeterFt:      r.PerimeterFt,
		MapsLink:         MapsLink(m),
	}
}

// siteAddress joins the street number, name and type attributes.
func siteAddress(j jurisdiction.Jurisdiction, f model.Feature) string {
	parts := make([]string, 0, 3)
	for _, c := range []jurisdiction.CanonicalField{jurisdiction.StreetNum, jurisdiction.StreetName, jurisdiction.StreetType} {
		if v, ok := f.Attribute(j.Fields.Name(c)); ok {
			if s := strings.TrimSpace(FormatValue(v)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 {
		return model.NotAvailable
	}
	return strings.Join(parts, " ")
}

// MapsLink builds a map search URL for the metrics' centroid, or "N/A" when
// there is no centroid.
func MapsLink(m geometry.Metrics) string {
	if len(m.Centroid) < 2 {
		return model.NotAvailable
	}
	return fmt.Sprintf("%s%.6f,%.6f", mapsSearchURL, m.Lat(), m.Lon())
}

// FormatValue renders an attribute for display. Integral numbers print
// without a fractional part.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if fl, err := t.Float64(); err == nil {
			return formatFloat(fl)
		}
		return t.String()
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
