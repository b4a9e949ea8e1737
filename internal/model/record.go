package model

// NotAvailable is the placeholder for attributes the datastore did not return.
const NotAvailable = "N/A"

// EstimateRecord is the assembled parcel estimate returned to callers.
// Area and perimeter are rounded to two decimals for display.
type EstimateRecord struct {
	Jurisdiction     string  `json:"jurisdiction"`
	Owner            string  `json:"owner"`
	Address          string  `json:"address"`
	LegalDescription string  `json:"legal_description"`
	Subdivision      *string `json:"subdivision"`
	Block            *string `json:"block"`
	LotReserve       *string `json:"lot_reserve"`
	Deed             string  `json:"deed"`
	CalledAcreage    string  `json:"called_acreage"`
	MarketValue      string  `json:"market_value"`
	QuickRefID       string  `json:"quickrefid"`
	ParcelID         string  `json:"parcel_id"`
	ParcelSizeAcres  float64 `json:"parcel_size_acres"`
	PerimeterFt      float64 `json:"perimeter_ft"`
	MapsLink         string  `json:"maps_link"`
	MatchTier        string  `json:"match_tier"`
	ArtifactURL      string  `json:"artifact_url,omitempty"`
}
