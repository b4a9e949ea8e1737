// Package jurisdiction holds the static set of parcel services the estimator
// can query and the attribute names each one uses.
//
// This is the only package that knows a jurisdiction's native field names.
// Everything else goes through Fields.
package jurisdiction

import (
	"bytes"
	_ "embed"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tejas-estimator/internal/model"
)

//go:embed jurisdictions.yaml
var defaultData []byte

// CanonicalField is a jurisdiction-independent attribute name.
type CanonicalField string

const (
	StreetNum  CanonicalField = "street_num"
	StreetName CanonicalField = "street_name"
	StreetType CanonicalField = "street_type"
	Owner      CanonicalField = "owner"
	Legal      CanonicalField = "legal"
	Deed       CanonicalField = "deed"
	ParcelID   CanonicalField = "parcel_id"
	QuickRefID CanonicalField = "quickrefid"
	Acres      CanonicalField = "acres"
	Market     CanonicalField = "market"
)

// CanonicalFields lists every canonical field in a stable order.
var CanonicalFields = []CanonicalField{
	StreetNum, StreetName, StreetType, Owner, Legal, Deed, ParcelID, QuickRefID, Acres, Market,
}

// Fields maps each canonical field to the jurisdiction's native field name.
type Fields struct {
	StreetNum  string `yaml:"street_num" json:"street_num"`
	StreetName string `yaml:"street_name" json:"street_name"`
	StreetType string `yaml:"street_type" json:"street_type"`
	Owner      string `yaml:"owner" json:"owner"`
	Legal      string `yaml:"legal" json:"legal"`
	Deed       string `yaml:"deed" json:"deed"`
	ParcelID   string `yaml:"parcel_id" json:"parcel_id"`
	QuickRefID string `yaml:"quickrefid" json:"quickrefid"`
	Acres      string `yaml:"acres" json:"acres"`
	Market     string `yaml:"market" json:"market"`
}

// Name returns the native field name for a canonical field.
func (f Fields) Name(c CanonicalField) string {
	switch c {
	case StreetNum:
		return f.StreetNum
	case StreetName:
		return f.StreetName
	case StreetType:
		return f.StreetType
	case Owner:
		return f.Owner
	case Legal:
		return f.Legal
	case Deed:
		return f.Deed
	case ParcelID:
		return f.ParcelID
	case QuickRefID:
		return f.QuickRefID
	case Acres:
		return f.Acres
	case Market:
		return f.Market
	default:
		return ""
	}
}

func (f Fields) validate() error {
	for _, c := range CanonicalFields {
		if strings.TrimSpace(f.Name(c)) == "" {
			return eris.Errorf("missing field mapping for %q", c)
		}
	}
	return nil
}

// Jurisdiction is one parcel service. Values are immutable after load.
type Jurisdiction struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Fields   Fields `json:"fields"`
}

// Registry is a read-only set of jurisdictions, safe for concurrent use.
type Registry struct {
	byKey map[string]Jurisdiction
	keys  []string
}

type fileEntry struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Fields   Fields `yaml:"fields"`
}

type registryFile struct {
	Jurisdictions map[string]fileEntry `yaml:"jurisdictions"`
}

// Default returns the built-in registry.
func Default() (*Registry, error) {
	return Load(defaultData)
}

// LoadFile reads a registry from a YAML file on disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "jurisdiction: read %s", path)
	}
	return Load(data)
}

// Load parses and validates a YAML registry. Unknown keys, missing field
// mappings, and malformed endpoints are all rejected here rather than at
// query time.
func Load(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f registryFile
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "jurisdiction: decode registry")
	}
	if len(f.Jurisdictions) == 0 {
		return nil, eris.New("jurisdiction: registry is empty")
	}

	r := &Registry{byKey: make(map[string]Jurisdiction, len(f.Jurisdictions))}
	for rawKey, entry := range f.Jurisdictions {
		key := normalizeKey(rawKey)
		if key == "" {
			return nil, eris.New("jurisdiction: empty key")
		}
		if _, dup := r.byKey[key]; dup {
			return nil, eris.Errorf("jurisdiction: duplicate key %q", key)
		}
		if err := validateEndpoint(entry.Endpoint); err != nil {
			return nil, eris.Wrapf(err, "jurisdiction: %s", key)
		}
		if err := entry.Fields.validate(); err != nil {
			return nil, eris.Wrapf(err, "jurisdiction: %s", key)
		}
		name := entry.Name
		if name == "" {
			name = key
		}
		r.byKey[key] = Jurisdiction{
			Key:      key,
			Name:     name,
			Endpoint: entry.Endpoint,
			Fields:   entry.Fields,
		}
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)

	return r, nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "parse endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return eris.Errorf("endpoint %q must be http or https", raw)
	}
	if u.Host == "" {
		return eris.Errorf("endpoint %q has no host", raw)
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Lookup returns the jurisdiction for key (case-insensitive). Unknown keys
// are an input error; no query is attempted for them.
func (r *Registry) Lookup(key string) (Jurisdiction, error) {
	j, ok := r.byKey[normalizeKey(key)]
	if !ok {
		return Jurisdiction{}, eris.Wrapf(model.ErrInvalidInput, "unsupported county: %s", key)
	}
	return j, nil
}

// Keys returns the configured jurisdiction keys in sorted order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// All returns every jurisdiction in key order.
func (r *Registry) All() []Jurisdiction {
	out := make([]Jurisdiction, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.byKey[k])
	}
	return out
}
