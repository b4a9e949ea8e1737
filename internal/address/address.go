// Package address turns loosely formatted street addresses into the
// (house number, street name, street type) triple used to query parcel
// services.
package address

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tejas-estimator/internal/model"
)

// DefaultStreetTypes are the trailing street-type tokens recognized when no
// other set is configured.
var DefaultStreetTypes = []string{
	"RD", "ST", "DR", "LN", "BLVD", "CT", "AVE", "HWY", "WAY", "TRAIL", "PKWY", "CIR",
}

// ErrNotParseable is returned when no street name can be isolated.
var ErrNotParseable = eris.Wrap(model.ErrInvalidInput, "invalid address format")

// Parsed is a structured address. Empty strings mean the part was absent;
// StreetName is always set on a successful parse.
type Parsed struct {
	HouseNumber string `json:"house_number,omitempty"`
	StreetName  string `json:"street_name"`
	StreetType  string `json:"street_type,omitempty"`
}

// Parser matches addresses against a fixed set of street types.
type Parser struct {
	pattern *regexp.Regexp
	types   map[string]struct{}
}

// NewParser compiles a parser for the given street-type tokens.
func NewParser(streetTypes []string) (*Parser, error) {
	if len(streetTypes) == 0 {
		return nil, eris.New("address: no street types configured")
	}

	types := make(map[string]struct{}, len(streetTypes))
	quoted := make([]string, 0, len(streetTypes))
	for _, st := range streetTypes {
		st = strings.ToUpper(strings.TrimSpace(st))
		if st == "" {
			continue
		}
		if _, dup := types[st]; dup {
			continue
		}
		types[st] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(st))
	}
	if len(quoted) == 0 {
		return nil, eris.New("address: no street types configured")
	}

	// Optional number, non-greedy name, optional anchored type suffix.
	pattern, err := regexp.Compile(`^(\d+)?\s*([\w\s]+?)(?:\s+(` + strings.Join(quoted, "|") + `))?$`)
	if err != nil {
		return nil, eris.Wrap(err, "address: compile pattern")
	}

	return &Parser{pattern: pattern, types: types}, nil
}

// Default returns a parser for DefaultStreetTypes.
func Default() *Parser {
	p, err := NewParser(DefaultStreetTypes)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse splits raw into its parts. Input is uppercased and whitespace is
// collapsed; trailing periods and commas are dropped.
func (p *Parser) Parse(raw string) (Parsed, error) {
	s := strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return Parsed{}, ErrNotParseable
	}

	m := p.pattern.FindStringSubmatch(s)
	if m == nil {
		return Parsed{}, eris.Wrapf(ErrNotParseable, "address %q", raw)
	}

	out := Parsed{
		HouseNumber: strings.TrimSpace(m[1]),
		StreetName:  strings.TrimSpace(m[2]),
		StreetType:  strings.TrimSpace(m[3]),
	}

	if out.StreetName == "" || !hasLetter(out.StreetName) {
		return Parsed{}, eris.Wrapf(ErrNotParseable, "address %q", raw)
	}
	// A lone street-type token is not a street name.
	if out.StreetType == "" {
		if _, ok := p.types[out.StreetName]; ok {
			return Parsed{}, eris.Wrapf(ErrNotParseable, "address %q", raw)
		}
	}

	return out, nil
}

// String renders the address back to a single line.
func (a Parsed) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.HouseNumber, a.StreetName, a.StreetType} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
