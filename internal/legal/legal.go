// Package legal decomposes free-text legal descriptions into subdivision,
// block, and lot/reserve parts.
package legal

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Keywords are the token sets that drive extraction. Matching is
// case-insensitive and word-bounded.
type Keywords struct {
	// SubdivisionTerminators end the subdivision name.
	SubdivisionTerminators []string
	// Block introduces the block identifier.
	Block []string
	// Lot introduces a lot or reserve identifier.
	Lot []string
	// ReserveQualifiers are words that, standing alone before a terminator,
	// describe the parcel rather than name a subdivision.
	ReserveQualifiers []string
}

// DefaultKeywords returns the keyword sets used by the county appraisal
// districts currently configured.
func DefaultKeywords() Keywords {
	return Keywords{
		SubdivisionTerminators: []string{"BLOCK", "LOT", "RESERVE", "ACRES"},
		Block:                  []string{"BLOCK"},
		Lot:                    []string{"LOT", "RESERVE"},
		ReserveQualifiers:      []string{"UNRESTRICTED", "RESTRICTED", "COMMERCIAL"},
	}
}

// Breakdown is the decomposed legal description. A nil field was not found.
type Breakdown struct {
	Subdivision  *string `json:"subdivision"`
	Block        *string `json:"block"`
	LotOrReserve *string `json:"lot_reserve"`
}

// Parser extracts a Breakdown. It never fails on input.
type Parser struct {
	subdivision *regexp.Regexp
	block       *regexp.Regexp
	lot         *regexp.Regexp
	qualifiers  map[string]struct{}
}

// NewParser compiles a parser for the given keyword sets.
func NewParser(kw Keywords) (*Parser, error) {
	term := alternation(kw.SubdivisionTerminators)
	block := alternation(kw.Block)
	lot := alternation(kw.Lot)
	if term == "" || block == "" || lot == "" {
		return nil, eris.New("legal: keyword sets must not be empty")
	}

	subRe, err := regexp.Compile(`(?is)^(.*?)\b(?:` + term + `)\b`)
	if err != nil {
		return nil, eris.Wrap(err, "legal: compile subdivision pattern")
	}
	blockRe, err := regexp.Compile(`(?i)\b(?:` + block + `)\s+([^\s,;]+)`)
	if err != nil {
		return nil, eris.Wrap(err, "legal: compile block pattern")
	}
	lotRe, err := regexp.Compile(`(?i)\b(` + lot + `)\s+("[^"]*"|'[^']*'|[^\s,;]+)`)
	if err != nil {
		return nil, eris.Wrap(err, "legal: compile lot pattern")
	}

	qualifiers := make(map[string]struct{}, len(kw.ReserveQualifiers))
	for _, q := range kw.ReserveQualifiers {
		if q = strings.ToUpper(strings.TrimSpace(q)); q != "" {
			qualifiers[q] = struct{}{}
		}
	}

	return &Parser{
		subdivision: subRe,
		block:       blockRe,
		lot:         lotRe,
		qualifiers:  qualifiers,
	}, nil
}

// Default returns a parser for DefaultKeywords.
func Default() *Parser {
	p, err := NewParser(DefaultKeywords())
	if err != nil {
		panic(err)
	}
	return p
}

// Parse runs the three extractions independently over legal.
func (p *Parser) Parse(legal string) Breakdown {
	return Breakdown{
		Subdivision:  p.parseSubdivision(legal),
		Block:        p.parseBlock(legal),
		LotOrReserve: p.parseLot(legal),
	}
}

func (p *Parser) parseSubdivision(legal string) *string {
	m := p.subdivision.FindStringSubmatch(legal)
	if m == nil {
		return nil
	}
	name := strings.Trim(m[1], " \t\r\n,.;:-&/")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil
	}
	if _, ok := p.qualifiers[strings.ToUpper(name)]; ok {
		return nil
	}
	// Casers carry state, so one per call.
	titled := cases.Title(language.English).String(name)
	return &titled
}

func (p *Parser) parseBlock(legal string) *string {
	m := p.block.FindStringSubmatch(legal)
	if m == nil {
		return nil
	}
	block := strings.TrimRight(m[1], ".:")
	if block == "" {
		return nil
	}
	return &block
}

func (p *Parser) parseLot(legal string) *string {
	m := p.lot.FindStringSubmatch(legal)
	if m == nil {
		return nil
	}
	id := strings.TrimRight(m[2], ".:")
	if id == "" {
		return nil
	}
	phrase := strings.ToUpper(m[1]) + " " + id
	return &phrase
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return strings.Join(quoted, "|")
}
