// Package cascade builds the ordered where-clauses for a parcel lookup and
// runs them against a datastore until one returns a match.
package cascade

import (
	"fmt"
	"strings"

	"github.com/sells-group/tejas-estimator/internal/address"
	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
)

// Tier is a cascade strictness level. Lower values are stricter.
type Tier int

const (
	TierIdentifier     Tier = iota // exact quick-reference identifier
	TierNumberNameType             // house number, street name, street type
	TierNumberName                 // house number, street name
	TierName                       // street name only
)

func (t Tier) String() string {
	switch t {
	case TierIdentifier:
		return "identifier"
	case TierNumberNameType:
		return "number_name_type"
	case TierNumberName:
		return "number_name"
	case TierName:
		return "name"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Clause is one datastore filter expression.
type Clause struct {
	Tier  Tier   `json:"tier"`
	Where string `json:"where"`
}

// AddressClauses returns the cascade for a parsed address, strictest first.
// The number+name+type tier needs both a number and a type, the
// number+name tier needs a number, and the name-only tier is always last.
func AddressClauses(f jurisdiction.Fields, p address.Parsed) []Clause {
	name := quote(strings.ToUpper(p.StreetName))
	nameLike := fmt.Sprintf("UPPER(%s) LIKE '%%%s%%'", f.StreetName, name)

	clauses := make([]Clause, 0, 3)
	if p.HouseNumber != "" && p.StreetType != "" {
		clauses = append(clauses, Clause{
			Tier: TierNumberNameType,
			Where: fmt.Sprintf("%s = '%s' AND %s AND UPPER(%s) = '%s'",
				f.StreetNum, quote(p.HouseNumber), nameLike, f.StreetType, quote(strings.ToUpper(p.StreetType))),
		})
	}
	if p.HouseNumber != "" {
		clauses = append(clauses, Clause{
			Tier:  TierNumberName,
			Where: fmt.Sprintf("%s = '%s' AND %s", f.StreetNum, quote(p.HouseNumber), nameLike),
		})
	}
	clauses = append(clauses, Clause{Tier: TierName, Where: nameLike})
	return clauses
}

// IdentifierClause matches a quick-reference identifier exactly.
func IdentifierClause(f jurisdiction.Fields, id string) Clause {
	return Clause{
		Tier:  TierIdentifier,
		Where: fmt.Sprintf("%s = '%s'", f.QuickRefID, quote(strings.TrimSpace(id))),
	}
}

// quote escapes a literal for a single-quoted SQL-92 string.
func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
