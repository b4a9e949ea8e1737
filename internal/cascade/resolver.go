package cascade

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/address"
	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
	"github.com/sells-group/tejas-estimator/internal/model"
	"github.com/sells-group/tejas-estimator/internal/monitoring"
	"github.com/sells-group/tejas-estimator/pkg/arcgis"
)

// Selector identifies the parcel to resolve. QuickRefID wins when both are
// set.
type Selector struct {
	QuickRefID string
	Address    *address.Parsed
}

// Match is the first feature returned by the cascade.
type Match struct {
	Feature  model.Feature
	Clause   Clause
	Attempts int
}

// Resolver runs clause cascades against a datastore.
type Resolver struct {
	client  arcgis.Client
	metrics *monitoring.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(client arcgis.Client, metrics *monitoring.Metrics) *Resolver {
	return &Resolver{client: client, metrics: metrics}
}

// Clauses returns the cascade for sel in execution order.
func Clauses(f jurisdiction.Fields, sel Selector) ([]Clause, error) {
	if id := strings.TrimSpace(sel.QuickRefID); id != "" {
		return []Clause{IdentifierClause(f, id)}, nil
	}
	if sel.Address == nil || sel.Address.StreetName == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "cascade: address or quickrefid required")
	}
	return AddressClauses(f, *sel.Address), nil
}

// Resolve issues the clauses one at a time and returns the first feature of
// the first non-empty result. A datastore error stops the cascade.
func (r *Resolver) Resolve(ctx context.Context, j jurisdiction.Jurisdiction, sel Selector) (*Match, error) {
	clauses, err := Clauses(j.Fields, sel)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("jurisdiction", j.Key))
	for i, c := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "cascade: resolve")
		}

		r.metrics.CascadeAttempt(j.Key, c.Tier.String())
		log.Debug("cascade: querying",
			zap.Stringer("tier", c.Tier),
			zap.String("where", c.Where),
		)

		features, err := r.client.Query(ctx, j.Endpoint, c.Where)
		if err != nil {
			r.metrics.DatastoreCall("error")
			return nil, eris.Wrapf(err, "cascade: query tier %s", c.Tier)
		}
		if len(features) == 0 {
			r.metrics.DatastoreCall("empty")
			continue
		}
		r.metrics.DatastoreCall("ok")
		r.metrics.CascadeMatch(j.Key, c.Tier.String())

		log.Debug("cascade: matched",
			zap.Stringer("tier", c.Tier),
			zap.Int("features", len(features)),
		)
		return &Match{Feature: features[0], Clause: c, Attempts: i + 1}, nil
	}

	return nil, eris.Wrapf(model.ErrNotFound, "cascade: %d clauses returned nothing", len(clauses))
}
