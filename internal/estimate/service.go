package estimate

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/address"
	"github.com/sells-group/tejas-estimator/internal/artifact"
	"github.com/sells-group/tejas-estimator/internal/cascade"
	"github.com/sells-group/tejas-estimator/internal/geometry"
	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
	"github.com/sells-group/tejas-estimator/internal/legal"
	"github.com/sells-group/tejas-estimator/internal/model"
	"github.com/sells-group/tejas-estimator/internal/monitoring"
)

// unknownJurisdiction labels estimates for keys missing from the registry.
const unknownJurisdiction = "unknown"

// Request selects one parcel. QuickRefID takes precedence over Address.
// Artifact is a format name; empty means the service default.
type Request struct {
	Jurisdiction string `json:"county"`
	Address      string `json:"address,omitempty"`
	QuickRefID   string `json:"quickrefid,omitempty"`
	Artifact     string `json:"artifact,omitempty"`
}

// Result is a finished estimate. Artifact and Token are set only when an
// artifact was requested; Token only when a store is configured.
type Result struct {
	Record   model.EstimateRecord
	Match    *cascade.Match
	Metrics  geometry.Metrics
	Artifact *artifact.Artifact
	Token    string
}

// Options tune a Service.
type Options struct {
	DefaultJurisdiction string
	DefaultFormat       artifact.Format
	Clock               clockwork.Clock
}

// Service resolves requests into estimate records.
type Service struct {
	registry  *jurisdiction.Registry
	addresses *address.Parser
	legal     *legal.Parser
	resolver  *cascade.Resolver
	pipeline  *geometry.Pipeline
	store     artifact.Store
	metrics   *monitoring.Metrics
	opts      Options
}

// NewService wires the estimate flow. store and metrics may be nil.
func NewService(
	registry *jurisdiction.Registry,
	addresses *address.Parser,
	legalParser *legal.Parser,
	resolver *cascade.Resolver,
	pipeline *geometry.Pipeline,
	store artifact.Store,
	metrics *monitoring.Metrics,
	opts Options,
) *Service {
	if opts.DefaultJurisdiction == "" {
		opts.DefaultJurisdiction = "fortbend"
	}
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = artifact.FormatKML
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		registry:  registry,
		addresses: addresses,
		legal:     legalParser,
		resolver:  resolver,
		pipeline:  pipeline,
		store:     store,
		metrics:   metrics,
		opts:      opts,
	}
}

// Registry returns the jurisdictions the service answers for.
func (s *Service) Registry() *jurisdiction.Registry { return s.registry }

// Estimate runs parse, cascade, legal breakdown, geometry and assembly,
// then renders and stores the artifact when one is requested.
func (s *Service) Estimate(ctx context.Context, req Request) (*Result, error) {
	start := s.opts.Clock.Now()
	key := strings.TrimSpace(req.Jurisdiction)
	if key == "" {
		key = s.opts.DefaultJurisdiction
	}

	// Only registered keys become label values.
	label := unknownJurisdiction
	if j, err := s.registry.Lookup(key); err == nil {
		label = j.Key
	}

	res, err := s.estimate(ctx, key, req)
	s.metrics.ObserveEstimate(label, outcome(err), s.opts.Clock.Since(start))
	return res, err
}

func (s *Service) estimate(ctx context.Context, key string, req Request) (*Result, error) {
	j, err := s.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	format, err := artifact.ParseFormat(req.Artifact, s.opts.DefaultFormat)
	if err != nil {
		return nil, err
	}

	sel := cascade.Selector{QuickRefID: strings.TrimSpace(req.QuickRefID)}
	if sel.QuickRefID == "" {
		if strings.TrimSpace(req.Address) == "" {
			return nil, eris.Wrap(model.ErrInvalidInput, "address or quickrefid required")
		}
		parsed, err := s.addresses.Parse(req.Address)
		if err != nil {
			return nil, err
		}
		sel.Address = &parsed
	}

	match, err := s.resolver.Resolve(ctx, j, sel)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("jurisdiction", j.Key),
		zap.Stringer("tier", match.Clause.Tier),
	)

	legalText := ""
	if v, ok := match.Feature.Attribute(j.Fields.Legal); ok {
		legalText = FormatValue(v)
	}
	breakdown := s.legal.Parse(legalText)

	hasGeometry := true
	metrics, err := s.pipeline.Compute(match.Feature.Geometry)
	if err != nil {
		if !eris.Is(err, geometry.ErrNoGeometry) {
			return nil, eris.Wrap(err, "estimate: geometry")
		}
		hasGeometry = false
		log.Warn("estimate: matched parcel has no geometry")
	}

	rec := Assemble(j, match.Feature, breakdown, metrics)
	rec.MatchTier = match.Clause.Tier.String()
	res := &Result{Record: rec, Match: match, Metrics: metrics}

	if format == artifact.FormatNone || !hasGeometry {
		return res, nil
	}

	a, err := artifact.Render(format, rec, match.Feature.Geometry, s.opts.Clock.Now())
	if err != nil {
		return nil, eris.Wrap(err, "estimate: render artifact")
	}
	res.Artifact = a

	if s.store != nil {
		token, err := s.store.Put(ctx, a)
		if err != nil {
			return nil, eris.Wrap(err, "estimate: store artifact")
		}
		res.Token = token
		s.metrics.ArtifactStored(string(format))
	}

	log.Debug("estimate: complete",
		zap.Float64("acres", rec.ParcelSizeAcres),
		zap.String("artifact", string(format)),
	)
	return res, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case eris.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	case eris.Is(err, model.ErrNotFound):
		return "not_found"
	case eris.Is(err, model.ErrDatastoreUnavailable):
		return "datastore_unavailable"
	default:
		return "error"
	}
}
