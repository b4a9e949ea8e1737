package main

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/address"
	"github.com/sells-group/tejas-estimator/internal/artifact"
	"github.com/sells-group/tejas-estimator/internal/cascade"
	"github.com/sells-group/tejas-estimator/internal/config"
	"github.com/sells-group/tejas-estimator/internal/estimate"
	"github.com/sells-group/tejas-estimator/internal/geometry"
	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
	"github.com/sells-group/tejas-estimator/internal/legal"
	"github.com/sells-group/tejas-estimator/internal/monitoring"
	"github.com/sells-group/tejas-estimator/pkg/arcgis"
)

// estimatorEnv holds the clients, registries and service needed by the
// serve/lookup/batch commands.
type estimatorEnv struct {
	Registry *jurisdiction.Registry
	Client   arcgis.Client
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer
	Store    artifact.Store // nil unless requested
	Service  *estimate.Service

	closers []func() error
}

// Close releases resources held by the environment.
func (e *estimatorEnv) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initEstimator validates cfg for mode and builds the estimate service.
// withStore attaches the configured artifact store; without it artifacts are
// rendered and returned but never kept. Callers should defer env.Close().
func initEstimator(ctx context.Context, c *config.Config, mode string, withStore bool) (*estimatorEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	reg, err := loadRegistry(c.Jurisdictions)
	if err != nil {
		return nil, err
	}
	if _, err := reg.Lookup(c.Jurisdictions.Default); err != nil {
		return nil, eris.Wrap(err, "jurisdictions.default")
	}

	addresses, err := address.NewParser(c.Address.StreetTypes)
	if err != nil {
		return nil, eris.Wrap(err, "address parser")
	}
	legalParser, err := legal.NewParser(legal.Keywords{
		SubdivisionTerminators: c.Legal.SubdivisionTerminators,
		Block:                  c.Legal.BlockKeywords,
		Lot:                    c.Legal.LotKeywords,
		ReserveQualifiers:      c.Legal.ReserveQualifiers,
	})
	if err != nil {
		return nil, eris.Wrap(err, "legal parser")
	}

	proj, err := geometry.ProjectionByCode(c.Geometry.CRS)
	if err != nil {
		return nil, eris.Wrap(err, "geometry.crs")
	}
	format, err := artifact.ParseFormat(c.Artifact.DefaultFormat, artifact.FormatKML)
	if err != nil {
		return nil, eris.Wrap(err, "artifact.default_format")
	}

	client := arcgis.NewClient(
		arcgis.WithTimeout(time.Duration(c.Datastore.TimeoutSecs)*time.Second),
		arcgis.WithRateLimit(c.Datastore.RateLimit),
		arcgis.WithUserAgent(c.Datastore.UserAgent),
	)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(promReg)

	env := &estimatorEnv{
		Registry: reg,
		Client:   client,
		Metrics:  metrics,
		Gatherer: promReg,
	}

	if withStore {
		store, closer, err := initStore(ctx, c.Artifact)
		if err != nil {
			return nil, err
		}
		env.Store = store
		if closer != nil {
			env.closers = append(env.closers, closer)
		}
	}

	env.Service = estimate.NewService(
		reg,
		addresses,
		legalParser,
		cascade.NewResolver(client, metrics),
		geometry.NewPipeline(proj),
		env.Store,
		metrics,
		estimate.Options{
			DefaultJurisdiction: c.Jurisdictions.Default,
			DefaultFormat:       format,
		},
	)

	zap.L().Debug("estimator ready",
		zap.Strings("jurisdictions", reg.Keys()),
		zap.String("crs", proj.Code()),
		zap.String("default_format", string(format)),
		zap.Bool("store", env.Store != nil),
	)
	return env, nil
}

func loadRegistry(c config.JurisdictionsConfig) (*jurisdiction.Registry, error) {
	if c.File == "" {
		reg, err := jurisdiction.Default()
		return reg, eris.Wrap(err, "load built-in jurisdictions")
	}
	reg, err := jurisdiction.LoadFile(c.File)
	if err != nil {
		return nil, eris.Wrapf(err, "load jurisdictions from %s", c.File)
	}
	return reg, nil
}

// initStore opens the configured artifact store. The returned closer may be
// nil.
func initStore(ctx context.Context, c config.ArtifactConfig) (artifact.Store, func() error, error) {
	ttl := time.Duration(c.TTLMinutes) * time.Minute

	switch strings.ToLower(c.Store) {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		store := artifact.NewRedisStore(rdb, c.Redis.KeyPrefix, ttl)
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		zap.L().Info("artifact store: redis", zap.String("addr", c.Redis.Addr), zap.Duration("ttl", ttl))
		return store, rdb.Close, nil
	default:
		zap.L().Info("artifact store: memory", zap.Int("max_entries", c.MaxEntries), zap.Duration("ttl", ttl))
		return artifact.NewMemoryStore(c.MaxEntries, ttl, clockwork.NewRealClock()), nil, nil
	}
}
