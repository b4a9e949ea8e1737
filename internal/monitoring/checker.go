package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
	"github.com/sells-group/tejas-estimator/pkg/arcgis"
)

// probeWhere matches no rows; it only proves the service answers queries.
const probeWhere = "1=0"

// DatastoreStatus is the last probe result for one jurisdiction.
type DatastoreStatus struct {
	Jurisdiction string    `json:"jurisdiction"`
	Up           bool      `json:"up"`
	Error        string    `json:"error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Checker periodically probes each jurisdiction's datastore in the background.
type Checker struct {
	client        arcgis.Client
	jurisdictions []jurisdiction.Jurisdiction
	metrics       *Metrics
	interval      time.Duration
	clock         clockwork.Clock

	mu     sync.RWMutex
	status map[string]DatastoreStatus
}

// NewChecker creates a background datastore checker. A non-positive interval
// defaults to five minutes.
func NewChecker(client arcgis.Client, js []jurisdiction.Jurisdiction, metrics *Metrics, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Checker{
		client:        client,
		jurisdictions: js,
		metrics:       metrics,
		interval:      interval,
		clock:         clockwork.NewRealClock(),
		status:        make(map[string]DatastoreStatus, len(js)),
	}
}

// WithClock replaces the checker's clock. Used by tests.
func (c *Checker) WithClock(clock clockwork.Clock) *Checker {
	c.clock = clock
	return c
}

// Run probes immediately and then on every interval. It blocks until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting datastore checker",
		zap.Duration("interval", c.interval),
		zap.Int("jurisdictions", len(c.jurisdictions)),
	)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	c.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("datastore checker stopped")
			return
		case <-ticker.Chan():
			c.CheckOnce(ctx)
		}
	}
}

// CheckOnce probes every jurisdiction once.
func (c *Checker) CheckOnce(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	for _, j := range c.jurisdictions {
		st := DatastoreStatus{Jurisdiction: j.Key, Up: true, CheckedAt: c.clock.Now().UTC()}
		if _, err := c.client.Query(ctx, j.Endpoint, probeWhere); err != nil {
			st.Up = false
			st.Error = err.Error()
			log.Warn("monitoring: datastore probe failed",
				zap.String("jurisdiction", j.Key),
				zap.Error(err),
			)
		}
		c.metrics.SetDatastoreUp(j.Key, st.Up)

		c.mu.Lock()
		c.status[j.Key] = st
		c.mu.Unlock()
	}
}

// Status returns the latest probe results sorted by jurisdiction key.
// Jurisdictions not yet probed are omitted.
func (c *Checker) Status() []DatastoreStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]DatastoreStatus, 0, len(c.status))
	for _, st := range c.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Jurisdiction < out[k].Jurisdiction })
	return out
}
