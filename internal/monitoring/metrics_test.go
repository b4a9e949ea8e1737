package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveEstimate("fortbend", "ok", 250*time.Millisecond)
	m.CascadeAttempt("fortbend", "number_name_type")
	m.CascadeAttempt("fortbend", "number_name")
	m.CascadeMatch("fortbend", "number_name")
	m.DatastoreCall("empty")
	m.ArtifactStored("kml")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Estimates.WithLabelValues("fortbend", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CascadeMatches.WithLabelValues("fortbend", "number_name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatastoreCalls.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactsStored.WithLabelValues("kml")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CascadeAttempts))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEstimate("harris", "error", time.Second)
		m.CascadeAttempt("harris", "name")
		m.CascadeMatch("harris", "name")
		m.DatastoreCall("error")
		m.SetDatastoreUp("harris", false)
		m.ArtifactStored("shapefile")
	})
}
