package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tejas-estimator/internal/artifact"
	"github.com/sells-group/tejas-estimator/internal/estimate"
	"github.com/sells-group/tejas-estimator/internal/model"
)

type fakeEstimator struct {
	calls atomic.Int32
	fn    func(estimate.Request) (*estimate.Result, error)
}

func (f *fakeEstimator) Estimate(_ context.Context, req estimate.Request) (*estimate.Result, error) {
	f.calls.Add(1)
	return f.fn(req)
}

func okResult(owner string) *estimate.Result {
	return &estimate.Result{Record: model.EstimateRecord{Owner: owner, Jurisdiction: "fortbend"}}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []Outcome {
	t.Helper()
	var out []Outcome
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var o Outcome
		require.NoError(t, json.Unmarshal([]byte(line), &o))
		out = append(out, o)
	}
	return out
}

func TestRun_PreservesOrderAndRecordsFailures(t *testing.T) {
	est := &fakeEstimator{fn: func(req estimate.Request) (*estimate.Result, error) {
		if req.Address == "bad" {
			return nil, eris.Wrap(model.ErrNotFound, "cascade")
		}
		assert.Equal(t, "none", req.Artifact)
		return okResult(req.Address), nil
	}}
	rows := []Row{
		{Line: 1, Address: "a"},
		{Line: 2, Address: "bad"},
		{Line: 3, Address: "c"},
	}

	var buf bytes.Buffer
	sum, err := Run(context.Background(), est, rows, &buf, Options{Concurrency: 3, Artifact: "kml"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Succeeded: 2, Failed: 1}, sum)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "a", lines[0].Record.Owner)
	assert.Nil(t, lines[1].Record)
	assert.Contains(t, lines[1].Error, "no parcels found")
	assert.Equal(t, 2, lines[1].Line)
	assert.Equal(t, "c", lines[2].Record.Owner)
}

func TestRun_WritesArtifacts(t *testing.T) {
	est := &fakeEstimator{fn: func(req estimate.Request) (*estimate.Result, error) {
		assert.Equal(t, "kml", req.Artifact)
		res := okResult("x")
		res.Artifact = &artifact.Artifact{Format: artifact.FormatKML, Filename: "parcel_R1.kml", Data: []byte("<kml/>")}
		return res, nil
	}}

	dir := t.TempDir() + "/out"
	var buf bytes.Buffer
	_, err := Run(context.Background(), est, []Row{{Line: 4, QuickRefID: "R1"}}, &buf, Options{Artifact: "kml", ArtifactDir: dir})
	require.NoError(t, err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, dir+"/4_parcel_R1.kml", lines[0].ArtifactPath)
	data, err := os.ReadFile(lines[0].ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "<kml/>", string(data))
}

func TestRun_Cancelled(t *testing.T) {
	est := &fakeEstimator{fn: func(req estimate.Request) (*estimate.Result, error) {
		return okResult("x"), nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := Run(ctx, est, []Row{{Line: 1, Address: "a"}}, &buf, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
	assert.Zero(t, buf.Len())
}
