package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tejas-estimator/internal/artifact"
	"github.com/sells-group/tejas-estimator/internal/estimate"
	"github.com/sells-group/tejas-estimator/internal/model"
)

type stubEstimator struct {
	got estimate.Request
	res *estimate.Result
	err error
}

func (s *stubEstimator) Estimate(_ context.Context, req estimate.Request) (*estimate.Result, error) {
	s.got = req
	return s.res, s.err
}

func TestRunLookup_PrintsRecord(t *testing.T) {
	est := &stubEstimator{res: &estimate.Result{Record: model.EstimateRecord{Owner: "SMITH JOHN", Jurisdiction: "fortbend"}}}

	var buf bytes.Buffer
	err := runLookup(context.Background(), est, estimate.Request{Address: "1 Main St", Artifact: "kml"}, "", &buf)
	require.NoError(t, err)

	assert.Equal(t, "none", est.got.Artifact, "no output dir means no artifact")
	var rec model.EstimateRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "SMITH JOHN", rec.Owner)
}

func TestRunLookup_WritesArtifact(t *testing.T) {
	est := &stubEstimator{res: &estimate.Result{
		Record:   model.EstimateRecord{Owner: "SMITH JOHN"},
		Artifact: &artifact.Artifact{Format: artifact.FormatKML, Filename: "parcel_R1.kml", Data: []byte("<kml/>")},
	}}
	dir := filepath.Join(t.TempDir(), "out")

	var buf bytes.Buffer
	err := runLookup(context.Background(), est, estimate.Request{QuickRefID: "R1"}, dir, &buf)
	require.NoError(t, err)

	assert.Equal(t, "", est.got.Artifact, "format left to the service default")
	data, err := os.ReadFile(filepath.Join(dir, "parcel_R1.kml"))
	require.NoError(t, err)
	assert.Equal(t, "<kml/>", string(data))
}

func TestRunLookup_Error(t *testing.T) {
	est := &stubEstimator{err: eris.Wrap(model.ErrNotFound, "cascade")}

	var buf bytes.Buffer
	err := runLookup(context.Background(), est, estimate.Request{Address: "1 Main St"}, "", &buf)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.Zero(t, buf.Len())
}
