package batch

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tejas-estimator/internal/estimate"
	"github.com/sells-group/tejas-estimator/internal/model"
)

// Estimator resolves a single request.
type Estimator interface {
	Estimate(ctx context.Context, req estimate.Request) (*estimate.Result, error)
}

// Options configure a batch run.
type Options struct {
	Concurrency int
	// Artifact is the format requested for every row; "none" skips rendering.
	Artifact string
	// ArtifactDir receives rendered files when set.
	ArtifactDir string
}

// Outcome is one output line.
type Outcome struct {
	Row
	Record       *model.EstimateRecord `json:"record,omitempty"`
	ArtifactPath string                `json:"artifact_path,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// Summary counts the results of a run.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Run estimates every row with bounded concurrency and writes one JSON line
// per row to w, in input order. A failing row is recorded in its line and
// never stops the batch; only cancellation or a write error does.
func Run(ctx context.Context, est Estimator, rows []Row, w io.Writer, opts Options) (Summary, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Artifact == "" {
		opts.Artifact = "none"
	}
	if opts.ArtifactDir != "" {
		if err := os.MkdirAll(opts.ArtifactDir, 0o755); err != nil {
			return Summary{}, eris.Wrap(err, "batch: create artifact dir")
		}
	}

	outcomes := make([]Outcome, len(rows))
	var failed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			out := runRow(gCtx, est, row, opts)
			if out.Error != "" {
				failed.Add(1)
				zap.L().Warn("batch: row failed",
					zap.Int("line", row.Line),
					zap.String("error", out.Error),
				)
			}
			outcomes[i] = out
			return nil // don't abort batch on individual failure
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, eris.Wrap(err, "batch: run")
	}

	enc := json.NewEncoder(w)
	for _, out := range outcomes {
		if err := enc.Encode(out); err != nil {
			return Summary{}, eris.Wrap(err, "batch: write result")
		}
	}

	sum := Summary{Total: len(rows), Failed: int(failed.Load())}
	sum.Succeeded = sum.Total - sum.Failed
	zap.L().Info("batch: complete",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func runRow(ctx context.Context, est Estimator, row Row, opts Options) Outcome {
	out := Outcome{Row: row}
	format := opts.Artifact
	if opts.ArtifactDir == "" {
		format = "none"
	}

	res, err := est.Estimate(ctx, estimate.Request{
		Jurisdiction: row.County,
		Address:      row.Address,
		QuickRefID:   row.QuickRefID,
		Artifact:     format,
	})
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Record = &res.Record

	if res.Artifact != nil && opts.ArtifactDir != "" {
		p := filepath.Join(opts.ArtifactDir, strconv.Itoa(row.Line)+"_"+res.Artifact.Filename)
		if err := os.WriteFile(p, res.Artifact.Data, 0o644); err != nil {
			out.Error = eris.Wrap(err, "batch: write artifact").Error()
			return out
		}
		out.ArtifactPath = p
	}
	return out
}
