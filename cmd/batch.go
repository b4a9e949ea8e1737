package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tejas-estimator/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Estimate every row of a CSV or XLSX sheet",
	Long:  "Reads county, address and quickrefid columns from a local file or an http(s)/ftp URL and writes one JSON line per row.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		artifactDir, _ := cmd.Flags().GetString("artifact-dir")
		format, _ := cmd.Flags().GetString("format")

		if concurrency > 0 {
			cfg.Batch.Concurrency = concurrency
		}

		env, err := initEstimator(ctx, cfg, "batch", false)
		if err != nil {
			return err
		}
		defer env.Close()

		tmp, err := os.MkdirTemp("", "tejas-batch-*")
		if err != nil {
			return eris.Wrap(err, "batch: temp dir")
		}
		defer func() { _ = os.RemoveAll(tmp) }()

		path, cleanup, err := batch.Fetch(ctx, input, tmp, batch.SourceOptions{
			UserAgent: cfg.Datastore.UserAgent,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		rows, err := batch.ReadRows(path)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		sum, err := batch.Run(ctx, env.Service, rows, w, batch.Options{
			Concurrency: cfg.Batch.Concurrency,
			Artifact:    format,
			ArtifactDir: artifactDir,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%d rows: %d succeeded, %d failed\n", sum.Total, sum.Succeeded, sum.Failed)
		return nil
	},
}

func init() {
	batchCmd.Flags().String("input", "", "CSV/XLSX path or http(s)/ftp URL")
	batchCmd.Flags().String("output", "-", "JSON lines output file (- for stdout)")
	batchCmd.Flags().Int("concurrency", 0, "parallel lookups (default from config)")
	batchCmd.Flags().String("artifact-dir", "", "directory for per-row artifacts; empty skips rendering")
	batchCmd.Flags().String("format", "", "artifact format when --artifact-dir is set (default from config)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
