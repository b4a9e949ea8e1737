package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/batch"
	"github.com/sells-group/tejas-estimator/internal/estimate"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Estimate a single parcel",
	Long:  "Resolves one address or quick reference ID and prints the estimate record as JSON. With --artifact-out the KML or shapefile outline is written to that directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		county, _ := cmd.Flags().GetString("county")
		addr, _ := cmd.Flags().GetString("address")
		qref, _ := cmd.Flags().GetString("quickrefid")
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("artifact-out")

		env, err := initEstimator(ctx, cfg, "lookup", false)
		if err != nil {
			return err
		}
		defer env.Close()

		return runLookup(ctx, env.Service, estimate.Request{
			Jurisdiction: county,
			Address:      addr,
			QuickRefID:   qref,
			Artifact:     format,
		}, out, cmd.OutOrStdout())
	},
}

// runLookup estimates req and prints the record to w. The artifact is only
// rendered when artifactOut names a directory.
func runLookup(ctx context.Context, est batch.Estimator, req estimate.Request, artifactOut string, w io.Writer) error {
	if artifactOut == "" {
		req.Artifact = "none"
	}

	res, err := est.Estimate(ctx, req)
	if err != nil {
		return eris.Wrap(err, "lookup")
	}

	if res.Artifact != nil {
		if err := os.MkdirAll(artifactOut, 0o755); err != nil {
			return eris.Wrap(err, "lookup: create artifact dir")
		}
		p := filepath.Join(artifactOut, res.Artifact.Filename)
		if err := os.WriteFile(p, res.Artifact.Data, 0o644); err != nil {
			return eris.Wrap(err, "lookup: write artifact")
		}
		zap.L().Info("artifact written", zap.String("path", p), zap.Int("bytes", len(res.Artifact.Data)))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(res.Record), "lookup: write record")
}

func init() {
	lookupCmd.Flags().String("county", "", "jurisdiction key (default from config)")
	lookupCmd.Flags().String("address", "", "street address, e.g. \"1234 Oak Grove Rd\"")
	lookupCmd.Flags().String("quickrefid", "", "appraisal-district quick reference ID")
	lookupCmd.Flags().String("format", "", "artifact format: kml, shapefile or none (default from config)")
	lookupCmd.Flags().String("artifact-out", "", "directory to write the artifact to")
	rootCmd.AddCommand(lookupCmd)
}
