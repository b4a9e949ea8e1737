package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
)

var jurisdictionsCmd = &cobra.Command{
	Use:   "jurisdictions",
	Short: "List supported counties",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cfg.Jurisdictions)
		if err != nil {
			return err
		}
		formatJurisdictions(cmd.OutOrStdout(), reg.All(), cfg.Jurisdictions.Default)
		return nil
	},
}

func formatJurisdictions(w io.Writer, js []jurisdiction.Jurisdiction, def string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tENDPOINT")
	for _, j := range js {
		key := j.Key
		if key == def {
			key += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, j.Name, j.Endpoint)
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(jurisdictionsCmd)
}
