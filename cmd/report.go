package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/observability"
	"github.com/xkilldash9x/vitals-cli/internal/store"
)

// newReportCmd creates the `report` command: print the most recently
// persisted aggregate snapshot without running any monitor.
func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the latest persisted monitoring report",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, ok := config.FromContext(cmd.Context())
			if !ok {
				return fmt.Errorf("configuration missing from command context")
			}
			st, err := store.New(logger, cfg.Storage.BaseDir)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}

			report, err := st.LatestReport()
			if err != nil {
				return fmt.Errorf("no report available: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report %s from %s\n", report.ID, report.StartedAt.Format("2006-01-02 15:04:05 MST"))
			printReport(cmd, report)
			return nil
		},
	}
}
