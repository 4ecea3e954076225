package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/agent"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/codehealth"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/deps"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/performance"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/security"
	"github.com/xkilldash9x/vitals-cli/internal/observability"
	"github.com/xkilldash9x/vitals-cli/internal/orchestrator"
	"github.com/xkilldash9x/vitals-cli/internal/probe"
	"github.com/xkilldash9x/vitals-cli/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newMonitorCmd creates the `monitor` command: one orchestrator pass by
// default, a per-monitor interval loop with --watch.
func newMonitorCmd(v *viper.Viper) *cobra.Command {
	var (
		parallel bool
		watch    bool
		output   string
	)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the four health monitors over the target codebase",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, ok := config.FromContext(ctx)
			if !ok {
				return fmt.Errorf("configuration missing from command context")
			}

			orch, err := buildOrchestrator(cfg, logger)
			if err != nil {
				return err
			}

			if watch {
				return runWatch(cmd, orch, cfg)
			}

			report := orch.RunAll(ctx, parallel)
			renderReport(cmd, report, output)
			// Cycle-level errors and snapshot-write failures are in the report
			// and the log, not the exit code. Only setup failures abort the
			// process.
			return nil
		},
	}

	monitorCmd.Flags().BoolVar(&parallel, "parallel", false, "run the monitors concurrently")
	monitorCmd.Flags().BoolVar(&watch, "watch", false, "keep running, each monitor on its own interval")
	monitorCmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return monitorCmd
}

// renderReport writes the report in the requested format. Unknown formats
// fall back to text.
func renderReport(cmd *cobra.Command, report *schemas.AggregateReport, format string) {
	if format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			observability.GetLogger().Warn("Failed to encode report", zap.Error(err))
			printReport(cmd, report)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return
	}
	printReport(cmd, report)
}

// buildOrchestrator assembles the store, the probe runner and the four
// monitors. Failures here are the only unrecoverable ones in the CLI.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	st, err := store.New(logger, cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	runner := probe.NewRunner(logger, cfg.Target.Root, cfg.Probes.Timeout, cfg.Probes.RatePerSecond)

	monitors := []schemas.Monitor{
		codehealth.New(logger, cfg.Monitors.CodeHealth, runner, st, cfg.Target.Root),
		performance.New(logger, cfg.Monitors.Performance, st, cfg.Target.Root),
		security.New(logger, cfg.Monitors.Security, runner, st, cfg.Target.Root),
		deps.New(logger, cfg.Monitors.Dependencies, runner, st, cfg.Target.Root),
	}
	return orchestrator.New(logger, cfg.Scoring.Weights, st, monitors)
}

// runWatch drives each monitor on its own interval until the context is
// cancelled. No aggregate report is produced in watch mode; cycle snapshots
// accumulate per monitor.
func runWatch(cmd *cobra.Command, orch *orchestrator.Orchestrator, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	intervals := map[schemas.MonitorName]float64{}
	for _, engine := range orch.Engines() {
		identity := engine.Monitor().Identity()
		intervals[identity.Name] = identity.IntervalSeconds
	}
	logger.Info("Watch mode started", zap.Any("interval_seconds", intervals))

	var wg sync.WaitGroup
	for _, engine := range orch.Engines() {
		identity := engine.Monitor().Identity()
		interval := intervalFor(cfg, identity.Name)
		runner := agent.NewRunner(logger, engine, interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Start(ctx)
		}()
	}
	wg.Wait()
	logger.Info("Watch mode stopped")
	return nil
}

func intervalFor(cfg *config.Config, name schemas.MonitorName) time.Duration {
	switch name {
	case schemas.MonitorCodeHealth:
		return cfg.Monitors.CodeHealth.Interval
	case schemas.MonitorPerformance:
		return cfg.Monitors.Performance.Interval
	case schemas.MonitorSecurity:
		return cfg.Monitors.Security.Interval
	default:
		return cfg.Monitors.Dependencies.Interval
	}
}

// printReport renders the component scores, the overall score and the status
// tier for humans.
func printReport(cmd *cobra.Command, report *schemas.AggregateReport) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)

	fmt.Fprintln(out)
	bold.Fprintln(out, "Codebase vitals")
	fmt.Fprintf(out, "  %-14s %s\n", "code health", scoreString(report.Scores.CodeHealth))
	fmt.Fprintf(out, "  %-14s %s\n", "performance", scoreString(report.Scores.Performance))
	fmt.Fprintf(out, "  %-14s %s\n", "security", scoreString(report.Scores.Security))
	fmt.Fprintf(out, "  %-14s %s\n", "dependencies", scoreString(report.Scores.Dependencies))
	fmt.Fprintln(out)
	bold.Fprintf(out, "  %-14s %s  [%s]\n", "overall", scoreString(report.Scores.Overall), statusString(report.Scores.Status))
	fmt.Fprintf(out, "  %-14s %.2fs (%s)\n", "duration", report.DurationSeconds, report.Mode)

	for name, outcome := range report.Results {
		if outcome.Error != "" {
			color.New(color.FgRed).Fprintf(out, "  %s failed: %s\n", name, outcome.Error)
		} else if outcome.Cycle != nil && outcome.Cycle.Status == schemas.CycleError {
			color.New(color.FgYellow).Fprintf(out, "  %s cycle error: %s\n", name, outcome.Cycle.Error)
		}
	}
	fmt.Fprintln(out)
}

func scoreString(score float64) string {
	switch {
	case score >= 80:
		return color.GreenString("%5.1f", score)
	case score >= 60:
		return color.YellowString("%5.1f", score)
	default:
		return color.RedString("%5.1f", score)
	}
}

func statusString(status schemas.AggregateStatus) string {
	switch status {
	case schemas.StatusHealthy:
		return color.GreenString(string(status))
	case schemas.StatusWarning:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}
