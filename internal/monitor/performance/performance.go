// Package performance implements the host resource monitor. It samples CPU,
// memory and disk utilization plus the aggregate size of log files, scores
// the sample with tiered penalties and raises alert plans above the
// configured warning thresholds. Alerts are logged, never acted on.
package performance

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/score"
	"github.com/xkilldash9x/vitals-cli/internal/probe"
)

// Monitor samples host resource utilization for the infrastructure layer.
type Monitor struct {
	logger   *zap.Logger
	cfg      config.PerformanceConfig
	recorder schemas.Recorder
	root     string
	identity schemas.AgentIdentity

	// readMetrics is swappable so tests can feed synthetic samples.
	readMetrics func(path string) (probe.Metrics, bool)
}

// New constructs the performance monitor observing the host that contains
// root.
func New(logger *zap.Logger, cfg config.PerformanceConfig, recorder schemas.Recorder, root string) *Monitor {
	return &Monitor{
		logger:      logger.Named("performance"),
		cfg:         cfg,
		recorder:    recorder,
		root:        root,
		readMetrics: probe.ReadMetrics,
		identity: schemas.AgentIdentity{
			Name:            schemas.MonitorPerformance,
			Layer:           "infrastructure",
			IntervalSeconds: cfg.Interval.Seconds(),
			ScoreField:      schemas.ScoreFieldPerformance,
		},
	}
}

// Identity implements schemas.Monitor.
func (m *Monitor) Identity() schemas.AgentIdentity { return m.identity }

// Analyze samples host metrics and sums log file sizes. When the metrics
// probe is unavailable the analysis degrades to a minimal record and the
// penalties are skipped, which leaves the score at 100. That is a known
// blind spot, not a statement of health.
func (m *Monitor) Analyze(ctx context.Context) (*schemas.AnalysisResult, error) {
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{
		"sampled_at": time.Now().UTC().Format(time.RFC3339),
	}}

	logBytes := m.logFootprint()
	analysis.Checks["log_total_bytes"] = float64(logBytes)

	metrics, available := m.readMetrics(m.root)
	analysis.Checks["metrics_available"] = available
	if !available {
		analysis.Degraded = true
		analysis.Checks[schemas.ScoreFieldPerformance] = float64(100)
		return analysis, nil
	}

	analysis.Checks["cpu_percent"] = metrics.CPUPercent
	analysis.Checks["mem_percent"] = metrics.MemPercent
	analysis.Checks["disk_percent"] = metrics.DiskPercent
	analysis.Checks["load_1m"] = metrics.Load1
	analysis.Checks["processes"] = float64(metrics.Processes)
	analysis.Checks[schemas.ScoreFieldPerformance] = ScoreSample(metrics.CPUPercent, metrics.MemPercent, metrics.DiskPercent)
	return analysis, nil
}

// ScoreSample applies the tiered utilization penalties. Penalties are
// independent and additive; the result is floored at 0.
func ScoreSample(cpu, mem, disk float64) float64 {
	s := 100.0
	s -= loadPenalty(cpu)
	s -= loadPenalty(mem)
	switch {
	case disk > 95:
		s -= 20
	case disk > 85:
		s -= 10
	}
	return score.Clamp100(s)
}

func loadPenalty(pct float64) float64 {
	switch {
	case pct > 90:
		return 30
	case pct > 70:
		return 15
	case pct > 50:
		return 5
	default:
		return 0
	}
}

// Plan raises one alert per resource above its warning threshold and a
// cleanup recommendation when the log footprint exceeds its cap.
func (m *Monitor) Plan(ctx context.Context, analysis *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
	var plans []schemas.ImprovementPlan

	if available, _ := analysis.Checks["metrics_available"].(bool); available {
		type threshold struct {
			resource string
			value    float64
			warnAt   float64
			priority int
		}
		for _, t := range []threshold{
			{"cpu", analysis.Num("cpu_percent"), m.cfg.CPUWarnPercent, 9},
			{"memory", analysis.Num("mem_percent"), m.cfg.MemWarnPercent, 9},
			{"disk", analysis.Num("disk_percent"), m.cfg.DiskWarnPercent, 8},
		} {
			if t.value > t.warnAt {
				plans = append(plans, schemas.ImprovementPlan{
					ID:          uuid.New().String(),
					Type:        schemas.PlanResourceAlert,
					Priority:    t.priority,
					Description: fmt.Sprintf("%s utilization %.1f%% exceeds warning threshold %.0f%%", t.resource, t.value, t.warnAt),
					Payload: map[string]interface{}{
						"resource":  t.resource,
						"percent":   t.value,
						"threshold": t.warnAt,
					},
				})
			}
		}
	}

	if logBytes := analysis.Num("log_total_bytes"); int64(logBytes) > m.cfg.LogMaxBytes {
		plans = append(plans, schemas.ImprovementPlan{
			ID:          uuid.New().String(),
			Type:        schemas.PlanLogCleanup,
			Priority:    5,
			Description: fmt.Sprintf("log files total %.1f MB, above the %.1f MB cap", logBytes/(1024*1024), float64(m.cfg.LogMaxBytes)/(1024*1024)),
			Payload:     map[string]interface{}{"log_total_bytes": logBytes},
		})
	}

	if perf := analysis.Score(m.identity.ScoreField); perf < m.cfg.SuggestionScore {
		suggestion := schemas.ImprovementSuggestion{
			Category:        "resource_pressure",
			Priority:        8,
			Title:           "Host resource pressure",
			Description:     fmt.Sprintf("performance_score %.1f is below %.0f; inspect the flagged resources", perf, m.cfg.SuggestionScore),
			EstimatedImpact: "high",
			Analysis:        analysis.Checks,
			CreatedAt:       time.Now().UTC(),
			Status:          schemas.SuggestionStatusPending,
			Agent:           m.identity.Name,
			Layer:           m.identity.Layer,
		}
		if err := m.recorder.AppendSuggestion(m.identity, suggestion); err != nil {
			m.logger.Warn("Failed to record suggestion", zap.Error(err))
		}
	}

	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Priority > plans[j].Priority })
	return plans, nil
}

// Execute never mutates the host. Alerts and cleanup recommendations are
// surfaced at elevated severity and recorded as logged.
func (m *Monitor) Execute(ctx context.Context, plan schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
	switch plan.Type {
	case schemas.PlanResourceAlert:
		m.logger.Warn("Resource alert", zap.String("description", plan.Description))
		return schemas.ExecutionResult{
			Status:  schemas.ExecLogged,
			Message: "alert raised; no automatic action taken",
			Action:  string(plan.Type),
			Plan:    &plan,
		}, nil
	case schemas.PlanLogCleanup:
		// Deliberately no deletion. Cleanup stays a human decision.
		m.logger.Warn("Log cleanup recommended", zap.String("description", plan.Description))
		return schemas.ExecutionResult{
			Status:  schemas.ExecLogged,
			Message: "cleanup recommended; files were not touched",
			Action:  string(plan.Type),
			Plan:    &plan,
		}, nil
	default:
		return schemas.ExecutionResult{
			Status:  schemas.ExecSkipped,
			Message: fmt.Sprintf("unrecognized plan type %q", plan.Type),
			Action:  string(plan.Type),
			Plan:    &plan,
		}, nil
	}
}

// logFootprint sums the size of *.log files under the target tree.
func (m *Monitor) logFootprint() int64 {
	var total int64
	_ = filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".log") {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
