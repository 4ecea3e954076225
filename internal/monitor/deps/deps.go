// Package deps implements the dependency freshness monitor. It parses the
// target's module requirement file, asks the toolchain which requirements
// have newer versions, and classifies each available update as safe or major.
// Updates are only ever recommended, never applied.
package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/score"
	"github.com/xkilldash9x/vitals-cli/internal/probe"
)

// Monitor tracks how far the target's dependencies lag behind upstream.
type Monitor struct {
	logger   *zap.Logger
	cfg      config.DependenciesConfig
	runner   *probe.Runner
	recorder schemas.Recorder
	root     string
	identity schemas.AgentIdentity
}

// New constructs the dependency monitor for the module rooted at root.
func New(logger *zap.Logger, cfg config.DependenciesConfig, runner *probe.Runner, recorder schemas.Recorder, root string) *Monitor {
	return &Monitor{
		logger:   logger.Named("deps"),
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		root:     root,
		identity: schemas.AgentIdentity{
			Name:            schemas.MonitorDependencies,
			Layer:           "application",
			IntervalSeconds: cfg.Interval.Seconds(),
			ScoreField:      schemas.ScoreFieldFreshness,
		},
	}
}

// Identity implements schemas.Monitor.
func (m *Monitor) Identity() schemas.AgentIdentity { return m.identity }

// Analyze combines the declared requirements with the outdated probe and
// scores freshness as 100 - outdated/total*100. When the probe is
// unavailable the declared count still lands in the analysis and the score
// reflects zero known-outdated packages.
func (m *Monitor) Analyze(ctx context.Context) (*schemas.AnalysisResult, error) {
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{}}

	declared := m.declaredRequirements()
	analysis.Checks["declared_direct"] = float64(declared)

	updates, total, ok := m.outdatedFindings(ctx, analysis)
	if !ok {
		analysis.Degraded = true
		analysis.Checks["total_packages"] = float64(declared)
		analysis.Checks["outdated"] = float64(0)
		analysis.Checks[schemas.ScoreFieldFreshness] = float64(100)
		return analysis, nil
	}

	safe, major := 0, 0
	for _, u := range updates {
		if u.Safe {
			safe++
		} else {
			major++
		}
	}

	denominator := float64(total)
	if denominator < 1 {
		denominator = 1
	}
	analysis.Checks["total_packages"] = float64(total)
	analysis.Checks["outdated"] = float64(len(updates))
	analysis.Checks["safe_updates"] = float64(safe)
	analysis.Checks["major_updates"] = float64(major)
	analysis.Checks["updates"] = updates
	analysis.Checks[schemas.ScoreFieldFreshness] = score.Clamp100(100 - float64(len(updates))/denominator*100)
	return analysis, nil
}

// Plan bundles available updates: safe ones in a priority-4 plan, major ones
// in a priority-3 plan that requires approval. Each bundle caps at the
// configured size. A suggestion is written when the outdated count exceeds
// its threshold.
func (m *Monitor) Plan(ctx context.Context, analysis *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
	var plans []schemas.ImprovementPlan

	updates, _ := analysis.Checks["updates"].([]Update)
	var safe, major []Update
	for _, u := range updates {
		if u.Safe {
			safe = append(safe, u)
		} else {
			major = append(major, u)
		}
	}

	if len(safe) > 0 {
		bundle := capBundle(safe, m.cfg.MaxBundle)
		plans = append(plans, schemas.ImprovementPlan{
			ID:          uuid.New().String(),
			Type:        schemas.PlanSafeUpdates,
			Priority:    4,
			Description: fmt.Sprintf("%d safe update(s) available", len(bundle)),
			Payload:     map[string]interface{}{"updates": bundle},
		})
	}
	if len(major) > 0 {
		bundle := capBundle(major, m.cfg.MaxBundle)
		plans = append(plans, schemas.ImprovementPlan{
			ID:               uuid.New().String(),
			Type:             schemas.PlanMajorUpdates,
			Priority:         3,
			Description:      fmt.Sprintf("%d major update(s) available", len(bundle)),
			RequiresApproval: true,
			Payload:          map[string]interface{}{"updates": bundle},
		})
	}

	if outdated := analysis.Num("outdated"); int(outdated) > m.cfg.SuggestionOutdated {
		suggestion := schemas.ImprovementSuggestion{
			Category:        "dependency_drift",
			Priority:        5,
			Title:           "Dependencies are drifting",
			Description:     fmt.Sprintf("%d package(s) outdated, above the %d threshold; schedule an upgrade pass", int(outdated), m.cfg.SuggestionOutdated),
			EstimatedImpact: "medium",
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

// Execute records update recommendations. Dependencies are never upgraded by
// this system; major bundles additionally carry the approval flag so no
// downstream consumer mistakes them for auto-applicable work.
func (m *Monitor) Execute(ctx context.Context, plan schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
	switch plan.Type {
	case schemas.PlanSafeUpdates, schemas.PlanMajorUpdates:
		m.logger.Info("Update recommendation", zap.String("description", plan.Description), zap.Bool("requires_approval", plan.RequiresApproval))
		return schemas.ExecutionResult{
			Status:  schemas.ExecLogged,
			Message: "update bundle recorded; nothing was upgraded",
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

// declaredRequirements counts direct requirements in the target's go.mod.
// A missing or unparsable file reads as zero.
func (m *Monitor) declaredRequirements() int {
	path := filepath.Join(m.root, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	file, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		m.logger.Debug("Failed to parse requirement file", zap.Error(err))
		return 0
	}
	count := 0
	for _, req := range file.Require {
		if !req.Indirect {
			count++
		}
	}
	return count
}

func (m *Monitor) outdatedFindings(ctx context.Context, analysis *schemas.AnalysisResult) ([]Update, int, bool) {
	result := m.runner.Run(ctx, m.cfg.OutdatedCommand)
	if result.Err != nil {
		analysis.Checks["outdated_error"] = string(result.Err.Kind)
		return nil, 0, false
	}
	updates, total, err := ParseOutdated(result.Output)
	if err != nil {
		analysis.Checks["outdated_error"] = string(probe.ErrParse)
		return nil, 0, false
	}
	return updates, total, true
}

func capBundle(updates []Update, max int) []Update {
	if len(updates) <= max {
		return updates
	}
	return updates[:max]
}
