// Package orchestrator runs the four monitor lifecycles, folds their latest
// scores into a weighted aggregate and persists one report snapshot per run.
// One monitor crashing never hides sibling results or the aggregate.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/agent"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/store"
)

// Orchestrator owns one lifecycle engine per monitor and the report store.
type Orchestrator struct {
	logger  *zap.Logger
	weights config.WeightsConfig
	store   *store.Store
	engines []*agent.Engine
}

// New wires each monitor into its own engine. The monitor set is fixed for
// the life of the orchestrator; order determines sequential-mode execution
// order.
func New(logger *zap.Logger, weights config.WeightsConfig, st *store.Store, monitors []schemas.Monitor) (*Orchestrator, error) {
	if logger == nil || st == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("cannot initialize orchestrator without monitors")
	}
	o := &Orchestrator{
		logger:  logger.Named("orchestrator"),
		weights: weights,
		store:   st,
	}
	for _, m := range monitors {
		engine, err := agent.NewEngine(logger, m, st)
		if err != nil {
			return nil, fmt.Errorf("failed to build engine for %s: %w", m.Identity().Name, err)
		}
		o.engines = append(o.engines, engine)
	}
	return o, nil
}

// Engines exposes the per-monitor engines, in execution order.
func (o *Orchestrator) Engines() []*agent.Engine { return o.engines }

// RunAll executes every monitor's cycle, sequentially or concurrently,
// aggregates the scores and persists the report. Monitor-level failures are
// folded into the report and a failed snapshot write only logs a warning;
// the caller always gets the in-memory report.
func (o *Orchestrator) RunAll(ctx context.Context, parallel bool) *schemas.AggregateReport {
	mode := schemas.ModeSequential
	if parallel {
		mode = schemas.ModeParallel
	}
	report := &schemas.AggregateReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Mode:      mode,
		Results:   make(map[schemas.MonitorName]schemas.MonitorOutcome, len(o.engines)),
	}
	o.logger.Info("Monitoring run started", zap.String("mode", string(mode)))

	outcomes := make([]schemas.MonitorOutcome, len(o.engines))
	if parallel {
		// Monitors own disjoint files and state, so they share nothing but ctx.
		group, groupCtx := errgroup.WithContext(ctx)
		for i, engine := range o.engines {
			group.Go(func() error {
				outcomes[i] = o.runOne(groupCtx, engine)
				return nil
			})
		}
		_ = group.Wait()
	} else {
		for i, engine := range o.engines {
			outcomes[i] = o.runOne(ctx, engine)
		}
	}

	for i, engine := range o.engines {
		report.Results[engine.Monitor().Identity().Name] = outcomes[i]
	}

	report.Scores = o.aggregate(outcomes)
	report.CompletedAt = time.Now().UTC()
	report.DurationSeconds = report.CompletedAt.Sub(report.StartedAt).Seconds()

	path, err := o.store.WriteReport(report)
	if err != nil {
		o.logger.Warn("Failed to persist aggregate report", zap.Error(err))
	}
	o.logger.Info("Monitoring run finished",
		zap.Float64("overall_score", report.Scores.Overall),
		zap.String("status", string(report.Scores.Status)),
		zap.String("report", path),
	)
	return report
}

// runOne shields the run from any panic that escapes an engine. The engine
// already recovers monitor panics; this guard covers the engine itself.
func (o *Orchestrator) runOne(ctx context.Context, engine *agent.Engine) (outcome schemas.MonitorOutcome) {
	defer func() {
		if r := recover(); r != nil {
			name := engine.Monitor().Identity().Name
			o.logger.Error("Monitor crashed", zap.String("monitor", string(name)), zap.Any("panic", r))
			outcome = schemas.MonitorOutcome{Error: fmt.Sprintf("monitor %s crashed: %v", name, r)}
		}
	}()
	return schemas.MonitorOutcome{Cycle: engine.RunCycle(ctx)}
}

// aggregate pulls each monitor's declared score field out of its analysis.
// A crashed monitor, an aborted analyze phase or a missing field all
// contribute 0.
func (o *Orchestrator) aggregate(outcomes []schemas.MonitorOutcome) schemas.AggregateScores {
	byName := map[schemas.MonitorName]float64{}
	for i, engine := range o.engines {
		identity := engine.Monitor().Identity()
		if cycle := outcomes[i].Cycle; cycle != nil && cycle.Analysis != nil {
			byName[identity.Name] = cycle.Analysis.Score(identity.ScoreField)
		}
	}

	scores := schemas.AggregateScores{
		CodeHealth:   byName[schemas.MonitorCodeHealth],
		Performance:  byName[schemas.MonitorPerformance],
		Security:     byName[schemas.MonitorSecurity],
		Dependencies: byName[schemas.MonitorDependencies],
	}
	scores.Overall = scores.CodeHealth*o.weights.CodeHealth +
		scores.Performance*o.weights.Performance +
		scores.Security*o.weights.Security +
		scores.Dependencies*o.weights.Dependencies
	scores.Status = schemas.TierFor(scores.Overall)
	return scores
}

// LatestReport loads the most recently persisted aggregate snapshot.
func (o *Orchestrator) LatestReport() (*schemas.AggregateReport, error) {
	return o.store.LatestReport()
}
