// Package agent implements the shared monitor lifecycle: one Engine drives
// the analyze, plan, execute, validate and learn phases for any Monitor and
// records every transition through the append-only store. Failures are
// carried as values up to the cycle boundary; RunCycle never panics or
// returns an error, it returns a CycleResult with terminal status success or
// error.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
)

const (
	phaseAnalyze  = "analyze"
	phasePlan     = "plan"
	phaseExecute  = "execute"
	phaseValidate = "validate"
	phaseLearn    = "learn"
)

// Engine runs cycles for exactly one monitor instance.
type Engine struct {
	logger   *zap.Logger
	monitor  schemas.Monitor
	recorder schemas.Recorder
	history  *History
}

// NewEngine wires a monitor to the shared lifecycle.
func NewEngine(logger *zap.Logger, monitor schemas.Monitor, recorder schemas.Recorder) (*Engine, error) {
	if logger == nil || monitor == nil || recorder == nil {
		return nil, fmt.Errorf("cannot initialize engine with nil dependencies")
	}
	identity := monitor.Identity()
	return &Engine{
		logger:   logger.Named("agent").With(zap.String("monitor", string(identity.Name))),
		monitor:  monitor,
		recorder: recorder,
		history:  NewHistory(DefaultHistoryCapacity),
	}, nil
}

// Monitor exposes the wrapped monitor.
func (e *Engine) Monitor() schemas.Monitor { return e.monitor }

// History exposes the monitor-owned bounded analysis window.
func (e *Engine) History() *History { return e.history }

// RunCycle executes one full lifecycle pass. It always returns a terminal
// CycleResult; an analyze or plan failure aborts the cycle with status
// error, a per-plan failure only skips that plan.
func (e *Engine) RunCycle(ctx context.Context) *schemas.CycleResult {
	identity := e.monitor.Identity()
	cycle := &schemas.CycleResult{
		ID:         uuid.New().String(),
		Agent:      identity,
		StartedAt:  time.Now().UTC(),
		Status:     schemas.CycleRunning,
		Executions: []schemas.ExecutionResult{},
	}
	e.logger.Info("Cycle started", zap.String("cycle_id", cycle.ID))

	analysis, err := e.analyzePhase(ctx, cycle)
	if err != nil {
		return e.fail(cycle, phaseAnalyze, err)
	}
	cycle.Analysis = analysis
	e.history.Push(Entry{
		Timestamp: time.Now().UTC(),
		Score:     analysis.Score(identity.ScoreField),
		Degraded:  analysis.Degraded,
	})

	plans, err := e.planPhase(ctx, cycle, analysis)
	if err != nil {
		return e.fail(cycle, phasePlan, err)
	}

	for _, plan := range plans {
		e.runPlan(ctx, cycle, plan)
	}

	cycle.Status = schemas.CycleSuccess
	e.finalize(cycle)
	return cycle
}

func (e *Engine) analyzePhase(ctx context.Context, cycle *schemas.CycleResult) (*schemas.AnalysisResult, error) {
	started := time.Now().UTC()
	analysis, err := func() (a *schemas.AnalysisResult, err error) {
		// A panicking monitor must fail its own cycle, not the process.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("analyze panicked: %v", r)
			}
		}()
		return e.monitor.Analyze(ctx)
	}()
	if err == nil && analysis == nil {
		err = fmt.Errorf("analyze returned no result")
	}

	record := schemas.PhaseRecord{Phase: phaseAnalyze, StartedAt: started, CompletedAt: time.Now().UTC()}
	metrics := map[string]float64{}
	if err != nil {
		record.Status = "error"
		record.Error = err.Error()
	} else {
		record.Status = "completed"
		metrics[cycle.Agent.ScoreField] = analysis.Score(cycle.Agent.ScoreField)
	}
	cycle.Phases = append(cycle.Phases, record)
	e.logActivity(cycle.Agent, phaseAnalyze, record.Status, record.Error, metrics)
	return analysis, err
}

func (e *Engine) planPhase(ctx context.Context, cycle *schemas.CycleResult, analysis *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
	started := time.Now().UTC()
	plans, err := func() (p []schemas.ImprovementPlan, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("plan panicked: %v", r)
			}
		}()
		return e.monitor.Plan(ctx, analysis)
	}()

	record := schemas.PhaseRecord{Phase: phasePlan, StartedAt: started, CompletedAt: time.Now().UTC()}
	if err != nil {
		record.Status = "error"
		record.Error = err.Error()
	} else {
		record.Status = "completed"
	}
	cycle.Phases = append(cycle.Phases, record)
	e.logActivity(cycle.Agent, phasePlan, record.Status, record.Error,
		map[string]float64{"plans": float64(len(plans))})
	return plans, err
}

// runPlan executes one plan and applies the validate/learn rules. A failure
// here never aborts the cycle; the plan is skipped and siblings continue.
func (e *Engine) runPlan(ctx context.Context, cycle *schemas.CycleResult, plan schemas.ImprovementPlan) {
	action := string(plan.Type)
	result, err := func() (r schemas.ExecutionResult, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("execute panicked: %v", rec)
			}
		}()
		return e.monitor.Execute(ctx, plan)
	}()
	if err != nil {
		e.logger.Warn("Plan execution failed; continuing with remaining plans",
			zap.String("plan_type", action), zap.Error(err))
		e.logActivity(cycle.Agent, phaseExecute+":"+action, "error", err.Error(), nil)
		return
	}
	if result.Plan == nil {
		result.Plan = &plan
	}
	if result.Action == "" {
		result.Action = action
	}
	e.logActivity(cycle.Agent, phaseExecute+":"+action, string(result.Status), result.Message, nil)

	if !e.validate(result) {
		e.logActivity(cycle.Agent, phaseValidate+":"+action, "failed",
			fmt.Sprintf("result status %q did not validate", result.Status), nil)
		return
	}
	result.Validated = true

	e.learn(cycle.Agent, result)
	cycle.Executions = append(cycle.Executions, result)
}

// validate applies the default rule: a result is valid iff its status is
// success, partial or logged.
func (e *Engine) validate(result schemas.ExecutionResult) bool {
	switch result.Status {
	case schemas.ExecSuccess, schemas.ExecPartial, schemas.ExecLogged:
		return true
	default:
		return false
	}
}

// learn records a LearnedPattern for fully successful executions only.
func (e *Engine) learn(identity schemas.AgentIdentity, result schemas.ExecutionResult) {
	if result.Status != schemas.ExecSuccess {
		return
	}
	pattern := schemas.LearnedPattern{
		Timestamp: time.Now().UTC(),
		Agent:     identity.Name,
		Action:    result.Action,
		Outcome:   "success",
	}
	if err := e.recorder.AppendPattern(identity, pattern); err != nil {
		e.logger.Warn("Failed to record learned pattern", zap.Error(err))
	}
	e.logActivity(identity, phaseLearn+":"+result.Action, "recorded", "", nil)
}

func (e *Engine) fail(cycle *schemas.CycleResult, phase string, err error) *schemas.CycleResult {
	cycle.Status = schemas.CycleError
	cycle.Error = fmt.Sprintf("%s failed: %v", phase, err)
	e.logger.Error("Cycle aborted", zap.String("phase", phase), zap.Error(err))
	e.finalize(cycle)
	return cycle
}

func (e *Engine) finalize(cycle *schemas.CycleResult) {
	cycle.CompletedAt = time.Now().UTC()
	cycle.DurationSeconds = cycle.CompletedAt.Sub(cycle.StartedAt).Seconds()
	// Forward progress beats a complete audit trail: snapshot failures are
	// warnings, never cycle failures.
	if err := e.recorder.WriteCycleSnapshot(cycle.Agent, cycle); err != nil {
		e.logger.Warn("Failed to persist cycle snapshot", zap.Error(err))
	}
	e.logger.Info("Cycle finished",
		zap.String("cycle_id", cycle.ID),
		zap.String("status", string(cycle.Status)),
		zap.Float64("duration_seconds", cycle.DurationSeconds),
	)
}

func (e *Engine) logActivity(identity schemas.AgentIdentity, action, status, details string, metrics map[string]float64) {
	event := schemas.ActivityEvent{
		Timestamp: time.Now().UTC(),
		Agent:     identity.Name,
		Layer:     identity.Layer,
		Action:    action,
		Status:    status,
		Details:   details,
		Metrics:   metrics,
	}
	if err := e.recorder.AppendActivity(identity, event); err != nil {
		e.logger.Warn("Failed to append activity event", zap.Error(err))
	}
}
