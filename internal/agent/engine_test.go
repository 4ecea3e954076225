package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
)

// fakeMonitor scripts each phase so every engine path can be exercised.
type fakeMonitor struct {
	identity  schemas.AgentIdentity
	analyzeFn func(ctx context.Context) (*schemas.AnalysisResult, error)
	planFn    func(ctx context.Context, a *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error)
	executeFn func(ctx context.Context, p schemas.ImprovementPlan) (schemas.ExecutionResult, error)
}

func (f *fakeMonitor) Identity() schemas.AgentIdentity { return f.identity }

func (f *fakeMonitor) Analyze(ctx context.Context) (*schemas.AnalysisResult, error) {
	if f.analyzeFn != nil {
		return f.analyzeFn(ctx)
	}
	return &schemas.AnalysisResult{Checks: map[string]interface{}{f.identity.ScoreField: 90.0}}, nil
}

func (f *fakeMonitor) Plan(ctx context.Context, a *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
	if f.planFn != nil {
		return f.planFn(ctx, a)
	}
	return nil, nil
}

func (f *fakeMonitor) Execute(ctx context.Context, p schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
	if f.executeFn != nil {
		return f.executeFn(ctx, p)
	}
	return schemas.ExecutionResult{Status: schemas.ExecSuccess, Action: string(p.Type)}, nil
}

// memoryRecorder collects records in memory for assertions.
type memoryRecorder struct {
	mu          sync.Mutex
	activities  []schemas.ActivityEvent
	snapshots   []*schemas.CycleResult
	patterns    []schemas.LearnedPattern
	suggestions []schemas.ImprovementSuggestion
	failWrites  bool
}

func (r *memoryRecorder) AppendActivity(_ schemas.AgentIdentity, e schemas.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("disk full")
	}
	r.activities = append(r.activities, e)
	return nil
}

func (r *memoryRecorder) WriteCycleSnapshot(_ schemas.AgentIdentity, c *schemas.CycleResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("disk full")
	}
	r.snapshots = append(r.snapshots, c)
	return nil
}

func (r *memoryRecorder) AppendPattern(_ schemas.AgentIdentity, p schemas.LearnedPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("disk full")
	}
	r.patterns = append(r.patterns, p)
	return nil
}

func (r *memoryRecorder) AppendSuggestion(_ schemas.AgentIdentity, s schemas.ImprovementSuggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("disk full")
	}
	r.suggestions = append(r.suggestions, s)
	return nil
}

func (r *memoryRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a.Action)
	}
	return out
}

var fakeIdentity = schemas.AgentIdentity{
	Name:       schemas.MonitorCodeHealth,
	Layer:      "application",
	ScoreField: schemas.ScoreFieldHealth,
}

func newTestEngine(t *testing.T, monitor schemas.Monitor, recorder schemas.Recorder) *Engine {
	t.Helper()
	engine, err := NewEngine(zaptest.NewLogger(t), monitor, recorder)
	require.NoError(t, err)
	return engine
}

func TestNewEngineRejectsNilDependencies(t *testing.T) {
	_, err := NewEngine(nil, &fakeMonitor{identity: fakeIdentity}, &memoryRecorder{})
	assert.Error(t, err)
	_, err = NewEngine(zaptest.NewLogger(t), nil, &memoryRecorder{})
	assert.Error(t, err)
}

func TestRunCycleSuccess(t *testing.T) {
	recorder := &memoryRecorder{}
	monitor := &fakeMonitor{
		identity: fakeIdentity,
		planFn: func(ctx context.Context, a *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
			return []schemas.ImprovementPlan{{ID: "p1", Type: schemas.PlanLintAutofix, Priority: 7}}, nil
		},
	}
	engine := newTestEngine(t, monitor, recorder)

	cycle := engine.RunCycle(t.Context())
	require.NotNil(t, cycle)

	assert.Equal(t, schemas.CycleSuccess, cycle.Status)
	assert.NotEmpty(t, cycle.ID)
	assert.Equal(t, fakeIdentity, cycle.Agent)
	require.NotNil(t, cycle.Analysis)
	assert.Equal(t, 90.0, cycle.Analysis.Score(fakeIdentity.ScoreField))
	require.Len(t, cycle.Executions, 1)
	assert.True(t, cycle.Executions[0].Validated)
	assert.GreaterOrEqual(t, cycle.DurationSeconds, 0.0)

	// analyze and plan phases recorded in order.
	require.Len(t, cycle.Phases, 2)
	assert.Equal(t, "analyze", cycle.Phases[0].Phase)
	assert.Equal(t, "plan", cycle.Phases[1].Phase)

	// success executions produce a learned pattern and a snapshot.
	require.Len(t, recorder.patterns, 1)
	assert.Equal(t, "lint_autofix", recorder.patterns[0].Action)
	require.Len(t, recorder.snapshots, 1)
	assert.Contains(t, recorder.actions(), "learn:lint_autofix")
}

func TestRunCycleAnalyzeErrorAbortsCycle(t *testing.T) {
	recorder := &memoryRecorder{}
	monitor := &fakeMonitor{
		identity: fakeIdentity,
		analyzeFn: func(ctx context.Context) (*schemas.AnalysisResult, error) {
			return nil, errors.New("probe exploded")
		},
	}
	engine := newTestEngine(t, monitor, recorder)

	cycle := engine.RunCycle(t.Context())
	assert.Equal(t, schemas.CycleError, cycle.Status)
	assert.Contains(t, cycle.Error, "analyze failed")
	assert.Contains(t, cycle.Error, "probe exploded")
	assert.Empty(t, cycle.Executions)
	// The failed cycle is still snapshotted.
	assert.Len(t, recorder.snapshots, 1)
}

func TestRunCycleAnalyzePanicIsRecovered(t *testing.T) {
	monitor := &fakeMonitor{
		identity: fakeIdentity,
		analyzeFn: func(ctx context.Context) (*schemas.AnalysisResult, error) {
			panic("boom")
		},
	}
	engine := newTestEngine(t, monitor, &memoryRecorder{})

	cycle := engine.RunCycle(t.Context())
	assert.Equal(t, schemas.CycleError, cycle.Status)
	assert.Contains(t, cycle.Error, "panicked")
}

func TestRunCyclePlanErrorAbortsCycle(t *testing.T) {
	monitor := &fakeMonitor{
		identity: fakeIdentity,
		planFn: func(ctx context.Context, a *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
			return nil, errors.New("planning broke")
		},
	}
	engine := newTestEngine(t, monitor, &memoryRecorder{})

	cycle := engine.RunCycle(t.Context())
	assert.Equal(t, schemas.CycleError, cycle.Status)
	assert.Contains(t, cycle.Error, "plan failed")
}

func TestRunCycleExecuteFailureSkipsOnlyThatPlan(t *testing.T) {
	recorder := &memoryRecorder{}
	monitor := &fakeMonitor{
		identity: fakeIdentity,
		planFn: func(ctx context.Context, a *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
			return []schemas.ImprovementPlan{
				{ID: "bad", Type: "exploding"},
				{ID: "good", Type: schemas.PlanFormat},
			}, nil
		},
		executeFn: func(ctx context.Context, p schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
			if p.ID == "bad" {
				return schemas.ExecutionResult{}, errors.New("tool crashed")
			}
			return schemas.ExecutionResult{Status: schemas.ExecLogged, Action: string(p.Type)}, nil
		},
	}
	engine := newTestEngine(t, monitor, recorder)

	cycle := engine.RunCycle(t.Context())
	assert.Equal(t, schemas.CycleSuccess, cycle.Status)
	require.Len(t, cycle.Executions, 1)
	assert.Equal(t, "format", cycle.Executions[0].Action)
	// Logged executions validate but never produce learned patterns.
	assert.True(t, cycle.Executions[0].Validated)
	assert.Empty(t, recorder.patterns)
}

func TestRunCycleInvalidStatusIsDropped(t *testing.T) {
	monitor := &fakeMonitor{
		identity: fakeIdentity,
		planFn: func(ctx context.Context, a *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
			return []schemas.ImprovementPlan{{ID: "p1", Type: schemas.PlanFormat}}, nil
		},
		executeFn: func(ctx context.Context, p schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
			return schemas.ExecutionResult{Status: schemas.ExecError, Action: string(p.Type)}, nil
		},
	}
	recorder := &memoryRecorder{}
	engine := newTestEngine(t, monitor, recorder)

	cycle := engine.RunCycle(t.Context())
	assert.Equal(t, schemas.CycleSuccess, cycle.Status)
	assert.Empty(t, cycle.Executions)
	assert.Contains(t, recorder.actions(), "validate:format")
}

func TestRunCyclePersistenceFailureIsNotFatal(t *testing.T) {
	recorder := &memoryRecorder{failWrites: true}
	engine := newTestEngine(t, &fakeMonitor{identity: fakeIdentity}, recorder)

	cycle := engine.RunCycle(t.Context())
	assert.Equal(t, schemas.CycleSuccess, cycle.Status)
}

func TestRunCyclePushesHistory(t *testing.T) {
	engine := newTestEngine(t, &fakeMonitor{identity: fakeIdentity}, &memoryRecorder{})

	engine.RunCycle(t.Context())
	engine.RunCycle(t.Context())

	entries := engine.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 90.0, entries[0].Score)
	assert.Equal(t, entries[0].Score, entries[1].Score)
}
