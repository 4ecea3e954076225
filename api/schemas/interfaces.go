package schemas

import "context"

// Monitor is the capability interface every check agent implements. The
// lifecycle engine is written once against this interface and never against
// a concrete monitor.
type Monitor interface {
	// Identity returns the immutable per-monitor record.
	Identity() AgentIdentity

	// Analyze gathers the monitor's signals and computes its score. An error
	// aborts the whole cycle; degraded probes must be folded into the result
	// instead of returned as errors.
	Analyze(ctx context.Context) (*AnalysisResult, error)

	// Plan turns an analysis into zero or more ranked action proposals. It
	// may append an ImprovementSuggestion as a side effect when a
	// monitor-specific threshold is breached.
	Plan(ctx context.Context, analysis *AnalysisResult) ([]ImprovementPlan, error)

	// Execute performs one plan's bounded side effect, or records it without
	// acting. Unrecognized plan types return ExecSkipped, never an error.
	Execute(ctx context.Context, plan ImprovementPlan) (ExecutionResult, error)
}

// Recorder is the append-only persistence contract the lifecycle engine and
// monitors write through. Implementations must never let a write failure
// escalate beyond an error return; callers log and continue.
type Recorder interface {
	AppendActivity(agent AgentIdentity, event ActivityEvent) error
	WriteCycleSnapshot(agent AgentIdentity, cycle *CycleResult) error
	AppendPattern(agent AgentIdentity, pattern LearnedPattern) error
	AppendSuggestion(agent AgentIdentity, suggestion ImprovementSuggestion) error
}
