// Package schemas defines the shared data model for the monitoring pipeline:
// agent identities, cycle results, improvement plans, execution outcomes and
// the aggregate report persisted after every orchestrator run.
package schemas

import (
	"time"
)

// MonitorName identifies one of the four check agents.
type MonitorName string

const (
	MonitorCodeHealth   MonitorName = "code_health"
	MonitorPerformance  MonitorName = "performance"
	MonitorSecurity     MonitorName = "security"
	MonitorDependencies MonitorName = "dependencies"
)

// Score field keys used inside AnalysisResult.Checks. The orchestrator reads
// the field declared by each monitor's identity; a missing field counts as 0.
const (
	ScoreFieldHealth      = "health_score"
	ScoreFieldPerformance = "performance_score"
	ScoreFieldSecurity    = "security_score"
	ScoreFieldFreshness   = "freshness_score"
)

// AgentIdentity is the immutable per-monitor record created at construction.
type AgentIdentity struct {
	Name            MonitorName `json:"name"`
	Layer           string      `json:"layer"`
	IntervalSeconds float64     `json:"interval_seconds"`
	// ScoreField names the key inside AnalysisResult.Checks that carries this
	// monitor's 0-100 score.
	ScoreField string `json:"score_field"`
}

// AnalysisResult is produced fresh by every analyze phase. It is never
// persisted on its own; it is embedded in the CycleResult snapshot.
type AnalysisResult struct {
	Checks map[string]interface{} `json:"checks"`
	// Degraded marks analyses computed without one or more probes (tool
	// missing or timed out). The score in that case reflects only the
	// signals that were available.
	Degraded bool `json:"degraded,omitempty"`
}

// Score returns the value under the given score field, or 0 when the field
// is absent or not numeric.
func (a *AnalysisResult) Score(field string) float64 {
	return a.Num(field)
}

// Num reads a numeric check value, tolerating the int/float64 ambiguity
// introduced by JSON round-trips. Missing or non-numeric values read as 0.
func (a *AnalysisResult) Num(key string) float64 {
	if a == nil || a.Checks == nil {
		return 0
	}
	switch v := a.Checks[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// PlanType tags the remediation action a monitor proposes.
type PlanType string

const (
	PlanLintAutofix   PlanType = "lint_autofix"
	PlanFormat        PlanType = "format"
	PlanResourceAlert PlanType = "resource_alert"
	PlanLogCleanup    PlanType = "log_cleanup"
	PlanVulnAlert     PlanType = "vulnerability_alert"
	PlanSecretAlert   PlanType = "secret_alert"
	PlanSafeUpdates   PlanType = "safe_updates"
	PlanMajorUpdates  PlanType = "major_updates"
)

// ImprovementPlan is a typed, ranked action proposal. Plans are consumed once
// by the execute phase of the cycle that produced them and never reused.
type ImprovementPlan struct {
	ID               string                 `json:"id"`
	Type             PlanType               `json:"type"`
	Priority         int                    `json:"priority"`
	Description      string                 `json:"description"`
	RequiresApproval bool                   `json:"requires_approval"`
	Payload          map[string]interface{} `json:"payload,omitempty"`
}

// ExecutionStatus classifies the outcome of executing one plan.
type ExecutionStatus string

const (
	ExecSuccess ExecutionStatus = "success"
	ExecPartial ExecutionStatus = "partial"
	ExecError   ExecutionStatus = "error"
	ExecSkipped ExecutionStatus = "skipped"
	// ExecLogged means the plan was recorded for a human but no mutating
	// action was taken. Alert and update-bundle plans always end here.
	ExecLogged ExecutionStatus = "logged"
)

// ExecutionResult is produced by execute, checked by validate and folded
// into the cycle's execution list when valid.
type ExecutionResult struct {
	Status    ExecutionStatus  `json:"status"`
	Message   string           `json:"message"`
	Action    string           `json:"action"`
	Output    string           `json:"output,omitempty"`
	Plan      *ImprovementPlan `json:"plan,omitempty"`
	Validated bool             `json:"validated"`
}

// CycleStatus tracks the lifecycle state of one run_cycle invocation.
// Success and error are terminal.
type CycleStatus string

const (
	CycleRunning CycleStatus = "running"
	CycleSuccess CycleStatus = "success"
	CycleError   CycleStatus = "error"
)

// PhaseRecord captures one phase transition inside a cycle.
type PhaseRecord struct {
	Phase       string    `json:"phase"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Error       string    `json:"error,omitempty"`
}

// CycleResult is the unit written to the cycle snapshot file. Exactly one
// exists per monitor per run_cycle invocation.
type CycleResult struct {
	ID              string            `json:"id"`
	Agent           AgentIdentity     `json:"agent"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     time.Time         `json:"completed_at"`
	DurationSeconds float64           `json:"duration_seconds"`
	Status          CycleStatus       `json:"status"`
	Analysis        *AnalysisResult   `json:"analysis,omitempty"`
	Phases          []PhaseRecord     `json:"phases"`
	Executions      []ExecutionResult `json:"executions"`
	Error           string            `json:"error,omitempty"`
}

// ActivityEvent is one line of the date-stamped activity log.
type ActivityEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Agent     MonitorName        `json:"agent"`
	Layer     string             `json:"layer"`
	Action    string             `json:"action"`
	Status    string             `json:"status"`
	Details   string             `json:"details,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// LearnedPattern records one successful plan execution. Append-only.
type LearnedPattern struct {
	Timestamp time.Time   `json:"timestamp"`
	Agent     MonitorName `json:"agent"`
	Action    string      `json:"action"`
	Outcome   string      `json:"outcome"`
}

// ImprovementSuggestion is a persisted, human-facing recommendation. This
// system never mutates a suggestion after writing it; status changes happen
// out-of-band.
type ImprovementSuggestion struct {
	Category        string                 `json:"category"`
	Priority        int                    `json:"priority"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	EstimatedImpact string                 `json:"estimated_impact"`
	Analysis        map[string]interface{} `json:"analysis,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	Status          string                 `json:"status"`
	Agent           MonitorName            `json:"agent"`
	Layer           string                 `json:"layer"`
}

// SuggestionStatusPending is the only status this system ever writes.
const SuggestionStatusPending = "pending"

// AggregateStatus is the overall health tier.
type AggregateStatus string

const (
	StatusHealthy  AggregateStatus = "healthy"
	StatusWarning  AggregateStatus = "warning"
	StatusCritical AggregateStatus = "critical"
)

// AggregateScores carries the four component scores and their weighted
// combination. Component scores default to 0 when a monitor failed.
type AggregateScores struct {
	CodeHealth   float64         `json:"code_health"`
	Performance  float64         `json:"performance"`
	Security     float64         `json:"security"`
	Dependencies float64         `json:"dependencies"`
	Overall      float64         `json:"overall_score"`
	Status       AggregateStatus `json:"status"`
}

// MonitorOutcome wraps one monitor's cycle result or the error that replaced
// it, so a single crash never hides sibling results.
type MonitorOutcome struct {
	Cycle *CycleResult `json:"cycle,omitempty"`
	Error string       `json:"error,omitempty"`
}

// RunMode is the orchestrator scheduling mode.
type RunMode string

const (
	ModeSequential RunMode = "sequential"
	ModeParallel   RunMode = "parallel"
)

// AggregateReport is the whole-document snapshot persisted once per
// orchestrator run.
type AggregateReport struct {
	ID              string                         `json:"id"`
	StartedAt       time.Time                      `json:"started_at"`
	CompletedAt     time.Time                      `json:"completed_at"`
	DurationSeconds float64                        `json:"duration_seconds"`
	Mode            RunMode                        `json:"mode"`
	Results         map[MonitorName]MonitorOutcome `json:"results"`
	Scores          AggregateScores                `json:"scores"`
}

// TierFor classifies an overall score into its status tier.
func TierFor(overall float64) AggregateStatus {
	switch {
	case overall >= 80:
		return StatusHealthy
	case overall >= 60:
		return StatusWarning
	default:
		return StatusCritical
	}
}
