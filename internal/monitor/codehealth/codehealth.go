// Package codehealth implements the lint/type-check monitor. It combines
// two external probes with a tracked-file census into an issues-per-file
// density and scores it as health_score = clamp(100 - density*5, 0, 100).
package codehealth

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/score"
	"github.com/xkilldash9x/vitals-cli/internal/probe"
)

// Monitor checks lint and type-check cleanliness of the target codebase.
type Monitor struct {
	logger   *zap.Logger
	cfg      config.CodeHealthConfig
	runner   *probe.Runner
	recorder schemas.Recorder
	root     string
	identity schemas.AgentIdentity
}

// New constructs the code health monitor for the codebase rooted at root.
func New(logger *zap.Logger, cfg config.CodeHealthConfig, runner *probe.Runner, recorder schemas.Recorder, root string) *Monitor {
	return &Monitor{
		logger:   logger.Named("codehealth"),
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		root:     root,
		identity: schemas.AgentIdentity{
			Name:            schemas.MonitorCodeHealth,
			Layer:           "application",
			IntervalSeconds: cfg.Interval.Seconds(),
			ScoreField:      schemas.ScoreFieldHealth,
		},
	}
}

// Identity implements schemas.Monitor.
func (m *Monitor) Identity() schemas.AgentIdentity { return m.identity }

// Analyze runs the lint, type-check and format probes plus a file census.
func (m *Monitor) Analyze(ctx context.Context) (*schemas.AnalysisResult, error) {
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{}}

	lintIssues, lintAvailable := m.lintFindings(ctx, analysis)
	typeIssues, typeAvailable := m.typecheckFindings(ctx, analysis)
	formatFiles := m.formatFindings(ctx, analysis)

	fileCount := m.countSourceFiles()
	analysis.Checks["file_count"] = float64(fileCount)
	analysis.Checks["format_nonconforming"] = float64(formatFiles)

	denominator := float64(fileCount)
	if denominator < 1 {
		denominator = 1
	}
	issuesPerFile := float64(lintIssues+typeIssues) / denominator
	health := score.Clamp100(100 - issuesPerFile*5)

	analysis.Checks["issues_per_file"] = issuesPerFile
	analysis.Checks[schemas.ScoreFieldHealth] = health
	analysis.Degraded = !lintAvailable || !typeAvailable
	return analysis, nil
}

// Plan proposes an autofix when lint issues exist, a format pass when the
// formatter reports non-conformance, and writes a suggestion when the score
// dips below the configured threshold.
func (m *Monitor) Plan(ctx context.Context, analysis *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
	var plans []schemas.ImprovementPlan

	if lintIssues := analysis.Num("lint_issues"); lintIssues > 0 {
		plans = append(plans, schemas.ImprovementPlan{
			ID:          uuid.New().String(),
			Type:        schemas.PlanLintAutofix,
			Priority:    7,
			Description: fmt.Sprintf("Auto-fix %d lint issue(s)", int(lintIssues)),
			Payload:     map[string]interface{}{"lint_issues": lintIssues},
		})
	}
	if nonConforming := analysis.Num("format_nonconforming"); nonConforming > 0 {
		plans = append(plans, schemas.ImprovementPlan{
			ID:          uuid.New().String(),
			Type:        schemas.PlanFormat,
			Priority:    5,
			Description: fmt.Sprintf("Format %d non-conforming file(s)", int(nonConforming)),
			Payload:     map[string]interface{}{"files": nonConforming},
		})
	}

	if health := analysis.Score(m.identity.ScoreField); health < m.cfg.SuggestionScore {
		suggestion := schemas.ImprovementSuggestion{
			Category:        "code_quality",
			Priority:        7,
			Title:           "Code health below threshold",
			Description:     fmt.Sprintf("health_score %.1f is below %.0f; review lint and type-check findings", health, m.cfg.SuggestionScore),
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

// Execute applies the two recognized plan types through their external fix
// commands. Anything else is skipped.
func (m *Monitor) Execute(ctx context.Context, plan schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
	switch plan.Type {
	case schemas.PlanLintAutofix:
		return m.runFix(ctx, plan, m.cfg.LintFixCommand), nil
	case schemas.PlanFormat:
		return m.runFix(ctx, plan, m.cfg.FormatCommand), nil
	default:
		return schemas.ExecutionResult{
			Status:  schemas.ExecSkipped,
			Message: fmt.Sprintf("unrecognized plan type %q", plan.Type),
			Action:  string(plan.Type),
			Plan:    &plan,
		}, nil
	}
}

func (m *Monitor) runFix(ctx context.Context, plan schemas.ImprovementPlan, argv []string) schemas.ExecutionResult {
	result := m.runner.Run(ctx, argv)
	exec := schemas.ExecutionResult{Action: string(plan.Type), Plan: &plan}
	switch {
	case result.Err != nil:
		exec.Status = schemas.ExecError
		exec.Message = result.Err.Message
	case result.ExitCode == 0:
		exec.Status = schemas.ExecSuccess
		exec.Message = "fix command completed"
		exec.Output = truncate(string(result.Output))
	default:
		// Tool ran but could not fix everything.
		exec.Status = schemas.ExecPartial
		exec.Message = fmt.Sprintf("fix command exited %d", result.ExitCode)
		exec.Output = truncate(string(result.Output))
	}
	return exec
}

// lintFindings runs the lint probe and records its finding count. Probe
// absence and timeouts degrade the analysis instead of failing it.
func (m *Monitor) lintFindings(ctx context.Context, analysis *schemas.AnalysisResult) (int, bool) {
	result := m.runner.Run(ctx, m.cfg.LintCommand)
	if result.Err != nil {
		analysis.Checks["lint_error"] = string(result.Err.Kind)
		analysis.Checks["lint_issues"] = float64(0)
		return 0, false
	}
	issues, parseErr := ParseLintFindings(result.Output)
	if parseErr != nil {
		analysis.Checks["lint_error"] = string(probe.ErrParse)
	}
	analysis.Checks["lint_issues"] = float64(issues)
	return issues, true
}

func (m *Monitor) typecheckFindings(ctx context.Context, analysis *schemas.AnalysisResult) (int, bool) {
	result := m.runner.Run(ctx, m.cfg.TypecheckCommand)
	if result.Err != nil {
		analysis.Checks["typecheck_error"] = string(result.Err.Kind)
		analysis.Checks["typecheck_issues"] = float64(0)
		return 0, false
	}
	issues := countNonEmptyLines(result.Output)
	analysis.Checks["typecheck_issues"] = float64(issues)
	return issues, true
}

func (m *Monitor) formatFindings(ctx context.Context, analysis *schemas.AnalysisResult) int {
	result := m.runner.Run(ctx, m.cfg.FormatCheckCommand)
	if result.Err != nil {
		analysis.Checks["format_error"] = string(result.Err.Kind)
		return 0
	}
	// Format checkers list one non-conforming file per line.
	return countNonEmptyLines(result.Output)
}

// countSourceFiles prefers the tracked-file set of a git repository so that
// vendored or generated junk does not dilute the issue density; outside a
// repository it walks the tree.
func (m *Monitor) countSourceFiles() int {
	if n, ok := m.countTrackedFiles(); ok {
		return n
	}
	count := 0
	_ = filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "vendor" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if m.isSourceFile(d.Name()) {
			count++
		}
		return nil
	})
	return count
}

func (m *Monitor) countTrackedFiles() (int, bool) {
	repo, err := git.PlainOpen(m.root)
	if err != nil {
		return 0, false
	}
	head, err := repo.Head()
	if err != nil {
		return 0, false
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return 0, false
	}
	tree, err := commit.Tree()
	if err != nil {
		return 0, false
	}
	count := 0
	err = tree.Files().ForEach(func(f *object.File) error {
		if m.isSourceFile(f.Name) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, false
	}
	return count, true
}

func (m *Monitor) isSourceFile(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range m.cfg.SourceExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func countNonEmptyLines(output []byte) int {
	count := 0
	for _, line := range strings.Split(string(output), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

func truncate(s string) string {
	const max = 4096
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}
