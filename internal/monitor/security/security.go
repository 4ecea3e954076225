// Package security implements the vulnerability and secret-exposure monitor.
// It combines an external vulnerability scan with a textual secret-pattern
// sweep over the source tree and scores both findings into security_score.
// All remediation is advisory; execute only logs.
package security

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/monitor/score"
	"github.com/xkilldash9x/vitals-cli/internal/probe"
)

// Monitor scans for dependency vulnerabilities and committed secrets.
type Monitor struct {
	logger   *zap.Logger
	cfg      config.SecurityConfig
	runner   *probe.Runner
	recorder schemas.Recorder
	root     string
	identity schemas.AgentIdentity
}

// New constructs the security monitor for the codebase rooted at root.
func New(logger *zap.Logger, cfg config.SecurityConfig, runner *probe.Runner, recorder schemas.Recorder, root string) *Monitor {
	return &Monitor{
		logger:   logger.Named("security"),
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		root:     root,
		identity: schemas.AgentIdentity{
			Name:            schemas.MonitorSecurity,
			Layer:           "security",
			IntervalSeconds: cfg.Interval.Seconds(),
			ScoreField:      schemas.ScoreFieldSecurity,
		},
	}
}

// Identity implements schemas.Monitor.
func (m *Monitor) Identity() schemas.AgentIdentity { return m.identity }

// Analyze runs the vulnerability probe and the secret sweep, then scores
// security_score = clamp(100 - 10*vulns - 15*secret_files, 0, 100). The
// secret count used by the score is the number of distinct flagged files;
// secret_matches reports the raw matches of the first matching pattern in
// each flagged file.
func (m *Monitor) Analyze(ctx context.Context) (*schemas.AnalysisResult, error) {
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{}}

	vulns := m.vulnFindings(ctx, analysis)

	sweep := ScanTree(m.root)
	analysis.Checks["secret_files"] = float64(len(sweep.Files))
	analysis.Checks["secret_matches"] = float64(sweep.RawMatches)

	if exposed, checked := m.secretsFileExposed(); checked {
		analysis.Checks["secrets_file_world_readable"] = exposed
	}

	analysis.Checks[schemas.ScoreFieldSecurity] = score.Clamp100(100 - 10*float64(vulns) - 15*float64(len(sweep.Files)))
	return analysis, nil
}

// Plan raises a priority-10 alert for each finding class and writes a
// suggestion below the score threshold.
func (m *Monitor) Plan(ctx context.Context, analysis *schemas.AnalysisResult) ([]schemas.ImprovementPlan, error) {
	var plans []schemas.ImprovementPlan

	if vulns := analysis.Num("vulnerabilities"); vulns > 0 {
		plans = append(plans, schemas.ImprovementPlan{
			ID:          uuid.New().String(),
			Type:        schemas.PlanVulnAlert,
			Priority:    10,
			Description: fmt.Sprintf("%d known vulnerability(ies) reachable from the dependency graph", int(vulns)),
			Payload:     map[string]interface{}{"vulnerabilities": vulns},
		})
	}
	if secretFiles := analysis.Num("secret_files"); secretFiles > 0 {
		plans = append(plans, schemas.ImprovementPlan{
			ID:          uuid.New().String(),
			Type:        schemas.PlanSecretAlert,
			Priority:    10,
			Description: fmt.Sprintf("%d file(s) contain credential-shaped assignments", int(secretFiles)),
			Payload: map[string]interface{}{
				"secret_files":   secretFiles,
				"secret_matches": analysis.Num("secret_matches"),
			},
		})
	}

	if sec := analysis.Score(m.identity.ScoreField); sec < m.cfg.SuggestionScore {
		suggestion := schemas.ImprovementSuggestion{
			Category:        "security_exposure",
			Priority:        10,
			Title:           "Security posture below threshold",
			Description:     fmt.Sprintf("security_score %.1f is below %.0f; triage the raised alerts", sec, m.cfg.SuggestionScore),
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

// Execute raises alerts at elevated severity and records them as logged.
// There is no automatic remediation: no secret redaction, no upgrades.
func (m *Monitor) Execute(ctx context.Context, plan schemas.ImprovementPlan) (schemas.ExecutionResult, error) {
	switch plan.Type {
	case schemas.PlanVulnAlert, schemas.PlanSecretAlert:
		m.logger.Error("Security alert", zap.String("description", plan.Description))
		return schemas.ExecutionResult{
			Status:  schemas.ExecLogged,
			Message: "alert raised; remediation requires human action",
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

func (m *Monitor) vulnFindings(ctx context.Context, analysis *schemas.AnalysisResult) int {
	result := m.runner.Run(ctx, m.cfg.VulnCommand)
	if result.Err != nil {
		analysis.Checks["vuln_error"] = string(result.Err.Kind)
		analysis.Checks["vulnerabilities"] = float64(0)
		analysis.Degraded = true
		return 0
	}
	vulns, err := ParseVulnFindings(result.Output)
	if err != nil {
		analysis.Checks["vuln_error"] = string(probe.ErrParse)
		analysis.Checks["vulnerabilities"] = float64(0)
		analysis.Degraded = true
		return 0
	}
	analysis.Checks["vulnerabilities"] = float64(vulns)
	return vulns
}

// secretsFileExposed checks the permission bits of the configured local
// secrets file. The bool second return reports whether the file exists.
func (m *Monitor) secretsFileExposed() (bool, bool) {
	if m.cfg.SecretsFile == "" {
		return false, false
	}
	info, err := os.Stat(filepath.Join(m.root, m.cfg.SecretsFile))
	if err != nil || info.IsDir() {
		return false, false
	}
	return info.Mode().Perm()&0o004 != 0, true
}

// sourceExtensions bounds the secret sweep to text files worth scanning.
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".rb": true,
	".java": true, ".sh": true, ".yaml": true, ".yml": true, ".toml": true,
	".json": true, ".env": true, ".tf": true, ".ini": true, ".cfg": true,
}

// ScanTree sweeps every scannable file under root for credential-shaped
// assignments. Unreadable files are skipped silently.
func ScanTree(root string) SweepResult {
	var sweep SweepResult
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
		if !sourceExtensions[filepath.Ext(d.Name())] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if matches := ScanContent(data); matches > 0 {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			sweep.Files = append(sweep.Files, rel)
			sweep.RawMatches += matches
		}
		return nil
	})
	return sweep
}
