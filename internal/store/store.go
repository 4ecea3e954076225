// Package store implements the append-only JSON persistence layer. There is
// deliberately no database: activity events, learned patterns and
// suggestions are line-delimited JSON appends, cycle results and aggregate
// reports are whole-document snapshots, all under a deterministic directory
// layout rooted at a base directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	agentLogsDir    = "logs/autonomous_agents"
	plansDataDir    = "data/improvement_plans"
	orchestratorDir = "orchestrator"

	snapshotStamp = "20060102_150405"
	activityStamp = "2006-01-02"
)

// Store writes the monitoring record tree under baseDir. Each monitor owns a
// disjoint sub-path, so concurrent monitors never contend on a file except
// the per-layer suggestions log, which is serialized by mu.
type Store struct {
	logger  *zap.Logger
	baseDir string
	mu      sync.Mutex
}

// New creates the required directory tree. This is the only construction in
// the system whose failure is fatal to the process.
func New(logger *zap.Logger, baseDir string) (*Store, error) {
	s := &Store{
		logger:  logger.Named("store"),
		baseDir: baseDir,
	}
	for _, dir := range []string{
		filepath.Join(baseDir, agentLogsDir, orchestratorDir),
		filepath.Join(baseDir, plansDataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// AgentLogDir returns the activity/snapshot directory for one monitor.
func (s *Store) AgentLogDir(agent schemas.AgentIdentity) string {
	return filepath.Join(s.baseDir, agentLogsDir, strings.ToLower(string(agent.Name)))
}

// AppendActivity appends one event line to the monitor's date-stamped log.
func (s *Store) AppendActivity(agent schemas.AgentIdentity, event schemas.ActivityEvent) error {
	name := event.Timestamp.UTC().Format(activityStamp) + ".jsonl"
	return s.appendLine(filepath.Join(s.AgentLogDir(agent), name), event)
}

// WriteCycleSnapshot writes one whole-document CycleResult per completed
// cycle.
func (s *Store) WriteCycleSnapshot(agent schemas.AgentIdentity, cycle *schemas.CycleResult) error {
	name := "cycle_" + cycle.StartedAt.UTC().Format(snapshotStamp) + ".json"
	return s.writeDocument(filepath.Join(s.AgentLogDir(agent), name), cycle)
}

// AppendPattern appends one learned-pattern line to the monitor's pattern
// log.
func (s *Store) AppendPattern(agent schemas.AgentIdentity, pattern schemas.LearnedPattern) error {
	name := strings.ToLower(string(agent.Name)) + "_patterns.jsonl"
	path := filepath.Join(s.baseDir, plansDataDir, agent.Layer, name)
	return s.appendLine(path, pattern)
}

// AppendSuggestion appends one suggestion line to the layer-shared
// suggestions log. Serialized because monitors in the same layer share the
// file.
func (s *Store) AppendSuggestion(agent schemas.AgentIdentity, suggestion schemas.ImprovementSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.baseDir, plansDataDir, agent.Layer, "improvement_suggestions.jsonl")
	return s.appendLine(path, suggestion)
}

// WriteReport persists one timestamped AggregateReport snapshot and returns
// its path.
func (s *Store) WriteReport(report *schemas.AggregateReport) (string, error) {
	name := "monitoring_" + report.StartedAt.UTC().Format(snapshotStamp) + ".json"
	path := filepath.Join(s.baseDir, agentLogsDir, orchestratorDir, name)
	if err := s.writeDocument(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// LatestReport loads the most recently written aggregate snapshot. The
// timestamped names sort lexicographically in temporal order.
func (s *Store) LatestReport() (*schemas.AggregateReport, error) {
	dir := filepath.Join(s.baseDir, agentLogsDir, orchestratorDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "monitoring_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no aggregate reports found in %s: %w", dir, os.ErrNotExist)
	}
	sort.Strings(names)

	data, err := os.ReadFile(filepath.Join(dir, names[len(names)-1]))
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report schemas.AggregateReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", names[len(names)-1], err)
	}
	return &report, nil
}

// appendLine marshals v and appends it with a trailing newline in a single
// write. A crash mid-write can tear at most the final line; everything
// already on disk stays intact.
func (s *Store) appendLine(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

func (s *Store) writeDocument(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Stamp formats t the way snapshot filenames do. Exposed for log messages
// that reference snapshot files.
func Stamp(t time.Time) string {
	return t.UTC().Format(snapshotStamp)
}
