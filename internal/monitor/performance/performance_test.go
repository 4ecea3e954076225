package performance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
	"github.com/xkilldash9x/vitals-cli/internal/config"
	"github.com/xkilldash9x/vitals-cli/internal/probe"
)

type memoryRecorder struct {
	suggestions []schemas.ImprovementSuggestion
}

func (r *memoryRecorder) AppendActivity(schemas.AgentIdentity, schemas.ActivityEvent) error { return nil }
func (r *memoryRecorder) WriteCycleSnapshot(schemas.AgentIdentity, *schemas.CycleResult) error {
	return nil
}
func (r *memoryRecorder) AppendPattern(schemas.AgentIdentity, schemas.LearnedPattern) error {
	return nil
}
func (r *memoryRecorder) AppendSuggestion(_ schemas.AgentIdentity, s schemas.ImprovementSuggestion) error {
	r.suggestions = append(r.suggestions, s)
	return nil
}

func testConfig() config.PerformanceConfig {
	return config.PerformanceConfig{
		Interval:        5 * time.Minute,
		CPUWarnPercent:  80,
		MemWarnPercent:  80,
		DiskWarnPercent: 90,
		LogMaxBytes:     100 * 1024 * 1024,
		SuggestionScore: 70,
	}
}

func newTestMonitor(t *testing.T, cfg config.PerformanceConfig, metrics probe.Metrics, available bool) (*Monitor, *memoryRecorder) {
	t.Helper()
	recorder := &memoryRecorder{}
	m := New(zaptest.NewLogger(t), cfg, recorder, t.TempDir())
	m.readMetrics = func(string) (probe.Metrics, bool) { return metrics, available }
	return m, recorder
}

func TestScoreSampleTiers(t *testing.T) {
	testCases := []struct {
		name           string
		cpu, mem, disk float64
		want           float64
	}{
		{"idle host", 10, 10, 10, 100},
		{"cpu mild", 55, 10, 10, 95},
		{"cpu elevated", 75, 10, 10, 85},
		{"cpu saturated", 95, 10, 10, 70},
		{"mem saturated", 10, 92, 10, 70},
		{"disk high", 10, 10, 87, 90},
		{"disk nearly full", 10, 10, 96, 80},
		{"everything on fire", 95, 95, 96, 20},
		{"boundaries are exclusive", 90, 70, 85, 100 - 15 - 5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreSample(tc.cpu, tc.mem, tc.disk))
		})
	}
}

func TestScoreSampleFloorsAtZero(t *testing.T) {
	// Max penalties: 30+30+20 = 80, so add pathological negatives elsewhere.
	assert.GreaterOrEqual(t, ScoreSample(200, 200, 200), 0.0)
}

func TestAnalyzeWithMetrics(t *testing.T) {
	metrics := probe.Metrics{
		Timestamp:   time.Now().UTC(),
		CPUPercent:  75,
		MemPercent:  40,
		DiskPercent: 50,
		Load1:       1.5,
		Processes:   120,
	}
	m, _ := newTestMonitor(t, testConfig(), metrics, true)

	analysis, err := m.Analyze(t.Context())
	require.NoError(t, err)
	assert.False(t, analysis.Degraded)
	assert.Equal(t, 75.0, analysis.Num("cpu_percent"))
	assert.Equal(t, 120.0, analysis.Num("processes"))
	assert.Equal(t, 85.0, analysis.Score(schemas.ScoreFieldPerformance))
}

func TestAnalyzeDegradedWithoutMetrics(t *testing.T) {
	m, _ := newTestMonitor(t, testConfig(), probe.Metrics{}, false)

	analysis, err := m.Analyze(t.Context())
	require.NoError(t, err)
	assert.True(t, analysis.Degraded)
	// Known blind spot: no penalties can apply without a sample.
	assert.Equal(t, 100.0, analysis.Score(schemas.ScoreFieldPerformance))
}

func TestAnalyzeSumsLogFootprint(t *testing.T) {
	m, _ := newTestMonitor(t, testConfig(), probe.Metrics{}, false)
	require.NoError(t, os.WriteFile(filepath.Join(m.root, "app.log"), make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.root, "notes.txt"), make([]byte, 4096), 0o644))

	analysis, err := m.Analyze(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2048.0, analysis.Num("log_total_bytes"))
}

func TestPlanRaisesResourceAlerts(t *testing.T) {
	m, _ := newTestMonitor(t, testConfig(), probe.Metrics{}, true)
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{
		"metrics_available":           true,
		"cpu_percent":                 85.0,
		"mem_percent":                 50.0,
		"disk_percent":                95.0,
		"log_total_bytes":             0.0,
		schemas.ScoreFieldPerformance: 75.0,
	}}

	plans, err := m.Plan(t.Context(), analysis)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	for _, p := range plans {
		assert.Equal(t, schemas.PlanResourceAlert, p.Type)
		assert.False(t, p.RequiresApproval)
	}
	// CPU (priority 9) sorts before disk (priority 8).
	assert.Equal(t, "cpu", plans[0].Payload["resource"])
	assert.Equal(t, "disk", plans[1].Payload["resource"])
}

func TestPlanLogCleanupRecommendation(t *testing.T) {
	cfg := testConfig()
	cfg.LogMaxBytes = 1024
	m, _ := newTestMonitor(t, cfg, probe.Metrics{}, true)
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{
		"metrics_available":           true,
		"log_total_bytes":             4096.0,
		schemas.ScoreFieldPerformance: 100.0,
	}}

	plans, err := m.Plan(t.Context(), analysis)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, schemas.PlanLogCleanup, plans[0].Type)
	assert.Equal(t, 5, plans[0].Priority)
}

func TestPlanSuggestionBelowThreshold(t *testing.T) {
	m, recorder := newTestMonitor(t, testConfig(), probe.Metrics{}, true)
	analysis := &schemas.AnalysisResult{Checks: map[string]interface{}{
		"metrics_available":           true,
		schemas.ScoreFieldPerformance: 40.0,
	}}

	_, err := m.Plan(t.Context(), analysis)
	require.NoError(t, err)
	require.Len(t, recorder.suggestions, 1)
	assert.Equal(t, "resource_pressure", recorder.suggestions[0].Category)
}

func TestExecuteAlertsAreLoggedOnly(t *testing.T) {
	m, _ := newTestMonitor(t, testConfig(), probe.Metrics{}, true)

	for _, planType := range []schemas.PlanType{schemas.PlanResourceAlert, schemas.PlanLogCleanup} {
		result, err := m.Execute(t.Context(), schemas.ImprovementPlan{ID: "p", Type: planType})
		require.NoError(t, err)
		assert.Equal(t, schemas.ExecLogged, result.Status, "plan type %s", planType)
	}
}

func TestExecuteUnknownPlanTypeIsSkipped(t *testing.T) {
	m, _ := newTestMonitor(t, testConfig(), probe.Metrics{}, true)

	result, err := m.Execute(t.Context(), schemas.ImprovementPlan{ID: "p", Type: "mystery"})
	require.NoError(t, err)
	assert.Equal(t, schemas.ExecSkipped, result.Status)
}
