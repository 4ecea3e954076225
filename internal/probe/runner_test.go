package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRunner(t *testing.T, timeout time.Duration) *Runner {
	t.Helper()
	return NewRunner(zaptest.NewLogger(t), t.TempDir(), timeout, 0)
}

func TestRunEmptyCommand(t *testing.T) {
	runner := newTestRunner(t, time.Second)

	result := runner.Run(t.Context(), nil)
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrOther, result.Err.Kind)
	assert.False(t, result.Available)
}

func TestRunToolNotFound(t *testing.T) {
	runner := newTestRunner(t, time.Second)

	result := runner.Run(t.Context(), []string{"definitely-not-a-real-tool-xyz"})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrNotFound, result.Err.Kind)
	assert.False(t, result.Available)
}

func TestRunCapturesOutput(t *testing.T) {
	runner := newTestRunner(t, 5*time.Second)

	result := runner.Run(t.Context(), []string{"sh", "-c", "echo hello"})
	require.Nil(t, result.Err)
	assert.True(t, result.Available)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, string(result.Output), "hello")
}

func TestRunNonZeroExitWithOutputIsAvailable(t *testing.T) {
	runner := newTestRunner(t, 5*time.Second)

	result := runner.Run(t.Context(), []string{"sh", "-c", "echo findings; exit 3"})
	require.Nil(t, result.Err)
	assert.True(t, result.Available)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, string(result.Output), "findings")
}

func TestRunTimeout(t *testing.T) {
	runner := newTestRunner(t, 100*time.Millisecond)

	start := time.Now()
	result := runner.Run(t.Context(), []string{"sleep", "10"})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrTimeout, result.Err.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReadMetricsNeverPanics(t *testing.T) {
	metrics, available := ReadMetrics(t.TempDir())
	if available {
		assert.GreaterOrEqual(t, metrics.CPUPercent, 0.0)
		assert.LessOrEqual(t, metrics.CPUPercent, 100.0)
		assert.GreaterOrEqual(t, metrics.MemPercent, 0.0)
		assert.LessOrEqual(t, metrics.DiskPercent, 100.0)
		assert.False(t, metrics.Timestamp.IsZero())
	}
}
