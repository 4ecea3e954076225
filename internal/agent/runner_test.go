package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/vitals-cli/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingMonitor tracks how many cycles the runner drove.
type countingMonitor struct {
	fakeMonitor
	cycles atomic.Int64
}

func newCountingMonitor() *countingMonitor {
	m := &countingMonitor{fakeMonitor: fakeMonitor{identity: fakeIdentity}}
	m.analyzeFn = func(ctx context.Context) (*schemas.AnalysisResult, error) {
		m.cycles.Add(1)
		return &schemas.AnalysisResult{Checks: map[string]interface{}{fakeIdentity.ScoreField: 100.0}}, nil
	}
	return m
}

func TestRunnerStopEndsLoop(t *testing.T) {
	monitor := newCountingMonitor()
	engine := newTestEngine(t, monitor, &memoryRecorder{})
	runner := NewRunner(zaptest.NewLogger(t), engine, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Start(context.Background())
	}()

	// The first cycle runs before the first sleep; give it a moment, then
	// stop at the sleep boundary.
	assert.Eventually(t, func() bool { return monitor.cycles.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	runner.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.EqualValues(t, 1, monitor.cycles.Load())
}

func TestRunnerContextCancelEndsLoop(t *testing.T) {
	monitor := newCountingMonitor()
	engine := newTestEngine(t, monitor, &memoryRecorder{})
	runner := NewRunner(zaptest.NewLogger(t), engine, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return monitor.cycles.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop on context cancellation")
	}
}

func TestRunnerReschedulesAfterInterval(t *testing.T) {
	monitor := newCountingMonitor()
	engine := newTestEngine(t, monitor, &memoryRecorder{})
	runner := NewRunner(zaptest.NewLogger(t), engine, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Start(context.Background())
	}()

	assert.Eventually(t, func() bool { return monitor.cycles.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
	runner.Stop()
	<-done
}

func TestRunnerStopIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, newCountingMonitor(), &memoryRecorder{})
	runner := NewRunner(zaptest.NewLogger(t), engine, time.Hour)

	runner.Stop()
	runner.Stop()

	// A pre-stopped runner still finishes its first cycle before exiting.
	runner.Start(context.Background())
}
