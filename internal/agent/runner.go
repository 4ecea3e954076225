package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner drives an Engine in continuous mode: run a cycle, wait out the
// monitor's interval, repeat. Cancellation is cooperative and takes effect
// only between cycles; an in-flight cycle (including its external tool
// calls, which carry their own timeouts) is never interrupted.
type Runner struct {
	logger   *zap.Logger
	engine   *Engine
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRunner wraps an engine with the sleep-loop driver.
func NewRunner(logger *zap.Logger, engine *Engine, interval time.Duration) *Runner {
	return &Runner{
		logger:   logger.Named("runner").With(zap.String("monitor", string(engine.Monitor().Identity().Name))),
		engine:   engine,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start blocks, running cycles until Stop is called or ctx is cancelled.
// The stop check sits at the top of the sleep boundary, so the current
// cycle always completes.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("Continuous mode started", zap.Duration("interval", r.interval))
	// Cycles are shielded from the loop context: probes already bound their
	// own execution time, and a stop request must not truncate a cycle.
	cycleCtx := context.WithoutCancel(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for {
		r.engine.RunCycle(cycleCtx)

		timer.Reset(r.interval)
		select {
		case <-ctx.Done():
			r.logger.Info("Continuous mode stopped", zap.String("reason", "context cancelled"))
			return
		case <-r.stop:
			r.logger.Info("Continuous mode stopped", zap.String("reason", "stop requested"))
			return
		case <-timer.C:
		}
	}
}

// Stop requests termination. Safe to call more than once; takes effect at
// the next sleep boundary.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
