// Package probe wraps external analysis tool invocations so that a missing,
// slow or misbehaving tool degrades into a recorded finding instead of a
// cycle failure.
package probe

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrorKind classifies why a probe produced no usable output.
type ErrorKind string

const (
	ErrTimeout  ErrorKind = "timeout"
	ErrNotFound ErrorKind = "not_found"
	ErrParse    ErrorKind = "parse_error"
	ErrOther    ErrorKind = "other"
)

// Error is a non-fatal probe failure. The caller records it and scores the
// check as a zero contribution.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Result is the outcome of one external tool invocation.
type Result struct {
	Available bool
	Output    []byte
	ExitCode  int
	Err       *Error
}

// Runner invokes external commands under a bounded timeout. A nil limiter
// disables throttling.
type Runner struct {
	logger  *zap.Logger
	dir     string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewRunner returns a Runner executing commands in dir. ratePerSecond of
// zero disables the limiter.
func NewRunner(logger *zap.Logger, dir string, timeout time.Duration, ratePerSecond float64) *Runner {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Runner{
		logger:  logger.Named("probe"),
		dir:     dir,
		timeout: timeout,
		limiter: limiter,
	}
}

// Run executes argv and classifies the outcome. A tool that exits non-zero
// but produced output is still Available: linters report findings through
// their exit status, which is not a probe failure.
func (r *Runner) Run(ctx context.Context, argv []string) Result {
	if len(argv) == 0 {
		return Result{Err: &Error{Kind: ErrOther, Message: "empty probe command"}}
	}

	if _, err := exec.LookPath(argv[0]); err != nil {
		r.logger.Debug("Probe tool not installed", zap.String("tool", argv[0]))
		return Result{Err: &Error{Kind: ErrNotFound, Message: argv[0] + " not found in PATH"}}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return Result{Err: &Error{Kind: ErrOther, Message: err.Error()}}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = r.dir
	output, err := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		r.logger.Warn("Probe timed out",
			zap.String("tool", argv[0]),
			zap.Duration("timeout", r.timeout),
		)
		return Result{Err: &Error{Kind: ErrTimeout, Message: argv[0] + " exceeded probe timeout"}}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(output) > 0 {
			// Non-zero exit with output: findings, not failure.
			return Result{Available: true, Output: output, ExitCode: exitErr.ExitCode()}
		}
		return Result{Err: &Error{Kind: ErrOther, Message: err.Error()}}
	}

	return Result{Available: true, Output: output}
}
