package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/domain"
)

// Executor runs one probe under a hard deadline and normalises every way it
// can end (result, error, panic, timeout) into a ProbeResult.
type Executor struct {
	Logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{Logger: logger}
}

type outcome struct {
	result domain.ProbeResult
	err    error
}

// Execute never returns before the probe finishes or the timeout fires. A
// probe that ignores its context is abandoned; its goroutine exits on its own
// when the probe eventually returns.
func (e *Executor) Execute(ctx context.Context, c Checker, timeout time.Duration) domain.ProbeResult {
	e.Logger.Debug("probe_start", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// buffered so an abandoned probe can still deliver and exit
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("probe panicked: %v", r)}
			}
		}()
		res, err := c.Check(ctx)
		done <- outcome{result: res, err: err}
	}()

	var res domain.ProbeResult
	select {
	case out := <-done:
		res = e.normalise(out)
	case <-ctx.Done():
		res = domain.Failure(fmt.Sprintf("timed out after %s", formatSeconds(timeout)), ctx.Err().Error())
		res.Cause = ctx.Err()
		e.Logger.Error("probe_timeout", zap.Duration("timeout", timeout))
	}

	if res.Success {
		e.Logger.Info("probe_ok", zap.String("message", res.Message))
	} else {
		e.Logger.Warn("probe_failed", zap.String("message", res.Message), zap.String("error", res.Error))
	}
	return res
}

func (e *Executor) normalise(out outcome) domain.ProbeResult {
	if out.err == nil {
		res := out.result
		if res.Time.IsZero() {
			res.Time = time.Now().UTC()
		}
		return res
	}

	var rerr *ResolutionError
	if errors.As(out.err, &rerr) {
		e.Logger.Warn("probe_resolution_error", zap.Error(out.err))
		res := domain.Failure("Could not resolve hostname into an IP address",
			"Hostname could not be resolved to an IP address of the appropriate address family: "+out.err.Error())
		res.Cause = out.err
		return res
	}

	e.Logger.Error("probe_error", zap.Error(out.err))
	res := domain.Failure("Unexpected error while running health check", out.err.Error())
	res.Cause = out.err
	return res
}

// formatSeconds renders whole seconds as "10s" and fractions as "1.5s".
func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return fmt.Sprintf("%gs", d.Seconds())
}
