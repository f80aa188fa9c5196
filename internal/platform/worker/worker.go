// Package worker provides bounded fan-out helpers for batch processing.
// It encapsulates the patterns shared by the extraction stage: a concurrency
// limit, per-task timeouts, context cancellation and panic recovery.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	logFieldWorker    = "worker"
	logFieldTasks     = "tasks"
	logFieldLimit     = "limit"
	logFieldFailed    = "failed"
	logFieldOperation = "operation"
	logFieldPanic     = "panic"

	errFmtTaskPanic = "task %d panicked: %v"
)

// TaskFunc processes the task at index i.
type TaskFunc func(ctx context.Context, i int) error

// Config configures a settled fan-out.
type Config struct {
	// Name identifies the pool for logging.
	Name string

	// Limit caps the number of tasks running at once. Values <= 0 mean unbounded.
	Limit int

	// TaskTimeout bounds each task. Zero disables the per-task timeout.
	TaskTimeout time.Duration

	// Logger for the pool.
	Logger *zerolog.Logger
}

// Settle runs n tasks with at most cfg.Limit in flight and waits for all of
// them. A failing task never cancels its siblings. The returned slice holds
// each task's error at its index; tasks not started before ctx was canceled
// report the context error.
func Settle(ctx context.Context, cfg Config, n int, fn TaskFunc) []error {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	var g errgroup.Group
	if cfg.Limit > 0 {
		g.SetLimit(cfg.Limit)
	}

	logger.Debug().
		Str(logFieldWorker, cfg.Name).
		Int(logFieldTasks, n).
		Int(logFieldLimit, cfg.Limit).
		Msg("starting settled fan-out")

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("%s task %d not started: %w", cfg.Name, i, err)
				return nil
			}

			errs[i] = runTask(ctx, cfg.TaskTimeout, i, fn)

			return nil
		})
	}

	_ = g.Wait()

	failed := 0

	for _, err := range errs {
		if err != nil {
			failed++
		}
	}

	logger.Debug().
		Str(logFieldWorker, cfg.Name).
		Int(logFieldTasks, n).
		Int(logFieldFailed, failed).
		Msg("settled fan-out finished")

	return errs
}

func runTask(ctx context.Context, timeout time.Duration, i int, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf(errFmtTaskPanic, i, r)
		}
	}()

	if timeout <= 0 {
		return fn(ctx, i)
	}

	return RunWithTimeout(ctx, timeout, func(taskCtx context.Context) error {
		return fn(taskCtx, i)
	})
}

// RunWithTimeout runs fn with a timeout derived from the parent context.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(timeoutCtx)
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface(logFieldPanic, r).
			Str(logFieldOperation, operation).
			Msg("recovered from panic")
	}
}
