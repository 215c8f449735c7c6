// Package schedule runs named jobs on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"newsdb/pkg/logger"
)

// Start validates expr, launches the tick loop and returns a cancel
// func. run fires in its own goroutine at every tick; overlapping runs
// are the job's problem to guard against.
func Start(ctx context.Context, name, expr string, run func(context.Context) error) (context.CancelFunc, error) {
	if !gronx.IsValid(expr) {
		logger.Error("schedule_invalid_cron", "job", name, "cron", expr)
		return nil, fmt.Errorf("invalid cron expression for %s: %s", name, expr)
	}
	ctx2, cancel := context.WithCancel(ctx)
	go loop(ctx2, name, expr, run)
	logger.Info("schedule_started", "job", name, "cron", expr)
	return cancel, nil
}

// loop computes the next tick and sleeps until then. gronx gives full
// cron syntax without carrying a scheduler dependency's worth of state.
func loop(ctx context.Context, name, expr string, run func(context.Context) error) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule_stopping", "job", name)
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(expr, now, false)
		if err != nil {
			logger.Error("schedule_nexttick_failed", "job", name, "cron", expr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("schedule_stopping", "job", name)
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			go fire(ctx, name, run)
			// avoid a tight loop when the tick is due now-ish
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("schedule_stopping", "job", name)
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			go fire(ctx, name, run)
		case <-ctx.Done():
			logger.Info("schedule_stopping", "job", name)
			return
		}
	}
}

func fire(ctx context.Context, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		logger.Error("schedule_run_error", "job", name, "error", err)
	}
}
