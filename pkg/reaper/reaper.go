// Package reaper runs the recurring purge of expired links.
package reaper

import (
	"context"
	"fmt"
	"time"

	"shortlink/pkg/logging"

	"github.com/robfig/cron/v3"
)

// Store is the slice of the link store the reaper needs.
type Store interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Reaper deletes expired links on a fixed interval. Invocations never
// overlap: if a sweep is still running when the next tick fires, that tick
// is skipped. A failed sweep is logged and the schedule carries on.
type Reaper struct {
	cron       *cron.Cron
	store      Store
	logger     *logging.Logger
	interval   time.Duration
	runOnStart bool
}

func New(store Store, logger *logging.Logger, interval time.Duration, runOnStart bool) *Reaper {
	return &Reaper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		store:      store,
		logger:     logger,
		interval:   interval,
		runOnStart: runOnStart,
	}
}

// Start schedules the sweep and returns. When runOnStart is set the first
// sweep fires immediately, routed through the same skip-if-running chain as
// the scheduled ones.
func (r *Reaper) Start() error {
	id, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), r.sweep)
	if err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	r.cron.Start()
	r.logger.Info(context.Background(), "reaper started", "interval", r.interval.String())

	if r.runOnStart {
		go r.cron.Entry(id).WrappedJob.Run()
	}
	return nil
}

// Stop cancels the schedule and blocks until an in-flight sweep finishes.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info(context.Background(), "reaper stopped")
}

func (r *Reaper) sweep() {
	ctx := context.Background()
	count, err := r.store.DeleteExpired(ctx)
	if err != nil {
		r.logger.Error(ctx, "expired link sweep failed", "error", err)
		return
	}
	r.logger.Info(ctx, "expired links deleted", "count", count)
}

// cronLogger adapts the service logger to cron's logging interface.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(context.Background(), msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}
