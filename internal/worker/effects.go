// Package worker runs the background jobs of the wallet server.
package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// EffectRunner applies queued contest effects
type EffectRunner interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// EffectWorker drains the contest effect outbox on a fixed interval
type EffectWorker struct {
	runner    EffectRunner
	interval  time.Duration
	batchSize int
	sched     gocron.Scheduler
	cancel    context.CancelFunc
}

// NewEffectWorker creates a worker; call Start to schedule it
func NewEffectWorker(runner EffectRunner, interval time.Duration, batchSize int) *EffectWorker {
	return &EffectWorker{runner: runner, interval: interval, batchSize: batchSize}
}

// Start schedules the job. A run that overlaps the previous one is skipped.
func (w *EffectWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return err
	}
	w.sched, w.cancel = sched, cancel
	sched.Start()
	logrus.WithFields(logrus.Fields{
		"interval":   w.interval.String(),
		"batch_size": w.batchSize,
	}).Info("Contest effect worker started")
	return nil
}

// RunOnce applies one batch of effects
func (w *EffectWorker) RunOnce(ctx context.Context) int {
	applied, err := w.runner.ProcessPending(ctx, w.batchSize)
	if err != nil {
		logrus.WithError(err).Error("Contest effect run failed")
		return 0
	}
	if applied > 0 {
		logrus.WithField("applied", applied).Info("Contest effects applied")
	}
	return applied
}

// Stop cancels the running batch and waits for the scheduler to exit
func (w *EffectWorker) Stop() error {
	if w.sched == nil {
		return nil
	}
	w.cancel()
	return w.sched.Shutdown()
}
