package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tushar2604/SafePath/server/cron"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/go-co-op/gocron"
)

const MAX_CONCURRENCY = 1

var defaultSleepBackoffsInSeconds = []int64{0, 10, 100, 120}

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          WorkerPool
}

func NewWorkerAdapter(timeZoneArg string, testMode bool) *WorkerPoolAdapter {
	sleepBackoffs := defaultSleepBackoffsInSeconds
	if testMode {
		// Keep workers polling, so tests don't wait on backoffs
		sleepBackoffs = []int64{0, 1, 1, 1}
	}

	return &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZoneArg),
		pool:          *NewWorkerPool(MAX_CONCURRENCY, sleepBackoffs),
	}
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() error {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()

	return nil
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() error {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	logg.Infof("Enqueuing job: %v", job)

	err := adapter.pool.enqueue(job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job, err)
	}

	return nil
}

// PerformIn schedules a job to be added to the queue once
// 'secondsInFuture' has elapsed
func (adapter *WorkerPoolAdapter) PerformIn(secondsInFuture int64, job JobParams) error {
	logg.Infof("Scheduling job in %vs: %v", secondsInFuture, job)

	err := adapter.pool.enqueueIn(secondsInFuture, job)
	if err != nil {
		return fmt.Errorf("error scheduling job: %v, %v", job, err)
	}

	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					logg.Error(err)
				}
			},
			job,
		)
	return nil
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) {
	adapter.cronScheduler.RemoveByTag(jobName)
}

func scheduledTime(secondsInFuture int64) time.Time {
	return time.Now().Add(time.Duration(secondsInFuture) * time.Second)
}
