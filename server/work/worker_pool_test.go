package work

import (
	"testing"
	"time"

	"github.com/Tushar2604/SafePath/server/models"
	"github.com/stretchr/testify/assert"
)

func TestEnqueueIn(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerPool(MAX_CONCURRENCY, defaultSleepBackoffsInSeconds)

	err := workerPool.enqueueIn(1, JobParams{
		Name:    "status-update-42",
		Handler: "sendStatusUpdateNotifications",
		Args: map[string]interface{}{
			"emergency_id": "42",
			"status":       "Resolved",
		},
	})
	assert.Nil(t, err)

	// At some point we need to be able to
	// mock the current time, instead of stopping the
	// process. For now, keep it simple
	time.Sleep(1 * time.Second)

	// Make sure the correct job is created & scheduled to be run
	job, err := models.FirstScheduledJobToBeQueued()
	assert.Nil(t, err)
	assert.Equal(t, "status-update-42", job.Name, "The job name should match the expected job name")
	assert.Contains(t, job.Args, "Resolved", "Should contain the correct arg values")
	assert.Equal(t, models.SCHEDULED_JOB, job.JobStatus.Name, "The job should be in scheduled queue")
}

func TestEnqueueRejectsDuplicateUniqueJobs(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerPool(MAX_CONCURRENCY, defaultSleepBackoffsInSeconds)

	params := JobParams{
		Name:    "status-update-7",
		Handler: "sendStatusUpdateNotifications",
		Unique:  true,
		Args:    map[string]interface{}{"emergency_id": "7"},
	}

	assert.Nil(t, workerPool.enqueue(params))
	assert.ErrorIs(t, workerPool.enqueue(params), models.ErrDuplicateJob)
}
