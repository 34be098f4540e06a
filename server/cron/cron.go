package cron

import (
	"time"

	"github.com/go-co-op/gocron"
)

// NewCronScheduler creates a scheduler in the given time zone, falling
// back to UTC when the zone can't be loaded
func NewCronScheduler(timeZoneArg string) *gocron.Scheduler {
	timeZone, err := time.LoadLocation(timeZoneArg)
	if err != nil {
		timeZone = time.UTC
	}

	scheduler := gocron.NewScheduler(timeZone)
	scheduler.TagsUnique()

	return scheduler
}
