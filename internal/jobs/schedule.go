// Package jobs runs recurring background work on cron-style schedules,
// isolating each job's failures from the rest.
package jobs

import (
	"time"

	"github.com/graxinc/errutil"
	"github.com/robfig/cron/v3"
)

// Schedule decides when a job fires next.
type Schedule interface {
	// Next returns the first activation time strictly after t.
	Next(t time.Time) time.Time
}

// ParseCron parses a standard five-field cron expression into a Schedule.
func ParseCron(expr string) (Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, errutil.With(err)
	}
	return s, nil
}
