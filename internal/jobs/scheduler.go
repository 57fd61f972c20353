package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one scheduled unit of work.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Schedule decides activation times. Required.
	Schedule Schedule

	// InitialDelay is a lower bound on the first activation: the job first
	// fires at the schedule's next occurrence after now+InitialDelay, not
	// at the delay boundary itself.
	InitialDelay time.Duration

	// RunOnce stops the job after its first activation.
	RunOnce bool

	// Log enables per-execution start and finish logs.
	Log bool

	// Run does the work. Errors are logged and do not cancel future
	// activations.
	Run func(ctx context.Context) error
}

// Service drives a set of jobs, one goroutine each.
type Service struct {
	log  *slog.Logger
	jobs []Job
	wg   sync.WaitGroup
}

func NewService(log *slog.Logger) *Service {
	return &Service{log: log}
}

// Add registers a job. Must be called before Start.
func (s *Service) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches every registered job. Jobs run until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.drive(ctx, job)
		}()
		s.log.Info("job scheduled", "job", job.Name, "run_once", job.RunOnce)
	}
}

// Wait blocks until every job goroutine has stopped.
func (s *Service) Wait() {
	s.wg.Wait()
}

// drive runs one job's activation loop. Every activation lands on the
// schedule; the initial delay only pushes the first occurrence past
// now+delay. After the first activation a run-once job is done and a
// recurring job keeps following its schedule.
func (s *Service) drive(ctx context.Context, job Job) {
	if job.Schedule == nil {
		s.log.Error("job has no schedule", "job", job.Name)
		return
	}

	first := true
	for {
		now := time.Now()
		from := now
		if first && job.InitialDelay > 0 {
			from = now.Add(job.InitialDelay)
		}
		wait := job.Schedule.Next(from).Sub(now)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.execute(ctx, job)
		first = false

		if job.RunOnce {
			return
		}
	}
}

// execute runs one activation, containing panics and errors so a bad run
// never takes the schedule down with it.
func (s *Service) execute(ctx context.Context, job Job) {
	executionID := uuid.NewString()
	start := time.Now()

	if job.Log {
		s.log.Info("job started", "job", job.Name, "execution_id", executionID)
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		return job.Run(ctx)
	}()

	if err != nil {
		s.log.Error("job failed",
			"job", job.Name,
			"execution_id", executionID,
			"duration", time.Since(start),
			"error", err)
		return
	}

	if job.Log {
		s.log.Info("job finished",
			"job", job.Name,
			"execution_id", executionID,
			"duration", time.Since(start))
	}
}
