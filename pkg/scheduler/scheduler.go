// Package scheduler runs a task on a recurring schedule with bounded
// sleeps, so a stop request is observed within a minute even when the
// next fire is hours away.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tcgrabber/pkg/logger"
)

// maxSleep bounds each wait so Stop is observed promptly
const maxSleep = time.Minute

// Scheduler fires a task on a cron schedule
type Scheduler struct {
	schedule       cron.Schedule
	task           func() error
	loc            *time.Location
	logger         logger.Logger
	runImmediately bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a scheduler for the given schedule and task. Task errors
// are logged and the schedule keeps running.
func New(schedule cron.Schedule, loc *time.Location, task func() error, runImmediately bool, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		schedule:       schedule,
		task:           task,
		loc:            loc,
		logger:         log,
		runImmediately: runImmediately,
	}
}

// Start begins the schedule loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(stop)
}

// Stop halts the schedule loop and waits for an in-flight run to
// finish. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether the schedule loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	if s.runImmediately {
		s.fire()
	}

	for {
		next := s.schedule.Next(time.Now().In(s.loc))
		s.logger.InfoWithFields("Next run scheduled", map[string]interface{}{
			"at": next.Format(time.RFC3339),
		})

		if !s.sleepUntil(stop, next) {
			return
		}
		s.fire()
	}
}

// sleepUntil waits for the fire instant in bounded slices, returning
// false when the scheduler was stopped while waiting.
func (s *Scheduler) sleepUntil(stop <-chan struct{}, next time.Time) bool {
	for {
		remaining := time.Until(next)
		if remaining <= 0 {
			return true
		}
		if remaining > maxSleep {
			remaining = maxSleep
		}

		timer := time.NewTimer(remaining)
		select {
		case <-stop:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// fire runs the task once, containing both errors and panics so a bad
// run never takes the loop down.
func (s *Scheduler) fire() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorWithFields("Scheduled run panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()

	start := time.Now()
	if err := s.task(); err != nil {
		s.logger.ErrorWithFields("Scheduled run failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(start).String(),
		})
		return
	}
	s.logger.InfoWithFields("Scheduled run finished", map[string]interface{}{
		"duration": time.Since(start).String(),
	})
}
