// Package scheduler starts the batch workflows on cron schedules. It never
// runs a batch itself; the Temporal worker does.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ecopulse/internal/workflows"

	"github.com/robfig/cron/v3"
)

type Starter interface {
	StartDailyTips(ctx context.Context, in workflows.DailyTipsInput) (string, error)
	StartGlobalImpact(ctx context.Context) (string, error)
}

type Scheduler struct {
	starter Starter
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

func New(starter Starter) *Scheduler {
	return &Scheduler{
		starter: starter,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "scheduler"),
	}
}

// Add validates both expressions and registers the jobs. An empty expression disables that job.
func (s *Scheduler) Add(ctx context.Context, dailyTips, globalImpact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dailyTips != "" {
		if err := s.add(dailyTips, "daily_tips", func() (string, error) {
			return s.starter.StartDailyTips(ctx, workflows.DailyTipsInput{})
		}); err != nil {
			return err
		}
	}
	if globalImpact != "" {
		if err := s.add(globalImpact, "global_impact", func() (string, error) {
			return s.starter.StartGlobalImpact(ctx)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) add(spec, job string, start func() (string, error)) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for %s: %w", spec, job, err)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.fire(job, start) }); err != nil {
		return fmt.Errorf("schedule %s: %w", job, err)
	}
	s.logger.Info("job scheduled", "job", job, "schedule", spec)
	return nil
}

func (s *Scheduler) fire(job string, start func() (string, error)) {
	id, err := start()
	if errors.Is(err, workflows.ErrAlreadyStarted) {
		s.logger.Info("scheduled workflow already ran", "job", job, "workflow_id", id)
		return
	}
	if err != nil {
		s.logger.Error("start scheduled workflow", "job", job, "error", err)
		return
	}
	s.logger.Info("scheduled workflow started", "job", job, "workflow_id", id)
}

// Start runs the cron loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.cron.Start()
	s.running = true
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops the cron loop and waits for a job that is starting a workflow.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRuns maps each job entry to its next fire time, in registration order.
func (s *Scheduler) NextRuns() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if e.Next.IsZero() {
			out = append(out, e.Schedule.Next(time.Now()))
			continue
		}
		out = append(out, e.Next)
	}
	return out
}

// RunNow fires every registered job once, outside the schedule.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	entries := s.cron.Entries()
	s.mu.Unlock()
	for _, e := range entries {
		e.Job.Run()
	}
}
