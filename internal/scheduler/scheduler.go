// Package scheduler runs recurring background jobs on cron expressions.
// The only built-in job is the scheduled EPG refresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of recurring work. Failures are logged, never fatal.
type Job struct {
	Name string
	Cron string
	Run  func(ctx context.Context) error
}

// Scheduler owns the cron runner and the lifecycle context its jobs see.
type Scheduler struct {
	logger *slog.Logger
	parser cron.Parser
	runner *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	jobs   []Job
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger.With("component", "scheduler"),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		runner: cron.New(),
	}
}

// Add validates the job's cron expression and registers it. Jobs added
// after Start are picked up immediately.
func (s *Scheduler) Add(job Job) error {
	if _, err := s.parser.Parse(job.Cron); err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", job.Cron, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)

	_, err := s.runner.AddFunc(job.Cron, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("registering job %s: %w", job.Name, err)
	}
	s.logger.Info("job registered", "job", job.Name, "cron", job.Cron)
	return nil
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	start := time.Now()
	s.logger.Info("job starting", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", job.Name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("job finished", "job", job.Name, "duration", time.Since(start))
}

// Start begins dispatching jobs. The given context bounds every job run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.runner.Start()
	s.logger.Info("scheduler started")
}

// Stop cancels in-flight jobs and waits for the runner to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-s.runner.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}
