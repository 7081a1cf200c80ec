package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"constructerp/internal/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrphanSweepJob is the scheduler name of the orphaned child sweep.
const OrphanSweepJob = "vendor-invoice-orphan-sweep"

// Scheduler runs the service's background jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
	log       zerolog.Logger
}

// NewScheduler creates a scheduler with the orphan sweep registered every interval.
func NewScheduler(sweeper *OrphanSweeper, interval time.Duration) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler: scheduler,
		jobs:      make(map[string]gocron.Job),
		log:       logger.WithComponent("scheduler"),
	}

	sweep := func(ctx context.Context) error {
		_, err := sweeper.Run(ctx)
		return err
	}
	if err := s.AddJob(OrphanSweepJob, interval, sweep); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	return s, nil
}

// Start starts the job scheduler
func (s *Scheduler) Start() {
	s.log.Info().Strs("jobs", s.JobNames()).Msg("starting background job scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() error {
	s.log.Info().Msg("stopping background job scheduler")
	return s.scheduler.Shutdown()
}

// AddJob registers task to run every interval. A run still in progress when
// the next one is due pushes the next one back instead of overlapping.
func (s *Scheduler) AddJob(name string, interval time.Duration, task func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				s.log.Error().Err(err).Str("job", jobName).Msg("background job failed")
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.log.Debug().Str("job", name).Dur("interval", interval).Msg("registered background job")
	return nil
}

// RunNow runs a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}
	return job.RunNow()
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[name]; exists {
		delete(s.jobs, name)
		return s.scheduler.RemoveJob(job.ID())
	}
	return nil
}

// JobNames lists the registered jobs in name order.
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
