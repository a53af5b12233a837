package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler submits a full static export on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
	orch      *Orchestrator
	outDir    string
	log       *slog.Logger
}

// NewScheduler creates a scheduler that queues exports into orch.
func NewScheduler(orch *Orchestrator, outDir string, log *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, orch: orch, outDir: outDir, log: log}, nil
}

// Every schedules an export of every set each interval and returns the
// scheduler job ID.
func (s *Scheduler) Every(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.submit),
		gocron.WithName("periodic-export"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic export: %w", err)
	}
	s.log.Info("periodic export scheduled", "interval", interval, "output_dir", s.outDir)
	return job.ID().String(), nil
}

func (s *Scheduler) submit() {
	job := NewJob(nil, s.outDir)
	if err := s.orch.Submit(job); err != nil {
		s.log.Error("scheduled export not queued", "job_id", job.ID, "error", err)
		return
	}
	s.log.Info("scheduled export queued", "job_id", job.ID)
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts down the scheduler, waiting for a running submit to return.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
