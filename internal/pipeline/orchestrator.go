package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/search"
	"github.com/dgallion1/docsite/internal/site"
)

// Orchestrator queues static exports and runs them on a fixed worker pool.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	site      *site.Site
	log       *slog.Logger
	rec       metrics.Recorder
	cfg       config.Config
	searchCfg search.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, st *site.Site, log *slog.Logger, rec metrics.Recorder) *Orchestrator {
	searchCfg := search.DefaultConfig()
	if cfg.SearchSectionWords > 0 {
		searchCfg.MaxWords = cfg.SearchSectionWords
	}
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		site:      st,
		log:       log,
		rec:       metrics.OrNoop(rec),
		cfg:       cfg,
		searchCfg: searchCfg,
	}
}

// NewWorker returns a worker configured like the orchestrator's own.
func (o *Orchestrator) NewWorker() *Worker {
	return NewWorker(o.site, o.log, o.rec, o.searchCfg, o.cfg.MaxConcurrentRender)
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range max(o.cfg.WorkerCount, 1) {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.NewWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		job.SetStatus(StatusFailed, "shutting_down")
		return errors.New("pipeline is shutting down")
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Site returns the content sets the pipeline exports.
func (o *Orchestrator) Site() *site.Site {
	return o.site
}
