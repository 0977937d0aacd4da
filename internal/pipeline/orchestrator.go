package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Orchestrator feeds queued jobs to a single worker, so extractions and
// their history writes never overlap.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	stats  *RunStats
	log    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options size the queue and job retention.
type Options struct {
	MaxQueueSize int
	JobTTL       time.Duration
}

// NewOrchestrator creates the pipeline. Call Start before submitting.
func NewOrchestrator(opts Options, deps Deps, log *slog.Logger) *Orchestrator {
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = 100
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = time.Hour
	}
	if deps.Stats == nil {
		deps.Stats = NewRunStats(opts.JobTTL)
	}
	log = log.With("component", "pipeline")
	return &Orchestrator{
		jobs:   NewJobStore(opts.JobTTL),
		queue:  make(chan *Job, opts.MaxQueueSize),
		worker: NewWorker(deps, log),
		stats:  deps.Stats,
		log:    log,
	}
}

// Start launches the worker goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				o.worker.Process(workerCtx, job)
			}
		}
	}()

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

// Stop cancels in-flight work and waits for the goroutines to exit.
// Jobs still queued are marked failed.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
	for job := range o.queue {
		job.AddError("pipeline stopped")
		job.SetStatus(StatusFailed, "stopped")
	}
}

// Submit queues a job without blocking.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Debug("job queued", "job_id", job.ID, "filename", job.Filename)
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// Enqueue queues a job, waiting for room until ctx is done.
func (o *Orchestrator) Enqueue(ctx context.Context, job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	case <-ctx.Done():
		job.AddError(ctx.Err().Error())
		job.SetStatus(StatusFailed, "queue_wait")
		return ctx.Err()
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

// Stats returns run duration statistics.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}
