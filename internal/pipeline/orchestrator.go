package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrRunNotFound is returned for unknown or expired run IDs.
var ErrRunNotFound = errors.New("run not found")

// ErrRunNotRetryable is returned when retrying a run that is still active
// or already completed.
var ErrRunNotRetryable = errors.New("run is not in a retryable state")

// OrchestratorConfig sizes the worker pool.
type OrchestratorConfig struct {
	WorkerCount  int
	MaxQueueSize int
}

// Orchestrator runs queued quiz runs on a fixed pool of workers.
type Orchestrator struct {
	runs     *RunStore
	queue    chan *Run
	pipeline *Pipeline
	log      *slog.Logger
	cfg      OrchestratorConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pool. Call Start to launch workers.
func NewOrchestrator(cfg OrchestratorConfig, p *Pipeline, runs *RunStore, log *slog.Logger) *Orchestrator {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 1
	}
	return &Orchestrator{
		runs:     runs,
		queue:    make(chan *Run, cfg.MaxQueueSize),
		pipeline: p,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, run)
				}
			}
		}()
	}
}

func (o *Orchestrator) process(ctx context.Context, run *Run) {
	// Errors are already recorded on the run and logged by the pipeline.
	_, _ = o.pipeline.Run(ctx, run)
	o.runs.Put(run)
}

// Stop cancels in-flight runs and waits for workers to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit registers and queues a new run.
func (o *Orchestrator) Submit(run *Run) error {
	o.runs.Put(run)
	return o.enqueue(run)
}

// Retry re-queues a failed or partial run under the same ID. Chunks that
// already completed are served from the checkpoint.
func (o *Orchestrator) Retry(id string) (*Run, error) {
	run := o.runs.Get(id)
	if run == nil {
		return nil, ErrRunNotFound
	}
	switch run.Snapshot().Status {
	case StatusFailed, StatusPartial:
	default:
		return nil, ErrRunNotRetryable
	}
	run.Reset()
	o.runs.Put(run)
	return run, o.enqueue(run)
}

func (o *Orchestrator) enqueue(run *Run) error {
	select {
	case o.queue <- run:
		return nil
	default:
		run.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetRun returns a run by ID, or nil.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
