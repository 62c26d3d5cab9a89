package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/sheetgen/internal/config"
	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/ocr"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("pipeline is shutting down")

// Orchestrator runs OCR jobs on a bounded queue served by a fixed worker pool.
type Orchestrator struct {
	jobs       *JobStore
	queue      chan *Job
	recognizer ocr.Recognizer
	parser     *genealogy.Parser
	log        *slog.Logger
	cfg        config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards stopped and sends on queue
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, recognizer ocr.Recognizer, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:       NewJobStore(cfg.JobTTL),
		queue:      make(chan *Job, cfg.MaxQueueSize),
		recognizer: recognizer,
		parser:     genealogy.NewParser(),
		log:        log,
		cfg:        cfg,
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
			w := NewWorker(o.recognizer, o.parser, o.log, o.cfg.OCRTimeout)
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

// Stop gracefully shuts down the pipeline. Jobs submitted afterwards are
// rejected with ErrStopped. Stop is safe to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.AddError(ErrStopped.Error())
		job.SetStatus(StatusFailed, "shutting_down")
		return ErrStopped
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("job queue is full")
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

// Recognizer returns the OCR engine for direct use by handlers.
func (o *Orchestrator) Recognizer() ocr.Recognizer {
	return o.recognizer
}

// ExtractText is the synchronous path for text that needs no OCR: typed,
// pasted or loaded from a text document.
func (o *Orchestrator) ExtractText(text string) (*genealogy.Document, error) {
	doc, err := o.parser.Parse(text)
	if err != nil {
		return nil, err
	}
	if doc.Empty() {
		o.log.Warn("no data extracted", "bytes", len(text))
	} else {
		o.log.Info("extracted document", "persons", len(doc.Persons), "generation_title", doc.GenerationTitle)
	}
	return doc, nil
}
