package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/lotes-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Observer receives the outcome of every job run
type Observer interface {
	ObserveJob(name string, started time.Time, err error)
}

type namedJob struct {
	name string
	run  Job
}

// Worker manages background jobs and scheduled tasks
type Worker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan namedJob
	asyncSem chan struct{}
	observer Observer

	mu       sync.RWMutex
	closed   bool
	stats    WorkerStats
	lastRuns map[string]JobRun
}

// JobRun describes the latest run of a named job
type JobRun struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int               `json:"active_jobs"`
	CompletedJobs int64             `json:"completed_jobs"`
	FailedJobs    int64             `json:"failed_jobs"`
	QueueLength   int               `json:"queue_length"`
	MaxConcurrent int               `json:"max_concurrent"`
	LastRuns      map[string]JobRun `json:"last_runs"`
}

// NewWorker creates a worker with N concurrent processors.
// observer may be nil.
func NewWorker(numWorkers int, observer Observer) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan namedJob, 100),
		asyncSem: make(chan struct{}, asyncLimit),
		observer: observer,
		lastRuns: make(map[string]JobRun),
	}
	w.stats.MaxConcurrent = asyncLimit

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool.
// When the queue is full the job runs on the caller's goroutine.
func (w *Worker) Enqueue(name string, job Job) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		logger.Warn("worker stopped, dropping job", "job", name)
		return
	}
	select {
	case w.queue <- namedJob{name: name, run: job}:
		w.mu.RUnlock()
		return
	default:
	}
	w.mu.RUnlock()

	logger.Warn("worker queue full, running job synchronously", "job", name)
	w.run(name, job)
}

// EnqueueAsync runs a job in its own goroutine, bounded by a semaphore
func (w *Worker) EnqueueAsync(name string, job Job) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		logger.Warn("worker stopped, dropping async job", "job", name)
		return
	}
	w.wg.Add(1)
	w.mu.RUnlock()

	go func() {
		defer w.wg.Done()
		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()
		w.run(name, job)
	}()
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			logger.Debug("worker picked job", "worker", workerID, "job", job.name)
			w.run(job.name, job.run)
		}
	}
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval.
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, false)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, true)
}

func (w *Worker) schedule(name string, interval time.Duration, job Job, immediate bool) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run(name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run(name, job)
			}
		}
	}()
}

// RunNow executes a job synchronously with the caller's context and records it like any other run
func (w *Worker) RunNow(ctx context.Context, name string, job Job) error {
	return w.execute(ctx, name, job)
}

func (w *Worker) run(name string, job Job) {
	_ = w.execute(w.ctx, name, job)
}

func (w *Worker) execute(ctx context.Context, name string, job Job) (err error) {
	w.trackJobStart()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		if err != nil {
			logger.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
		} else {
			logger.Info("job completed", "job", name, "duration", time.Since(start))
		}
		w.trackJobEnd(name, start, err)
		if w.observer != nil {
			w.observer.ObserveJob(name, start, err)
		}
	}()

	return job(ctx)
}

// Shutdown stops accepting jobs, cancels the schedulers and waits for running jobs
func (w *Worker) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.LastRuns = make(map[string]JobRun, len(w.lastRuns))
	for name, run := range w.lastRuns {
		stats.LastRuns[name] = run
	}
	return stats
}

func (w *Worker) trackJobStart() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.ActiveJobs++
}

// CompletedJobs counts every finished run; FailedJobs is the failing subset
func (w *Worker) trackJobEnd(name string, start time.Time, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
	run := JobRun{StartedAt: start, Duration: time.Since(start).String()}
	if err != nil {
		w.stats.FailedJobs++
		run.Error = err.Error()
	}
	w.lastRuns[name] = run
}
