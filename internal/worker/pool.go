// Package worker runs dataset imports in the background.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/songmatch/internal/catalog"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/metrics"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("worker: import queue is full")

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("worker: job not found")

// MaxFinishedJobs is how many finished jobs stay queryable; older ones are
// forgotten first.
const MaxFinishedJobs = 100

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Importer is the operation the pool runs for each job.
type Importer interface {
	ImportDataset(ctx context.Context, location string) (catalog.Info, error)
}

// Job is the externally visible state of one import.
type Job struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Songs       int        `json:"songs,omitempty"`
	Warnings    int        `json:"warnings,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Pool manages background workers for import jobs.
type Pool struct {
	importer Importer
	workers  int
	jobs     chan string

	mu       sync.Mutex
	status   map[string]*Job
	finished []string
}

// NewPool creates a worker pool with the given worker count and queue size.
func NewPool(importer Importer, workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		importer: importer,
		workers:  workers,
		jobs:     make(chan string, queueSize),
		status:   make(map[string]*Job),
	}
}

// Serve runs the workers until ctx is done. It satisfies suture.Service.
func (p *Pool) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-p.jobs:
					p.processJob(ctx, id)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) String() string { return "import-worker-pool" }

// Submit queues an import without blocking.
func (p *Pool) Submit(source string) (Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		Source:      source,
		Status:      StatusQueued,
		SubmittedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.status[job.ID] = job
	p.mu.Unlock()

	select {
	case p.jobs <- job.ID:
		return p.snapshot(job), nil
	default:
		logging.Warn().Str("job_id", job.ID).Str("source", source).Msg("worker: dropping import job, queue full")
		p.mu.Lock()
		delete(p.status, job.ID)
		p.mu.Unlock()
		metrics.ImportJobsTotal.WithLabelValues("rejected").Inc()
		return Job{}, ErrQueueFull
	}
}

// Get returns the current state of a job.
func (p *Pool) Get(id string) (Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.status[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

func (p *Pool) snapshot(job *Job) Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *job
}

func (p *Pool) processJob(ctx context.Context, id string) {
	p.mu.Lock()
	job, ok := p.status[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	source := job.Source
	p.mu.Unlock()

	log := logging.With().Str("job_id", id).Str("source", source).Logger()
	log.Info().Msg("import started")

	info, err := p.importer.ImportDataset(ctx, source)
	if err != nil {
		log.Warn().Err(err).Msg("import failed")
	} else {
		log.Info().Int("songs", info.Songs).Msg("import finished")
	}
	p.finish(id, info.Songs, len(info.Warnings), err)
}

func (p *Pool) finish(id string, songs, warnings int, err error) {
	now := time.Now().UTC()
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.status[id]
	if !ok {
		return
	}
	job.FinishedAt = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusSucceeded
		job.Songs = songs
		job.Warnings = warnings
	}
	metrics.ImportJobsTotal.WithLabelValues(string(job.Status)).Inc()

	p.finished = append(p.finished, id)
	if len(p.finished) > MaxFinishedJobs {
		delete(p.status, p.finished[0])
		p.finished = p.finished[1:]
	}
}
