package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"qtally/circuit"
	"qtally/sim"
)

var (
	ErrBackendNotFound = errors.New("backend not found")
	ErrNoBackend       = errors.New("no backend matches the filter")
	ErrTooWide         = errors.New("circuit needs more qubits than the backend has")
	ErrDuplicate       = errors.New("backend already registered")
)

// Backend executes circuits and reports measurement counts.
type Backend interface {
	Name() string
	NumQubits() int
	Simulator() bool

	// Status reports whether the backend accepts work and how much is queued.
	Status(ctx context.Context) (Status, error)

	// Run submits c and returns immediately; the result is read from the Job.
	Run(ctx context.Context, c *circuit.Circuit, opts RunOptions) (*Job, error)
}

type Status struct {
	Operational bool
	PendingJobs int
	Message     string
}

// RunOptions controls a single submission.
type RunOptions struct {
	Shots  int
	Memory bool
	Seed   int64 // simulators only; 0 means the backend default
}

// DefaultRunOptions returns 2000 shots with per-shot memory kept.
func DefaultRunOptions() RunOptions {
	return RunOptions{Shots: 2000, Memory: true}
}

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a submitted circuit. Its methods are safe for concurrent use.
type Job struct {
	ID      string
	Backend string
	Created time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status JobStatus
	result *sim.Result
	err    error
}

func newJob(id, backend string, cancel context.CancelFunc) *Job {
	return &Job{
		ID:      id,
		Backend: backend,
		Created: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  JobQueued,
	}
}

func (j *Job) setStatus(s JobStatus) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *Job) finish(res *sim.Result, err error) {
	j.mu.Lock()
	j.result, j.err = res, err
	switch {
	case err == nil:
		j.status = JobDone
	case errors.Is(err, context.Canceled):
		j.status = JobCancelled
	default:
		j.status = JobFailed
	}
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel stops a queued or running job.
func (j *Job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// Result waits for the job to finish or ctx to end.
func (j *Job) Result(ctx context.Context) (*sim.Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Execute submits c to b and waits for the result.
func Execute(ctx context.Context, b Backend, c *circuit.Circuit, opts RunOptions) (*sim.Result, error) {
	job, err := b.Run(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	return job.Result(ctx)
}
