package backend

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qtally/circuit"
	"qtally/sim"
)

// LocalName is the default name of the local simulator backend.
const LocalName = "local_simulator"

type LocalConfig struct {
	Name      string
	NumQubits int   // defaults to sim.MaxQubits
	Seed      int64 // defaults to sim.DefaultSeed
	Workers   int   // concurrent jobs, defaults to GOMAXPROCS
}

var _ Backend = (*Local)(nil)

// Local runs circuits on the in-process shot sampler.
type Local struct {
	cfg     LocalConfig
	log     zerolog.Logger
	slots   chan struct{}
	pending atomic.Int64
}

func NewLocal(cfg LocalConfig, log zerolog.Logger) *Local {
	if cfg.Name == "" {
		cfg.Name = LocalName
	}
	if cfg.NumQubits <= 0 || cfg.NumQubits > sim.MaxQubits {
		cfg.NumQubits = sim.MaxQubits
	}
	if cfg.Seed == 0 {
		cfg.Seed = sim.DefaultSeed
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Local{
		cfg:   cfg,
		log:   log.With().Str("backend", cfg.Name).Logger(),
		slots: make(chan struct{}, cfg.Workers),
	}
}

func (l *Local) Name() string    { return l.cfg.Name }
func (l *Local) NumQubits() int  { return l.cfg.NumQubits }
func (l *Local) Simulator() bool { return true }

func (l *Local) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	return Status{Operational: true, PendingJobs: int(l.pending.Load())}, nil
}

func (l *Local) Run(ctx context.Context, c *circuit.Circuit, opts RunOptions) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.NumQubits > l.cfg.NumQubits {
		return nil, fmt.Errorf("%s: %d > %d: %w", l.cfg.Name, c.NumQubits, l.cfg.NumQubits, ErrTooWide)
	}
	if opts.Shots <= 0 {
		opts.Shots = DefaultRunOptions().Shots
	}
	seed := opts.Seed
	if seed == 0 {
		seed = l.cfg.Seed
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(uuid.NewString(), l.cfg.Name, cancel)
	l.pending.Add(1)
	log := l.log.With().Str("job_id", job.ID).Int("shots", opts.Shots).Logger()
	log.Debug().Int("qubits", c.NumQubits).Msg("job queued")

	go func() {
		defer cancel()
		defer l.pending.Add(-1)

		select {
		case l.slots <- struct{}{}:
			defer func() { <-l.slots }()
		case <-jobCtx.Done():
			job.finish(nil, jobCtx.Err())
			log.Info().Msg("job cancelled before start")
			return
		}

		job.setStatus(JobRunning)
		start := time.Now()
		res, err := sim.Sampler{Seed: seed}.Run(jobCtx, c, sim.Options{Shots: opts.Shots, Memory: opts.Memory})
		job.finish(res, err)
		if err != nil {
			log.Error().Err(err).Msg("job failed")
			return
		}
		log.Info().
			Dur("duration", time.Since(start)).
			Int("outcomes", len(res.Counts)).
			Msg("job done")
	}()
	return job, nil
}
