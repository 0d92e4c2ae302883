package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Filter narrows LeastBusy to backends able to take a circuit.
type Filter struct {
	MinQubits       int
	AllowSimulators bool
}

// Registry holds backends by name in registration order.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	order    []string
	log      zerolog.Logger
}

func NewRegistry(log zerolog.Logger, backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend), log: log}
	for _, b := range backends {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[b.Name()]; ok {
		return fmt.Errorf("%s: %w", b.Name(), ErrDuplicate)
	}
	r.backends[b.Name()] = b
	r.order = append(r.order, b.Name())
	return nil
}

func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrBackendNotFound)
	}
	return b, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// LeastBusy picks the operational backend with the fewest pending jobs.
// Ties go to the earliest registered. Backends whose status cannot be read
// are skipped.
func (r *Registry) LeastBusy(ctx context.Context, f Filter) (Backend, error) {
	r.mu.RLock()
	candidates := make([]Backend, 0, len(r.order))
	for _, name := range r.order {
		candidates = append(candidates, r.backends[name])
	}
	r.mu.RUnlock()

	var best Backend
	bestPending := 0
	for _, b := range candidates {
		if b.NumQubits() < f.MinQubits || (b.Simulator() && !f.AllowSimulators) {
			continue
		}
		st, err := b.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Warn().Err(err).Str("backend", b.Name()).Msg("status unavailable")
			continue
		}
		if !st.Operational {
			continue
		}
		if best == nil || st.PendingJobs < bestPending {
			best, bestPending = b, st.PendingJobs
		}
	}
	if best == nil {
		return nil, fmt.Errorf("min qubits %d, simulators %t: %w", f.MinQubits, f.AllowSimulators, ErrNoBackend)
	}
	r.log.Debug().Str("backend", best.Name()).Int("pending", bestPending).Msg("selected least busy backend")
	return best, nil
}

// Select returns the named backend, or the least busy one when name is empty.
func (r *Registry) Select(ctx context.Context, name string, f Filter) (Backend, error) {
	if name != "" {
		return r.Get(name)
	}
	return r.LeastBusy(ctx, f)
}
