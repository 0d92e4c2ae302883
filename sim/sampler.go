package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"qtally/cbits"
	"qtally/circuit"
)

// DefaultSeed is the seed a zero Sampler uses, so repeated runs of the same
// circuit give the same counts.
const DefaultSeed int64 = 100

// ErrNoClassicalBits is returned when a circuit has nothing to record
// measurements into.
var ErrNoClassicalBits = errors.New("circuit has no classical registers")

// Options controls a sampling run.
type Options struct {
	Shots  int
	Memory bool // keep the per-shot outcomes in Result.Memory
}

// Result holds the outcome of a sampling run. Counts keys are formatted
// with the circuit's register layout: one space between registers, the
// first register rightmost in little-endian order.
type Result struct {
	Layout cbits.Layout
	Counts cbits.Counts
	Memory []string
	Shots  int
	Seed   int64
}

// Tally aggregates the result's counts by predicate.
func (r *Result) Tally(predicates, keys []string) (*cbits.Tally, error) {
	return cbits.GatherCounts(r.Counts, r.Layout, predicates, keys)
}

// Sampler runs circuits shot by shot on the state vector engine.
type Sampler struct {
	Seed int64
}

// Run samples c for opts.Shots shots. Measurements collapse the state and
// write their classical bit; conditioned gates read the bits written so far.
func (s Sampler) Run(ctx context.Context, c *circuit.Circuit, opts Options) (*Result, error) {
	if opts.Shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", opts.Shots)
	}
	if c.Cregs.Width() == 0 {
		return nil, ErrNoClassicalBits
	}
	if c.NumQubits > MaxQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyQubits, c.NumQubits, MaxQubits)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	seed := s.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	res := &Result{
		Layout: c.Cregs,
		Counts: make(cbits.Counts),
		Shots:  opts.Shots,
		Seed:   seed,
	}
	if opts.Memory {
		res.Memory = make([]string, 0, opts.Shots)
	}
	record := func(mem []bool) {
		key := c.Cregs.FormatOutcome(mem)
		res.Counts[key]++
		if opts.Memory {
			res.Memory = append(res.Memory, key)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	gates := c.Ordered()
	if prefix, measures, ok := terminal(gates); ok {
		if err := sampleFinal(ctx, c, prefix, measures, opts.Shots, rng, record); err != nil {
			return nil, err
		}
		return res, nil
	}

	initial := NewStateVector(c.NumQubits)
	for shot := range opts.Shots {
		if shot%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		state := initial.Clone()
		mem := make([]bool, c.Cregs.Width())
		for _, g := range gates {
			if !conditionHolds(c.Cregs, g, mem) {
				continue
			}
			if err := runGate(state, g, mem, rng); err != nil {
				return nil, fmt.Errorf("step %d: %w", g.Step, err)
			}
		}
		record(mem)
	}
	return res, nil
}

func runGate(state *StateVector, g circuit.Gate, mem []bool, rng *rand.Rand) error {
	switch g.Type {
	case circuit.TypeMeasure:
		mem[g.Cbit] = state.Measure(g.Target, rng)
	case circuit.TypeReset:
		state.Reset(g.Target, rng)
	case circuit.TypeInit:
		for _, q := range g.Qubits {
			state.Reset(q, rng)
		}
		state.prepare(g.Qubits, g.Amplitudes)
	default:
		return state.ApplyGate(g)
	}
	return nil
}

func conditionHolds(layout cbits.Layout, g circuit.Gate, mem []bool) bool {
	switch {
	case g.ClassicalControl >= 0:
		return mem[g.ClassicalControl] == (g.CondValue == 1)
	case g.CondReg != "":
		r, off, ok := layout.Register(g.CondReg)
		if !ok {
			return false
		}
		var v uint64
		for i := range r.Width {
			if mem[off+i] {
				v |= 1 << uint(i)
			}
		}
		return v == g.CondValue
	}
	return true
}

// terminal splits gates into a deterministic prefix and trailing
// measurements. ok is false when sampling needs a fresh pass per shot: a
// conditioned gate, a reset, an initialization of a used qubit, or any
// operation after the first measurement.
func terminal(gates []circuit.Gate) (prefix, measures []circuit.Gate, ok bool) {
	touched := make(map[int]bool)
	for i, g := range gates {
		if g.Conditioned() || g.Type == circuit.TypeReset {
			return nil, nil, false
		}
		if g.Type == circuit.TypeMeasure {
			for _, rest := range gates[i:] {
				switch rest.Type {
				case circuit.TypeMeasure:
					measures = append(measures, rest)
				case circuit.TypeBarrier:
				default:
					return nil, nil, false
				}
			}
			return gates[:i], measures, true
		}
		if g.Type == circuit.TypeInit {
			for _, q := range g.Qubits {
				if touched[q] {
					return nil, nil, false
				}
			}
		}
		markTouched(touched, g)
	}
	return gates, nil, true
}

// sampleFinal evolves the prefix once and draws every shot from the final
// distribution.
func sampleFinal(ctx context.Context, c *circuit.Circuit, prefix, measures []circuit.Gate, shots int, rng *rand.Rand, record func([]bool)) error {
	pc := *c
	pc.Gates = prefix
	state, err := SimulateCircuit(&pc, -1)
	if err != nil {
		return err
	}
	probs := state.Probabilities()
	cum := make([]float64, len(probs))
	total := 0.0
	for i, p := range probs {
		total += p
		cum[i] = total
	}
	for shot := range shots {
		if shot%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r := rng.Float64() * total
		idx := sort.SearchFloat64s(cum, r)
		for idx < len(cum)-1 && probs[idx] == 0 {
			idx++
		}
		if idx >= len(cum) {
			idx = len(cum) - 1
		}
		mem := make([]bool, c.Cregs.Width())
		for _, m := range measures {
			mem[m.Cbit] = idx>>m.Target&1 == 1
		}
		record(mem)
	}
	return nil
}
