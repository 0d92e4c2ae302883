package circuit

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"
)

// Eps is the tolerance for probability sums, amplitude norms and phase
// magnitudes.
const Eps = 1e-10

var (
	// ErrProbabilitySum is returned when probabilities add up to neither 1
	// nor 100.
	ErrProbabilitySum = errors.New("probabilities must sum to 1 or 100")
	// ErrNotNormalized is returned when amplitudes do not have unit norm.
	ErrNotNormalized = errors.New("amplitudes are not normalized")
)

// InitParams is the state description Initialize accepts: either raw
// Amplitudes or Probabilities with optional phase factors.
type InitParams interface {
	amplitudes() ([]complex128, error)
}

// Amplitudes is a state vector given directly. Amplitude index bit k
// corresponds to the k-th qubit passed to Initialize.
type Amplitudes []complex128

func (a Amplitudes) amplitudes() ([]complex128, error) {
	norm := 0.0
	for _, v := range a {
		norm += real(v)*real(v) + imag(v)*imag(v)
	}
	if math.Abs(norm-1) > Eps*float64(max(len(a), 1)) {
		return nil, fmt.Errorf("%w: sum of squared magnitudes is %g", ErrNotNormalized, norm)
	}
	return slices.Clone(a), nil
}

// Prob is the probability of one basis state, with a phase factor of unit
// magnitude. The zero Phase means no phase.
type Prob struct {
	P     float64
	Phase complex128
}

// Pr is a probability with no phase.
func Pr(p float64) Prob { return Prob{P: p, Phase: 1} }

// PrPhase is a probability with the given unit-magnitude phase factor.
func PrPhase(p float64, phase complex128) Prob { return Prob{P: p, Phase: phase} }

// Probabilities describes a state by per-basis-state probabilities. The
// values may sum to 1, or to 100 when given as percentages.
type Probabilities []Prob

func (ps Probabilities) amplitudes() ([]complex128, error) {
	amps := make([]complex128, len(ps))
	sum := 0.0
	for i, pr := range ps {
		phase := pr.Phase
		if phase == 0 {
			phase = 1
		}
		if math.Abs(cmplx.Abs(phase)-1) > Eps {
			return nil, fmt.Errorf("basis state %d: phase factor %v does not have unit magnitude", i, phase)
		}
		p := pr.P
		if p < 0 {
			if p < -Eps {
				return nil, fmt.Errorf("basis state %d: negative probability %g", i, p)
			}
			p = 0
		}
		sum += p
		amps[i] = complex(math.Sqrt(p), 0) * phase
	}
	switch {
	case math.Abs(sum-1) <= Eps:
	case math.Abs(sum-100) <= Eps*100:
		for i := range amps {
			amps[i] /= 10
		}
	default:
		return nil, fmt.Errorf("%w: got %g", ErrProbabilitySum, sum)
	}
	return amps, nil
}

// Initialize resets the given qubits and prepares them in the state
// described by params. With no qubits listed, all qubits are initialized.
// The description must have 2^len(qubits) entries.
func (c *Circuit) Initialize(step int, params InitParams, qubits ...int) error {
	if len(qubits) == 0 {
		qubits = make([]int, c.NumQubits)
		for q := range qubits {
			qubits[q] = q
		}
	}
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("initialize q[%d]: %w", q, ErrQubitRange)
		}
		if seen[q] {
			return fmt.Errorf("initialize: q[%d] listed twice", q)
		}
		seen[q] = true
	}
	amps, err := params.amplitudes()
	if err != nil {
		return err
	}
	if len(amps) != 1<<uint(len(qubits)) {
		return fmt.Errorf("initialize: %d amplitudes for %d qubits, want %d", len(amps), len(qubits), 1<<uint(len(qubits)))
	}
	g := newGate(TypeInit, qubits[0], step)
	g.Qubits = slices.Clone(qubits)
	g.Amplitudes = amps
	c.add(g)
	return nil
}
