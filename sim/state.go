package sim

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"qtally/circuit"
)

// MaxQubits bounds the state vector size the simulator will allocate.
const MaxQubits = 20

var (
	// ErrUnsupportedGate is returned for gate types the simulator does not know.
	ErrUnsupportedGate = errors.New("unsupported gate")
	// ErrTooManyQubits is returned for circuits wider than MaxQubits.
	ErrTooManyQubits = errors.New("too many qubits to simulate")
)

type Complex = complex128

// matrix is a single-qubit operator [[a, b], [c, d]].
type matrix [2][2]Complex

func (m matrix) adjoint() matrix {
	return matrix{
		{cmplx.Conj(m[0][0]), cmplx.Conj(m[1][0])},
		{cmplx.Conj(m[0][1]), cmplx.Conj(m[1][1])},
	}
}

func phase(theta float64) Complex { return cmplx.Exp(complex(0, theta)) }

var (
	hFactor = complex(1/math.Sqrt2, 0)

	fixedGates = map[string]matrix{
		"H":  {{hFactor, hFactor}, {hFactor, -hFactor}},
		"X":  {{0, 1}, {1, 0}},
		"Y":  {{0, -1i}, {1i, 0}},
		"Z":  {{1, 0}, {0, -1}},
		"S":  {{1, 0}, {0, 1i}},
		"T":  {{1, 0}, {0, phase(math.Pi / 4)}},
		"SX": {{0.5 + 0.5i, 0.5 - 0.5i}, {0.5 - 0.5i, 0.5 + 0.5i}},
		"I":  {{1, 0}, {0, 1}},
		"ID": {{1, 0}, {0, 1}},
	}

	// controlled maps a controlled gate onto the operator it applies to the
	// target.
	controlled = map[string]string{
		"CX": "X", "CCX": "X", "TOFFOLI": "X", "CZ": "Z", "CH": "H",
		"CRX": "RX", "CRY": "RY", "CRZ": "RZ", "CU1": "P", "CP": "P",
	}
)

func u3(theta, phi, lambda float64) matrix {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return matrix{
		{complex(c, 0), -phase(lambda) * complex(s, 0)},
		{phase(phi) * complex(s, 0), phase(phi+lambda) * complex(c, 0)},
	}
}

func param(params []float64, i int) float64 {
	if i < len(params) {
		return params[i]
	}
	return 0
}

// operator returns the single-qubit operator for a gate type.
func operator(gateType string, params []float64, dagger bool) (matrix, error) {
	var m matrix
	if f, ok := fixedGates[gateType]; ok {
		m = f
	} else {
		theta := param(params, 0)
		c, s := math.Cos(theta/2), math.Sin(theta/2)
		switch gateType {
		case "RX":
			m = matrix{{complex(c, 0), complex(0, -s)}, {complex(0, -s), complex(c, 0)}}
		case "RY":
			m = matrix{{complex(c, 0), complex(-s, 0)}, {complex(s, 0), complex(c, 0)}}
		case "RZ":
			m = matrix{{phase(-theta / 2), 0}, {0, phase(theta / 2)}}
		case "P", "U1":
			m = matrix{{1, 0}, {0, phase(theta)}}
		case "U2":
			m = u3(math.Pi/2, param(params, 0), param(params, 1))
		case "U3":
			m = u3(theta, param(params, 1), param(params, 2))
		default:
			return matrix{}, fmt.Errorf("%w: %s", ErrUnsupportedGate, gateType)
		}
	}
	if dagger {
		m = m.adjoint()
	}
	return m, nil
}

type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

func NewStateVector(numQubits int) *StateVector {
	n := 1 << numQubits
	amps := make([]Complex, n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// ApplyGate applies a unitary gate. Measurement, reset and initialization
// are not unitary and are handled by the sampler.
func (s *StateVector) ApplyGate(g circuit.Gate) error {
	switch g.Type {
	case circuit.TypeBarrier:
		return nil
	case "SWAP":
		if g.Control < 0 {
			return fmt.Errorf("SWAP needs two qubits")
		}
		s.applySWAP(g.Control, g.Target)
		return nil
	case circuit.TypeMeasure, circuit.TypeReset, circuit.TypeInit:
		return fmt.Errorf("%s is not a unitary gate", g.Type)
	}

	gateType := g.Type
	var controls []int
	if base, ok := controlled[gateType]; ok {
		gateType = base
		controls = g.Controls
		if g.Control >= 0 {
			controls = append([]int{g.Control}, controls...)
		}
		if len(controls) == 0 {
			return fmt.Errorf("%s needs a control qubit", g.Type)
		}
	}
	m, err := operator(gateType, g.Params, g.IsDagger)
	if err != nil {
		return err
	}
	s.applyMatrix(g.Target, m, controls)
	return nil
}

// applyMatrix applies m to qubit q on the subspace where every control is 1.
func (s *StateVector) applyMatrix(q int, m matrix, controls []int) {
	bit := 1 << q
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}
	for i := range s.Amplitudes {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a0 + m[0][1]*a1
		s.Amplitudes[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

func (s *StateVector) applySWAP(q1, q2 int) {
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := range s.Amplitudes {
		if i&bit1 != 0 && i&bit2 == 0 {
			j := (i & ^bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// prob1 returns the probability of measuring qubit q as 1.
func (s *StateVector) prob1(q int) float64 {
	bit := 1 << q
	p := 0.0
	for i, a := range s.Amplitudes {
		if i&bit != 0 {
			p += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return p
}

// project collapses qubit q onto outcome and renormalizes. p is the
// probability of that outcome.
func (s *StateVector) project(q int, outcome bool, p float64) {
	bit := 1 << q
	norm := complex(math.Sqrt(p), 0)
	for i := range s.Amplitudes {
		if (i&bit != 0) != outcome {
			s.Amplitudes[i] = 0
		} else if p > 0 {
			s.Amplitudes[i] /= norm
		}
	}
}

// Measure samples qubit q, collapses the state and returns the outcome.
func (s *StateVector) Measure(q int, rng *rand.Rand) bool {
	p1 := s.prob1(q)
	outcome := rng.Float64() < p1
	if outcome {
		s.project(q, true, p1)
	} else {
		s.project(q, false, 1-p1)
	}
	return outcome
}

// Reset measures qubit q and flips it back to |0> when it read 1.
func (s *StateVector) Reset(q int, rng *rand.Rand) {
	if s.Measure(q, rng) {
		s.applyMatrix(q, fixedGates["X"], nil)
	}
}

// applyReset projects q onto |0> without sampling. When q is certainly 1 the
// projection is empty and the 1 branch is moved to 0 instead.
func (s *StateVector) applyReset(q int) {
	p1 := s.prob1(q)
	if p1 > 1-1e-12 {
		s.applyMatrix(q, fixedGates["X"], nil)
		return
	}
	s.project(q, false, 1-p1)
}

// prepare loads amps onto qubits, which must all be |0>. Bit k of an
// amplitude index addresses qubits[k].
func (s *StateVector) prepare(qubits []int, amps []Complex) {
	mask := 0
	for _, q := range qubits {
		mask |= 1 << q
	}
	out := make([]Complex, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		if i&mask != 0 || a == 0 {
			continue
		}
		for b, v := range amps {
			j := i
			for k, q := range qubits {
				if b>>k&1 == 1 {
					j |= 1 << q
				}
			}
			out[j] += a * v
		}
	}
	s.Amplitudes = out
}

// Probabilities returns the probability of every basis state.
func (s *StateVector) Probabilities() []float64 {
	out := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		out[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

func (s *StateVector) GetQubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	for i, a := range s.Amplitudes {
		prob := real(a)*real(a) + imag(a)*imag(a)
		for q := 0; q < s.NumQubits; q++ {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += prob
			} else {
				probs[q].Prob0 += prob
			}
		}
	}
	return probs
}

// BasisState is one nonzero component of a state vector.
type BasisState struct {
	Index     int
	Amplitude Complex
	Prob      float64
	Phase     float64
}

// NonZero lists basis states with probability above tol, in index order.
func (s *StateVector) NonZero(tol float64) []BasisState {
	var out []BasisState
	for i, amp := range s.Amplitudes {
		prob := real(amp)*real(amp) + imag(amp)*imag(amp)
		if prob > tol {
			out = append(out, BasisState{Index: i, Amplitude: amp, Prob: prob, Phase: cmplx.Phase(amp)})
		}
	}
	return out
}

// SimulateCircuit evolves the state through the circuit's gates up to and
// including upToStep (all gates when negative). Measurements and classically
// conditioned gates are skipped, resets project onto |0>, and
// initializations require their qubits to be untouched.
func SimulateCircuit(c *circuit.Circuit, upToStep int) (*StateVector, error) {
	if c.NumQubits > MaxQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyQubits, c.NumQubits, MaxQubits)
	}
	state := NewStateVector(max(c.NumQubits, 1))
	touched := make(map[int]bool)
	for _, gate := range c.Ordered() {
		if upToStep >= 0 && gate.Step > upToStep {
			break
		}
		if gate.Type == circuit.TypeMeasure || gate.Conditioned() {
			continue
		}
		switch gate.Type {
		case circuit.TypeReset:
			state.applyReset(gate.Target)
		case circuit.TypeInit:
			for _, q := range gate.Qubits {
				if touched[q] {
					return nil, fmt.Errorf("initialize at step %d: q[%d] already in use", gate.Step, q)
				}
			}
			state.prepare(gate.Qubits, gate.Amplitudes)
		default:
			if err := state.ApplyGate(gate); err != nil {
				return nil, fmt.Errorf("step %d: %w", gate.Step, err)
			}
		}
		markTouched(touched, gate)
	}
	return state, nil
}

func markTouched(touched map[int]bool, g circuit.Gate) {
	if g.Type == circuit.TypeBarrier {
		return
	}
	touched[g.Target] = true
	if g.Control >= 0 {
		touched[g.Control] = true
	}
	for _, q := range g.Controls {
		touched[q] = true
	}
	for _, q := range g.Qubits {
		touched[q] = true
	}
}
