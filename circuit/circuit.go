package circuit

import (
	"errors"
	"fmt"
	"slices"

	"qtally/cbits"
)

// Gate type names shared with the simulator.
const (
	TypeMeasure = "MEASURE"
	TypeReset   = "RESET"
	TypeBarrier = "BARRIER"
	TypeInit    = "INIT"
)

// MeasureRegister is the register MeasureAll adds.
const MeasureRegister = "meas"

// ErrQubitRange is returned when a gate addresses a qubit outside the circuit.
var ErrQubitRange = errors.New("qubit out of range")

// Gate represents an operation placed on the circuit.
type Gate struct {
	Type     string
	Target   int
	Control  int       // -1 if not a controlled gate
	Controls []int     // multiple control qubits (CCX)
	Qubits   []int     // INIT: qubits in amplitude-index order
	Step     int       // position in circuit timeline
	Params   []float64 // parameters for parameterized gates
	IsDagger bool

	// Cbit is the destination memory index of a measurement, -1 otherwise.
	Cbit int

	// ClassicalControl is the memory index of a single-bit condition, or -1.
	// CondReg names a register for a whole-register condition. In both cases
	// the gate only runs when the bit or register equals CondValue.
	ClassicalControl int
	CondReg          string
	CondValue        uint64

	Amplitudes []complex128 // INIT
}

// Conditioned reports whether the gate depends on classical memory.
func (g Gate) Conditioned() bool {
	return g.ClassicalControl >= 0 || g.CondReg != ""
}

// Circuit holds a quantum circuit: a qubit count, the classical register
// layout measurements write into, and gates ordered by step.
type Circuit struct {
	NumQubits int
	Cregs     cbits.Layout
	Gates     []Gate
	MaxSteps  int
}

// New returns an empty circuit with the given qubits and classical registers.
func New(numQubits int, cregs ...cbits.Register) (*Circuit, error) {
	if numQubits <= 0 {
		return nil, fmt.Errorf("circuit needs at least one qubit, got %d", numQubits)
	}
	layout, err := cbits.NewLayout(cregs...)
	if err != nil {
		return nil, err
	}
	return &Circuit{NumQubits: numQubits, Cregs: layout}, nil
}

func newGate(gateType string, target, step int) Gate {
	return Gate{
		Type:             gateType,
		Target:           target,
		Control:          -1,
		Step:             step,
		Cbit:             -1,
		ClassicalControl: -1,
	}
}

func (c *Circuit) add(g Gate) {
	c.Gates = append(c.Gates, g)
	if g.Step >= c.MaxSteps {
		c.MaxSteps = g.Step + 1
	}
}

// AddGate appends a gate to the circuit.
func (c *Circuit) AddGate(gateType string, target, step int, control ...int) {
	g := newGate(gateType, target, step)
	if len(control) > 0 {
		g.Control = control[0]
	}
	c.add(g)
}

// AddParameterizedGate appends a parameterized gate to the circuit.
func (c *Circuit) AddParameterizedGate(gateType string, target, step int, params []float64, control ...int) {
	g := newGate(gateType, target, step)
	g.Params = params
	if len(control) > 0 {
		g.Control = control[0]
	}
	c.add(g)
}

// AddMultiControlGate appends a multi-controlled gate to the circuit.
func (c *Circuit) AddMultiControlGate(gateType string, target, step int, controls []int) {
	g := newGate(gateType, target, step)
	g.Controls = controls
	c.add(g)
}

// AddDaggerGate appends a dagger (adjoint) gate to the circuit.
func (c *Circuit) AddDaggerGate(gateType string, target, step int) {
	g := newGate(gateType, target, step)
	g.IsDagger = true
	c.add(g)
}

// AddClassicalControlGate appends a single-qubit gate that runs only when
// the classical bit equals value.
func (c *Circuit) AddClassicalControlGate(gateType string, target, step int, bit cbits.Label, value uint64, params ...float64) error {
	idx, err := c.Cregs.MemoryItemIndex(bit)
	if err != nil {
		return err
	}
	if value > 1 {
		return fmt.Errorf("bit %s cannot equal %d", bit, value)
	}
	g := newGate(gateType, target, step)
	g.Params = params
	g.ClassicalControl = idx
	g.CondValue = value
	c.add(g)
	return nil
}

// AddRegisterControlGate appends a single-qubit gate that runs only when the
// named register holds value.
func (c *Circuit) AddRegisterControlGate(gateType string, target, step int, reg string, value uint64, params ...float64) error {
	r, _, ok := c.Cregs.Register(reg)
	if !ok {
		return &cbits.LookupError{Label: reg, Msg: "unknown register"}
	}
	if r.Width < 64 && value >= 1<<uint(r.Width) {
		return fmt.Errorf("value %d does not fit in %d-bit register %s", value, r.Width, reg)
	}
	g := newGate(gateType, target, step)
	g.Params = params
	g.CondReg = reg
	g.CondValue = value
	c.add(g)
	return nil
}

// AddReset appends a reset to |0> on target.
func (c *Circuit) AddReset(target, step int) {
	c.add(newGate(TypeReset, target, step))
}

// AddBarrier appends a barrier spanning all qubits at the given step.
func (c *Circuit) AddBarrier(step int) {
	c.Gates = slices.DeleteFunc(c.Gates, func(g Gate) bool {
		return g.Step == step && g.Type == TypeBarrier
	})
	c.add(newGate(TypeBarrier, -1, step))
}

// AddRegister appends a classical register to the circuit's layout.
func (c *Circuit) AddRegister(name string, width int) error {
	regs := append(c.Cregs.Registers(), cbits.Register{Name: name, Width: width})
	layout, err := cbits.NewLayout(regs...)
	if err != nil {
		return err
	}
	c.Cregs = layout.WithOrder(c.Cregs.Order())
	return nil
}

// Measure measures qubit into the classical bit named by label.
func (c *Circuit) Measure(qubit int, label cbits.Label, step int) error {
	if qubit < 0 || qubit >= c.NumQubits {
		return fmt.Errorf("measure q[%d]: %w", qubit, ErrQubitRange)
	}
	idx, err := c.Cregs.MemoryItemIndex(label)
	if err != nil {
		return err
	}
	g := newGate(TypeMeasure, qubit, step)
	g.Cbit = idx
	c.add(g)
	return nil
}

// MeasureAll adds a register named meas with one bit per qubit, a barrier,
// and a measurement of every qubit i into meas[i]. It returns the next free
// step.
func (c *Circuit) MeasureAll(step int) (int, error) {
	if err := c.AddRegister(MeasureRegister, c.NumQubits); err != nil {
		return step, err
	}
	c.AddBarrier(step)
	step++
	for q := range c.NumQubits {
		if err := c.Measure(q, cbits.Bit(MeasureRegister, q), step); err != nil {
			return step, err
		}
		step++
	}
	return step, nil
}

// gateReferences reports whether the gate references the given qubit.
func (g Gate) gateReferences(qubit int) bool {
	if g.Target == qubit || g.Control == qubit {
		return true
	}
	return slices.Contains(g.Controls, qubit) || slices.Contains(g.Qubits, qubit)
}

// GetGateAt returns the gate at the given step and qubit, or nil.
func (c *Circuit) GetGateAt(step, qubit int) *Gate {
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step == step && g.gateReferences(qubit) {
			return g
		}
	}
	return nil
}

// Ordered returns the gates sorted by step, keeping insertion order within a
// step.
func (c *Circuit) Ordered() []Gate {
	out := slices.Clone(c.Gates)
	slices.SortStableFunc(out, func(a, b Gate) int { return a.Step - b.Step })
	return out
}

// Validate checks every gate's qubits and classical references.
func (c *Circuit) Validate() error {
	check := func(g Gate, q int) error {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("%s at step %d: q[%d]: %w", g.Type, g.Step, q, ErrQubitRange)
		}
		return nil
	}
	for _, g := range c.Gates {
		if g.Type != TypeBarrier && g.Type != TypeInit {
			if err := check(g, g.Target); err != nil {
				return err
			}
		}
		if g.Control >= 0 {
			if err := check(g, g.Control); err != nil {
				return err
			}
		}
		for _, q := range append(slices.Clone(g.Controls), g.Qubits...) {
			if err := check(g, q); err != nil {
				return err
			}
		}
		if g.Type == TypeMeasure && (g.Cbit < 0 || g.Cbit >= c.Cregs.Width()) {
			return fmt.Errorf("measure q[%d] at step %d: classical bit %d outside layout %s", g.Target, g.Step, g.Cbit, c.Cregs)
		}
		if g.ClassicalControl >= c.Cregs.Width() {
			return fmt.Errorf("%s at step %d: condition bit %d outside layout %s", g.Type, g.Step, g.ClassicalControl, c.Cregs)
		}
		if g.CondReg != "" {
			if _, _, ok := c.Cregs.Register(g.CondReg); !ok {
				return &cbits.LookupError{Label: g.CondReg, Msg: "unknown register"}
			}
		}
	}
	return nil
}
