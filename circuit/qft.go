package circuit

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"qtally/cbits"
)

// Form selects the gate arrangement of a quantum Fourier transform.
type Form int

const (
	// Plain applies each Hadamard before the qubit's controlled phases.
	Plain Form = iota
	// MF (measurement friendly) applies each Hadamard after the qubit's
	// controlled phases, so every controlling qubit is finished first and
	// could be measured early.
	MF
	// Measured is the one-qubit protocol derived from MF: controlled phases
	// become classically conditioned phases on already measured bits, and
	// the work qubit is measured into one classical bit per call.
	Measured
)

func (f Form) String() string {
	switch f {
	case Plain:
		return "plain"
	case MF:
		return "mf"
	case Measured:
		return "measured"
	}
	return fmt.Sprintf("Form(%d)", int(f))
}

// ErrForm is returned when a transform is used in a way its form does not
// support.
var ErrForm = errors.New("operation not supported by this QFT form")

// Options selects a QFT variant. OutputEndian is "auto" (the default),
// "opposite", "little" or "big". auto means little-endian output for the
// inverse and measured transforms and big-endian output for the forward
// transform; opposite flips that choice.
type Options struct {
	OutputEndian string
	Inverse      bool
	Form         Form
}

// Transform is one QFT variant. Transforms are cached, so two lookups of the
// same variant return the same pointer.
type Transform struct {
	name    string
	output  cbits.BitOrder
	inverse bool
	form    Form
}

type qftKey struct {
	output  cbits.BitOrder
	inverse bool
	form    Form
}

var (
	qftMu    sync.Mutex
	qftCache = make(map[qftKey]*Transform)
)

// QFT returns the transform selected by opts.
func QFT(opts Options) (*Transform, error) {
	var output cbits.BitOrder
	switch strings.ToLower(opts.OutputEndian) {
	case "", "auto":
		output = cbits.BigEndian
		if opts.Inverse || opts.Form == Measured {
			output = cbits.LittleEndian
		}
	case "opposite", "auto_opposite":
		output = cbits.LittleEndian
		if opts.Inverse || opts.Form == Measured {
			output = cbits.BigEndian
		}
	case "little":
		output = cbits.LittleEndian
	case "big":
		output = cbits.BigEndian
	default:
		return nil, fmt.Errorf("unknown output endian %q", opts.OutputEndian)
	}
	if opts.Form < Plain || opts.Form > Measured {
		return nil, fmt.Errorf("unknown QFT form %d", opts.Form)
	}
	return lookupQFT(qftKey{output: output, inverse: opts.Inverse, form: opts.Form}), nil
}

func lookupQFT(k qftKey) *Transform {
	qftMu.Lock()
	defer qftMu.Unlock()
	if t, ok := qftCache[k]; ok {
		return t
	}
	name := "qft"
	if k.inverse {
		name = "iqft"
	}
	switch k.form {
	case MF:
		name += "_mf"
	case Measured:
		name += "_m"
	}
	if k.output == cbits.LittleEndian {
		name += "_leo"
	} else {
		name += "_beo"
	}
	t := &Transform{name: name, output: k.output, inverse: k.inverse, form: k.form}
	qftCache[k] = t
	return t
}

func opposite(o cbits.BitOrder) cbits.BitOrder {
	if o == cbits.LittleEndian {
		return cbits.BigEndian
	}
	return cbits.LittleEndian
}

// Name identifies the variant, e.g. "qft_beo" or "iqft_mf_leo".
func (t *Transform) Name() string { return t.name }

func (t *Transform) String() string { return t.name }

// OutputOrder is the bit order of the transform's output register.
func (t *Transform) OutputOrder() cbits.BitOrder { return t.output }

// IsInverse reports whether t is an inverse transform.
func (t *Transform) IsInverse() bool { return t.inverse }

// Form returns the gate arrangement of t.
func (t *Transform) Form() Form { return t.form }

// Inverse returns the transform that undoes t. It takes the opposite
// endianness, since t's output order is the inverse's input order.
func (t *Transform) Inverse() *Transform {
	return lookupQFT(qftKey{output: opposite(t.output), inverse: !t.inverse, form: t.form})
}

// OppositeEndian returns t with the other output bit order.
func (t *Transform) OppositeEndian() *Transform {
	return lookupQFT(qftKey{output: opposite(t.output), inverse: t.inverse, form: t.form})
}

// OppositeForm toggles measurement friendliness: Plain becomes MF, while MF
// and Measured both become Plain.
func (t *Transform) OppositeForm() *Transform {
	form := MF
	if t.form != Plain {
		form = Plain
	}
	return lookupQFT(qftKey{output: t.output, inverse: t.inverse, form: form})
}

// OtherMeasured swaps between the MF and Measured forms. ok is false for
// Plain transforms.
func (t *Transform) OtherMeasured() (*Transform, bool) {
	switch t.form {
	case MF:
		return lookupQFT(qftKey{output: t.output, inverse: t.inverse, form: Measured}), true
	case Measured:
		return lookupQFT(qftKey{output: t.output, inverse: t.inverse, form: MF}), true
	}
	return nil, false
}

// Doc describes the input and output conventions of t.
func (t *Transform) Doc() string {
	const (
		littleDoc = "the LSB at index 0 and the MSB at index n-1"
		bigDoc    = "the MSB at index 0 and the LSB at index n-1"
	)
	var adj string
	switch t.form {
	case MF:
		adj = "Measurement friendly form of "
	case Measured:
		adj = "Measured "
	}
	if t.inverse {
		if adj == "" {
			adj = "Inverse "
		} else {
			adj += "inverse "
		}
	}
	in, out := "a", "a_F"
	if t.inverse {
		in, out = out, in
	}
	inOrder, inDoc, outDoc := "big", bigDoc, littleDoc
	if t.output == cbits.BigEndian {
		inOrder, inDoc, outDoc = "little", littleDoc, bigDoc
	}
	if t.form == Measured {
		outDoc = "LSB = creg[0], MSB = creg[n-1]"
		if t.output == cbits.BigEndian {
			outDoc = "LSB = creg[n-1], MSB = creg[0]"
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sQFT\n\n", adj)
	fmt.Fprintf(&sb, "Input (%s): %s-endian: %s\n", in, inOrder, inDoc)
	fmt.Fprintf(&sb, "Output (%s): %s-endian: %s\n", out, t.output, outDoc)
	return sb.String()
}

// loops returns the outer qubit order and, per outer qubit j, the qubits k
// it interacts with and the exponent of the phase denominator.
func (t *Transform) loops(n int) (js []int, ks func(j int) []int, dif func(j, k int) int) {
	js = make([]int, n)
	for i := range js {
		js[i] = i
	}
	if t.output == cbits.BigEndian {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			js[i], js[j] = js[j], js[i]
		}
	}
	upper := func(j int) []int {
		out := make([]int, 0, n-j-1)
		for k := j + 1; k < n; k++ {
			out = append(out, k)
		}
		return out
	}
	lower := func(j int) []int {
		out := make([]int, 0, j)
		for k := 0; k < j; k++ {
			out = append(out, k)
		}
		return out
	}
	// Plain big and MF little pair with the lower range; the rest with the upper.
	if (t.form == Plain) == (t.output == cbits.BigEndian) {
		return js, lower, func(j, k int) int { return j - k }
	}
	return js, upper, func(j, k int) int { return k - j }
}

func (t *Transform) angle(d int) float64 {
	a := math.Pi / math.Pow(2, float64(d))
	if t.inverse {
		return -a
	}
	return a
}

// Apply appends the transform on qubits 0..n-1 of c starting at step and
// returns the next free step. Measured transforms are applied with ApplyBit
// or Example instead.
func (t *Transform) Apply(c *Circuit, n, step int) (int, error) {
	if t.form == Measured {
		return step, fmt.Errorf("%s: Apply: %w", t.name, ErrForm)
	}
	if n <= 0 || n > c.NumQubits {
		return step, fmt.Errorf("%s: %d qubits on a %d-qubit circuit: %w", t.name, n, c.NumQubits, ErrQubitRange)
	}
	js, ks, dif := t.loops(n)
	for _, j := range js {
		if t.form == Plain {
			c.AddGate("H", j, step)
			step++
		}
		for _, k := range ks(j) {
			c.AddParameterizedGate("CP", k, step, []float64{t.angle(dif(j, k))}, j)
			step++
		}
		if t.form == MF {
			c.AddGate("H", j, step)
			step++
		}
	}
	return step, nil
}

// ApplyBit runs one round of a Measured transform: work is the single qubit
// carrying this round's input, and the measured result is stored in
// reg[j]. The call must be repeated for every j of an n-bit result, in the
// order Example uses.
func (t *Transform) ApplyBit(c *Circuit, work int, reg string, j, n, step int) (int, error) {
	if t.form != Measured {
		return step, fmt.Errorf("%s: ApplyBit: %w", t.name, ErrForm)
	}
	r, _, ok := c.Cregs.Register(reg)
	if !ok {
		return step, &cbits.LookupError{Label: reg, Msg: "unknown register"}
	}
	if n > r.Width || j < 0 || j >= n {
		return step, fmt.Errorf("%s: bit %d of %d does not fit register %s[%d]", t.name, j, n, reg, r.Width)
	}
	_, ks, dif := t.loops(n)
	for _, k := range ks(j) {
		if err := c.AddClassicalControlGate("P", work, step, cbits.Bit(reg, k), 1, t.angle(dif(j, k))); err != nil {
			return step, err
		}
		step++
	}
	c.AddGate("H", work, step)
	step++
	if err := c.Measure(work, cbits.Bit(reg, j), step); err != nil {
		return step, err
	}
	return step + 1, nil
}

// Example runs a Measured transform over qubits 0..n-1, using qubit j as the
// work qubit for bit j. All qubits are left measured.
func (t *Transform) Example(c *Circuit, reg string, n, step int) (int, error) {
	if t.form != Measured {
		return step, fmt.Errorf("%s: Example: %w", t.name, ErrForm)
	}
	if n <= 0 || n > c.NumQubits {
		return step, fmt.Errorf("%s: %d qubits on a %d-qubit circuit: %w", t.name, n, c.NumQubits, ErrQubitRange)
	}
	js, _, _ := t.loops(n)
	var err error
	for _, j := range js {
		if step, err = t.ApplyBit(c, j, reg, j, n, step); err != nil {
			return step, err
		}
	}
	return step, nil
}
