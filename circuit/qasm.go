package circuit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"qtally/cbits"
)

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	singleGateParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `(?:\s*,\s*` + paramPattern + `)*)\s*\)\s+q\[(\d+)\];?$`)
	twoQubitRegex        = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	twoQubitParamRegex   = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	threeQubitRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\],\s*q\[(\d+)\];?$`)
	measureRegex         = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*(\w+)\[(\d+)\];?$`)
	resetRegex           = regexp.MustCompile(`^reset\s+q\[(\d+)\];?$`)
	ifRegex              = regexp.MustCompile(`^if\s*\(\s*(\w+)(?:\[(\d+)\])?\s*==\s*(\d+)\s*\)\s*(.+)$`)
	qregRegex            = regexp.MustCompile(`^qreg\s+(\w+)\[(\d+)\];?$`)
	cregRegex            = regexp.MustCompile(`^creg\s+(\w+)\[(\d+)\];?$`)
	initRegex            = regexp.MustCompile(`^//\s*init\s+((?:q\[\d+\]\s*)+):\s*(.+)$`)
	qubitRefRegex        = regexp.MustCompile(`q\[(\d+)\]`)
)

// paramCount is the number of parameters each parameterized gate takes.
var paramCount = map[string]int{
	"RX": 1, "RY": 1, "RZ": 1, "P": 1, "U1": 1, "U2": 2, "U3": 3,
	"CRX": 1, "CRY": 1, "CRZ": 1, "CU1": 1, "CP": 1,
}

var (
	singleGates = map[string]bool{"H": true, "X": true, "Y": true, "Z": true, "S": true, "T": true, "SX": true, "I": true, "ID": true}
	twoGates    = map[string]bool{"CX": true, "CZ": true, "SWAP": true, "CH": true}
)

// ToQASM generates QASM 2.0 output from the circuit. Initialization gates
// have no QASM 2.0 form and are written as "// init" directives.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.NumQubits)
	for _, r := range c.Cregs.Registers() {
		fmt.Fprintf(&sb, "creg %s[%d];\n", r.Name, r.Width)
	}
	sb.WriteString("\n")

	for _, gate := range c.Ordered() {
		switch {
		case gate.ClassicalControl >= 0:
			fmt.Fprintf(&sb, "if (%s==%d) ", c.cbitName(gate.ClassicalControl), gate.CondValue)
		case gate.CondReg != "":
			fmt.Fprintf(&sb, "if (%s==%d) ", gate.CondReg, gate.CondValue)
		}
		c.writeGate(&sb, gate)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (c *Circuit) cbitName(idx int) string {
	label, err := c.Cregs.LabelAt(idx)
	if err != nil {
		return fmt.Sprintf("c[%d]", idx)
	}
	return label.String()
}

func qubitList(qs []int) string {
	refs := make([]string, len(qs))
	for i, q := range qs {
		refs[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.Join(refs, ", ")
}

func paramList(ps []float64) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = FormatParam(p)
	}
	return strings.Join(out, ", ")
}

func (c *Circuit) writeGate(sb *strings.Builder, gate Gate) {
	gateType := strings.ToLower(gate.Type)
	switch {
	case gate.Type == TypeBarrier:
		qubits := make([]int, c.NumQubits)
		for q := range qubits {
			qubits[q] = q
		}
		fmt.Fprintf(sb, "barrier %s;", qubitList(qubits))
	case gate.Type == TypeInit:
		amps := make([]string, len(gate.Amplitudes))
		for i, a := range gate.Amplitudes {
			amps[i] = strconv.FormatComplex(a, 'g', -1, 128)
		}
		refs := make([]string, len(gate.Qubits))
		for i, q := range gate.Qubits {
			refs[i] = fmt.Sprintf("q[%d]", q)
		}
		fmt.Fprintf(sb, "// init %s : %s", strings.Join(refs, " "), strings.Join(amps, " "))
	case gate.Type == TypeReset:
		fmt.Fprintf(sb, "reset q[%d];", gate.Target)
	case gate.Type == TypeMeasure:
		fmt.Fprintf(sb, "measure q[%d] -> %s;", gate.Target, c.cbitName(gate.Cbit))
	case len(gate.Controls) > 0:
		fmt.Fprintf(sb, "%s %s;", gateType, qubitList(append(append([]int(nil), gate.Controls...), gate.Target)))
	case gate.Control >= 0:
		if gate.Type == "CP" {
			gateType = "cu1"
		}
		if len(gate.Params) > 0 {
			fmt.Fprintf(sb, "%s(%s) q[%d], q[%d];", gateType, paramList(gate.Params), gate.Control, gate.Target)
		} else {
			fmt.Fprintf(sb, "%s q[%d], q[%d];", gateType, gate.Control, gate.Target)
		}
	case len(gate.Params) > 0:
		fmt.Fprintf(sb, "%s(%s) q[%d];", gateType, paramList(gate.Params), gate.Target)
	case gate.IsDagger:
		fmt.Fprintf(sb, "%sdg q[%d];", gateType, gate.Target)
	default:
		fmt.Fprintf(sb, "%s q[%d];", gateType, gate.Target)
	}
}

// ParseQASM parses QASM text into a new circuit.
func ParseQASM(qasm string) (*Circuit, error) {
	c := &Circuit{}
	if err := c.ParseQASM(qasm); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseQASM parses QASM text and rebuilds the circuit from it. Each
// statement occupies its own step. Classical register references in
// measurements and conditions are resolved against the declared cregs.
func (c *Circuit) ParseQASM(qasm string) error {
	order := c.Cregs.Order()
	c.Gates = nil
	c.MaxSteps = 0
	c.NumQubits = 0
	c.Cregs = cbits.MustLayout().WithOrder(order)
	step := 0

	for n, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if err := c.parseLine(line, step); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
		if c.MaxSteps > step {
			step = c.MaxSteps
		}
	}
	if c.NumQubits == 0 {
		return fmt.Errorf("no qreg declaration")
	}
	return c.Validate()
}

func (c *Circuit) parseLine(line string, step int) error {
	if matches := initRegex.FindStringSubmatch(line); matches != nil {
		return c.parseInit(matches[1], matches[2], step)
	}
	switch {
	case line == "", strings.HasPrefix(line, "//"):
		return nil
	case strings.HasPrefix(line, "OPENQASM"), strings.HasPrefix(line, "include"):
		return nil
	case strings.HasPrefix(line, "qreg"):
		matches := qregRegex.FindStringSubmatch(line)
		if matches == nil {
			return fmt.Errorf("malformed qreg %q", line)
		}
		if matches[1] != "q" {
			return fmt.Errorf("quantum register must be named q, got %q", matches[1])
		}
		if c.NumQubits != 0 {
			return fmt.Errorf("only one qreg is supported")
		}
		c.NumQubits, _ = strconv.Atoi(matches[2])
		return nil
	case strings.HasPrefix(line, "creg"):
		matches := cregRegex.FindStringSubmatch(line)
		if matches == nil {
			return fmt.Errorf("malformed creg %q", line)
		}
		width, _ := strconv.Atoi(matches[2])
		return c.AddRegister(matches[1], width)
	case strings.HasPrefix(line, "barrier"):
		c.AddBarrier(step)
		return nil
	}

	// Classically conditioned statement: "if (c==3) x q[0];" or "if (c[1]==1) ..."
	if matches := ifRegex.FindStringSubmatch(line); matches != nil {
		gate, err := c.parseGate(matches[4], step)
		if err != nil {
			return err
		}
		value, err := strconv.ParseUint(matches[3], 10, 64)
		if err != nil {
			return fmt.Errorf("condition value %q: %w", matches[3], err)
		}
		if matches[2] != "" {
			off, _ := strconv.Atoi(matches[2])
			idx, err := c.Cregs.MemoryItemIndex(cbits.Bit(matches[1], off))
			if err != nil {
				return err
			}
			if value > 1 {
				return fmt.Errorf("bit %s[%d] cannot equal %d", matches[1], off, value)
			}
			gate.ClassicalControl = idx
		} else {
			r, _, ok := c.Cregs.Register(matches[1])
			if !ok {
				return &cbits.LookupError{Label: matches[1], Msg: "unknown register"}
			}
			if r.Width < 64 && value >= 1<<uint(r.Width) {
				return fmt.Errorf("value %d does not fit in %d-bit register %s", value, r.Width, r.Name)
			}
			gate.CondReg = r.Name
		}
		gate.CondValue = value
		c.add(gate)
		return nil
	}

	gate, err := c.parseGate(line, step)
	if err != nil {
		return err
	}
	c.add(gate)
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parseGate parses a single unconditioned quantum statement.
func (c *Circuit) parseGate(line string, step int) (Gate, error) {
	// Measurement: "measure q[0] -> c[0];"
	if matches := measureRegex.FindStringSubmatch(line); matches != nil {
		idx, err := c.Cregs.MemoryItemIndex(cbits.Bit(matches[2], atoi(matches[3])))
		if err != nil {
			return Gate{}, err
		}
		g := newGate(TypeMeasure, atoi(matches[1]), step)
		g.Cbit = idx
		return g, nil
	}

	if matches := resetRegex.FindStringSubmatch(line); matches != nil {
		return newGate(TypeReset, atoi(matches[1]), step), nil
	}

	// Three-qubit gates (Toffoli/CCX)
	if matches := threeQubitRegex.FindStringSubmatch(line); matches != nil {
		gateType := strings.ToUpper(matches[1])
		if gateType != "CCX" && gateType != "TOFFOLI" {
			return Gate{}, fmt.Errorf("unsupported gate %q", matches[1])
		}
		g := newGate("CCX", atoi(matches[4]), step)
		g.Controls = []int{atoi(matches[2]), atoi(matches[3])}
		return g, nil
	}

	// Two-qubit gates: cx, cz, swap, ch
	if matches := twoQubitRegex.FindStringSubmatch(line); matches != nil {
		gateType := strings.ToUpper(matches[1])
		if !twoGates[gateType] {
			return Gate{}, fmt.Errorf("unsupported gate %q", matches[1])
		}
		g := newGate(gateType, atoi(matches[3]), step)
		g.Control = atoi(matches[2])
		return g, nil
	}

	// Two-qubit parameterized gates (CRX, CRY, CRZ, CU1, CP)
	if matches := twoQubitParamRegex.FindStringSubmatch(line); matches != nil {
		gateType := strings.ToUpper(matches[1])
		if paramCount[gateType] != 1 || !strings.HasPrefix(gateType, "C") {
			return Gate{}, fmt.Errorf("unsupported gate %q", matches[1])
		}
		param, err := ParseParam(matches[2])
		if err != nil {
			return Gate{}, err
		}
		g := newGate(gateType, atoi(matches[4]), step)
		g.Control = atoi(matches[3])
		g.Params = []float64{param}
		return g, nil
	}

	// Single-qubit parameterized gates (RX, RY, RZ, P, U1, U2, U3)
	if matches := singleGateParamRegex.FindStringSubmatch(line); matches != nil {
		gateType := strings.ToUpper(matches[1])
		params, err := ParseParams(matches[2])
		if err != nil {
			return Gate{}, err
		}
		want, ok := paramCount[gateType]
		if !ok || strings.HasPrefix(gateType, "C") {
			return Gate{}, fmt.Errorf("unsupported gate %q", matches[1])
		}
		if len(params) != want {
			return Gate{}, fmt.Errorf("%s takes %d parameters, got %d", matches[1], want, len(params))
		}
		g := newGate(gateType, atoi(matches[3]), step)
		g.Params = params
		return g, nil
	}

	// Single-qubit gate (including dagger gates sdg, tdg, sxdg)
	if matches := singleGateRegex.FindStringSubmatch(line); matches != nil {
		gateType := strings.ToUpper(matches[1])
		isDagger := false
		if base, ok := strings.CutSuffix(gateType, "DG"); ok && singleGates[base] {
			gateType, isDagger = base, true
		}
		if !singleGates[gateType] {
			return Gate{}, fmt.Errorf("unsupported gate %q", matches[1])
		}
		g := newGate(gateType, atoi(matches[2]), step)
		g.IsDagger = isDagger
		return g, nil
	}

	return Gate{}, fmt.Errorf("unrecognized statement %q", line)
}

func (c *Circuit) parseInit(refs, amps string, step int) error {
	var qubits []int
	for _, m := range qubitRefRegex.FindAllStringSubmatch(refs, -1) {
		qubits = append(qubits, atoi(m[1]))
	}
	var amplitudes Amplitudes
	for _, field := range strings.Fields(amps) {
		a, err := strconv.ParseComplex(field, 128)
		if err != nil {
			return fmt.Errorf("init amplitude %q: %w", field, err)
		}
		amplitudes = append(amplitudes, a)
	}
	return c.Initialize(step, amplitudes, qubits...)
}
