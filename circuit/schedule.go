package circuit

// wires lists the resources a gate occupies: qubits first, then classical
// bits offset by the qubit count. Two gates sharing a wire keep their
// relative order.
func (c *Circuit) wires(g Gate) []int {
	var ws []int
	switch g.Type {
	case TypeBarrier:
		for q := range c.NumQubits {
			ws = append(ws, q)
		}
		return ws
	case TypeInit:
		ws = append(ws, g.Qubits...)
	default:
		ws = append(ws, g.Target)
	}
	if g.Control >= 0 {
		ws = append(ws, g.Control)
	}
	ws = append(ws, g.Controls...)
	if g.Cbit >= 0 {
		ws = append(ws, c.NumQubits+g.Cbit)
	}
	if g.ClassicalControl >= 0 {
		ws = append(ws, c.NumQubits+g.ClassicalControl)
	}
	if g.CondReg != "" {
		if r, off, ok := c.Cregs.Register(g.CondReg); ok {
			for i := range r.Width {
				ws = append(ws, c.NumQubits+off+i)
			}
		}
	}
	return ws
}

// Compact moves every gate to the earliest step after the previous gates on
// the same qubits or classical bits, so independent gates share a step. The
// order of operations on any single wire is unchanged.
func (c *Circuit) Compact() {
	gates := c.Ordered()
	last := make(map[int]int)
	c.MaxSteps = 0
	for i := range gates {
		ws := c.wires(gates[i])
		step := 0
		for _, w := range ws {
			if s, ok := last[w]; ok && s+1 > step {
				step = s + 1
			}
		}
		gates[i].Step = step
		for _, w := range ws {
			last[w] = step
		}
		if step >= c.MaxSteps {
			c.MaxSteps = step + 1
		}
	}
	c.Gates = gates
}

// Depth returns the number of steps the circuit would occupy after Compact,
// without modifying it.
func (c *Circuit) Depth() int {
	cp := *c
	cp.Gates = c.Ordered()
	cp.Compact()
	return cp.MaxSteps
}
