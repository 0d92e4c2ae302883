package main

import (
	"fmt"
	"strings"

	"qtally/circuit"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// gateDisplayName returns a short display name for a gate type.
func gateDisplayName(g *circuit.Gate) string {
	switch g.Type {
	case circuit.TypeMeasure:
		return "M"
	case circuit.TypeReset:
		return "|0>"
	case "CU1", "CP":
		return "P"
	case "CRX", "CRY", "CRZ":
		return g.Type[1:]
	}
	if g.IsDagger {
		return g.Type + "dg"
	}
	return g.Type
}

// controlSymbol returns the wire symbol for the control qubit of a two-qubit gate.
func controlSymbol(gateType string) string {
	if gateType == "SWAP" {
		return "×"
	}
	return "●"
}

// targetSymbol returns the wire symbol for the target of a controlled gate,
// or "" when the target is drawn as a box.
func targetSymbol(gateType string) string {
	switch gateType {
	case "CZ":
		return "●"
	case "SWAP":
		return "×"
	case "CX", "CCX", "TOFFOLI":
		return "⊕"
	}
	return ""
}

// conditionLabel renders a classical condition as "c[0]=1" or "flag=2".
func conditionLabel(c *circuit.Circuit, g *circuit.Gate) string {
	if g.CondReg != "" {
		return fmt.Sprintf("%s=%d", g.CondReg, g.CondValue)
	}
	if l, err := c.Cregs.LabelAt(g.ClassicalControl); err == nil {
		return fmt.Sprintf("%s=%d", l, g.CondValue)
	}
	return fmt.Sprintf("[%d]=%d", g.ClassicalControl, g.CondValue)
}

// ──────────────────────────── Cell layout ────────────────────────────

// cellInfo describes what occupies a single cell in the circuit grid.
type cellInfo struct {
	gate         *circuit.Gate
	isControl    bool
	isTarget     bool
	vertAbove    bool
	vertBelow    bool
	passThrough  bool
	measureBelow bool
	isBarrier    bool
	condition    string
}

// span returns the qubit range a multi-qubit gate connects.
func span(g circuit.Gate) (lo, hi int, ok bool) {
	qs := append([]int{}, g.Controls...)
	if g.Control >= 0 {
		qs = append(qs, g.Control)
	}
	if g.Type == circuit.TypeInit {
		qs = append(qs, g.Qubits...)
	} else if len(qs) > 0 || g.Type == "SWAP" {
		qs = append(qs, g.Target)
	}
	if len(qs) < 2 {
		return 0, 0, false
	}
	lo, hi = qs[0], qs[0]
	for _, q := range qs[1:] {
		lo, hi = min(lo, q), max(hi, q)
	}
	return lo, hi, true
}

// cellAt returns rendering information for the cell at (step, qubit).
func cellAt(c *circuit.Circuit, step, qubit int) cellInfo {
	var info cellInfo

	if gate := c.GetGateAt(step, qubit); gate != nil && gate.Type != circuit.TypeBarrier {
		info.gate = gate
		info.isControl = gate.Control == qubit
		for _, ctrl := range gate.Controls {
			if ctrl == qubit {
				info.isControl = true
			}
		}
		info.isTarget = gate.Target == qubit && (gate.Control >= 0 || len(gate.Controls) > 0)
		if gate.Conditioned() && gate.Target == qubit {
			info.condition = conditionLabel(c, gate)
		}
	}

	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step != step {
			continue
		}
		if g.Type == circuit.TypeBarrier {
			info.isBarrier = true
			if info.gate == nil {
				info.gate = g
			}
			continue
		}
		if lo, hi, ok := span(*g); ok && qubit >= lo && qubit <= hi {
			if qubit > lo {
				info.vertAbove = true
			}
			if qubit < hi {
				info.vertBelow = true
			}
			if qubit > lo && qubit < hi && info.gate == nil {
				info.passThrough = true
			}
		}
		// Measurement lines run down to the classical wires.
		if g.Type == circuit.TypeMeasure && qubit > g.Target {
			info.measureBelow = true
		}
	}
	return info
}

// measureAt returns the measurement at step, or nil.
func measureAt(c *circuit.Circuit, step int) *circuit.Gate {
	for i := range c.Gates {
		if c.Gates[i].Step == step && c.Gates[i].Type == circuit.TypeMeasure {
			return &c.Gates[i]
		}
	}
	return nil
}

// ──────────────────────────── Cell rendering ────────────────────────────

// renderCell returns 3 lines (top, mid, bot) for a single cell.
// Each line is exactly cellW visual characters wide.
func renderCell(info cellInfo, cursor bool) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dblVertRow := strings.Repeat(" ", halfW) + cbitConnectorStyle.Render("║") + strings.Repeat(" ", cellW-halfW-1)
	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1
	margin := (cellW - gateBoxW) / 2
	rightMargin := cellW - margin - gateBoxW

	style := gateStyle
	if cursor {
		style = cursorBoxStyle
	}

	boxed := func(name string) {
		top = strings.Repeat(" ", margin) + style.Render("┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + style.Render("┤"+padCenter(name, gateNameW)+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + style.Render("└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)
		if info.vertAbove {
			top = strings.Repeat(" ", margin) + style.Render("┌"+strings.Repeat("─", gateNameW/2)+"┴"+strings.Repeat("─", gateNameW-gateNameW/2-1)+"┐") + strings.Repeat(" ", rightMargin)
		}
		if info.vertBelow {
			bot = strings.Repeat(" ", margin) + style.Render("└"+strings.Repeat("─", gateNameW/2)+"┬"+strings.Repeat("─", gateNameW-gateNameW/2-1)+"┘") + strings.Repeat(" ", rightMargin)
		}
	}
	symbol := func(sym string) {
		top = emptyRow
		if info.vertAbove {
			top = vertRow
		}
		mid = strings.Repeat("─", dashL) + style.Render(sym) + strings.Repeat("─", dashR)
		bot = emptyRow
		if info.vertBelow {
			bot = vertRow
		}
	}

	switch {
	case info.gate != nil && info.gate.Type != circuit.TypeBarrier:
		g := info.gate
		switch {
		case info.isControl:
			symbol(controlSymbol(g.Type))
		case g.Type == "SWAP":
			symbol("×")
		case info.isTarget && targetSymbol(g.Type) != "":
			symbol(targetSymbol(g.Type))
		case g.Type == circuit.TypeInit:
			boxed("init")
		default:
			boxed(gateDisplayName(g))
		}
		if info.condition != "" {
			bot = cbitConnectorStyle.Render(padCenter(info.condition, cellW))
		} else if info.measureBelow {
			bot = dblVertRow
		}

	case info.isBarrier:
		top = vertRow
		mid = strings.Repeat("─", dashL) + dimStyle.Render("░") + strings.Repeat("─", dashR)
		bot = vertRow

	case info.passThrough:
		top = vertRow
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)
		bot = vertRow
		if info.measureBelow {
			bot = dblVertRow
		}

	case info.measureBelow:
		// No gate here, but a measurement connection passes through vertically
		top = dblVertRow
		mid = strings.Repeat("─", dashL) + cbitConnectorStyle.Render("╫") + strings.Repeat("─", dashR)
		bot = dblVertRow

	default:
		top = emptyRow
		mid = strings.Repeat("─", cellW)
		bot = emptyRow
		if cursor {
			mid = cursorBoxStyle.Render(mid)
		}
	}
	return
}

// ──────────────────────────── Circuit drawing ────────────────────────────

// drawCircuit renders steps [startStep, startStep+steps) of c as text, one
// three-line row per qubit followed by one wire per classical register.
// cursor highlights a step column; pass -1 for none.
func drawCircuit(c *circuit.Circuit, startStep, steps, cursor int) string {
	var sb strings.Builder

	header := strings.Repeat(" ", labelVisualW)
	for step := startStep; step < startStep+steps; step++ {
		label := padCenter(fmt.Sprintf("%d", step), cellW)
		if step == cursor {
			header += cursorBoxStyle.Render(label)
		} else {
			header += dimStyle.Render(label)
		}
	}
	sb.WriteString(header + "\n")

	for qubit := range c.NumQubits {
		topLine := strings.Repeat(" ", labelVisualW)
		label := fmt.Sprintf("q[%d]", qubit)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-5s", label)) + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for step := startStep; step < startStep+steps; step++ {
			top, mid, bot := renderCell(cellAt(c, step, qubit), step == cursor)
			topLine += top
			midLine += mid
			botLine += bot
		}

		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}

	regs := c.Cregs.Registers()
	for ri, r := range regs {
		_, off, _ := c.Cregs.Register(r.Name)
		label := fmt.Sprintf("%s%d", r.Name, r.Width)
		if len(label) > 5 {
			label = label[:5]
		}
		line := cbitLabelStyle.Render(fmt.Sprintf("%-5s", label)) + cbitWireStyle.Render("══")

		for step := startStep; step < startStep+steps; step++ {
			g := measureAt(c, step)
			switch {
			case g != nil && g.Cbit >= off && g.Cbit < off+r.Width:
				// Land on this register with the bit offset next to it
				bitLabel := fmt.Sprintf("%d", g.Cbit-off)
				dashL := (cellW - 1) / 2
				dashR := max(cellW-dashL-1-len(bitLabel), 0)
				line += cbitWireStyle.Render(strings.Repeat("═", dashL)) +
					cbitConnectorStyle.Render("╩"+bitLabel) +
					cbitWireStyle.Render(strings.Repeat("═", dashR))
			case g != nil && g.Cbit >= off+r.Width && ri < len(regs)-1:
				dashL := (cellW - 1) / 2
				line += cbitWireStyle.Render(strings.Repeat("═", dashL)) +
					cbitConnectorStyle.Render("╬") +
					cbitWireStyle.Render(strings.Repeat("═", cellW-dashL-1))
			default:
				line += cbitWireStyle.Render(strings.Repeat("═", cellW))
			}
		}
		sb.WriteString(line + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites the overlay string on top of the background at position (x, y).
// It handles ANSI escape sequences by tracking visible column positions.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	ovLines := strings.Split(overlay, "\n")

	for i, ovLine := range ovLines {
		bgIdx := y + i
		if bgIdx < 0 || bgIdx >= len(bgLines) {
			continue
		}
		bgLines[bgIdx] = spliceLineAt(bgLines[bgIdx], ovLine, x)
	}
	return strings.Join(bgLines, "\n")
}

func isEscEnd(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// spliceLineAt replaces visible columns starting at position x in bgLine with overlay content.
func spliceLineAt(bgLine, overlay string, x int) string {
	runes := []rune(bgLine)
	ovWidth := visibleLen(overlay)

	var prefix, suffix strings.Builder
	col, i := 0, 0

	// Collect prefix: everything up to visible column x
	for i < len(runes) && col < x {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				prefix.WriteRune(runes[i])
				i++
				if runes[i-1] != '\x1b' && runes[i-1] != '[' && isEscEnd(runes[i-1]) {
					break
				}
			}
			continue
		}
		prefix.WriteRune(runes[i])
		col++
		i++
	}
	for col < x {
		prefix.WriteRune(' ')
		col++
	}

	// Skip over ovWidth visible columns in the background
	for skipped := 0; i < len(runes) && skipped < ovWidth; {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				i++
				if runes[i-1] != '\x1b' && runes[i-1] != '[' && isEscEnd(runes[i-1]) {
					break
				}
			}
			continue
		}
		skipped++
		i++
	}

	for ; i < len(runes); i++ {
		suffix.WriteRune(runes[i])
	}
	return prefix.String() + overlay + suffix.String()
}

// visibleLen returns the number of visible (non-ANSI-escape) characters in a string.
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if isEscEnd(r) {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}
