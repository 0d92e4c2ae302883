package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"qtally/cbits"
	"qtally/circuit"
	"qtally/sim"
)

// focus represents which panel/mode has keyboard input.
type focus int

const (
	focusInput focus = iota
	focusTally
	focusCircuit
	focusMenu
)

// stateRows is how many basis states the circuit panel lists.
const stateRows = 8

// tallyFile is where ctrl+s writes the tally.
const tallyFile = "tally.yaml"

// Model is the counts explorer: a histogram of a run's outcomes, a live
// predicate input, and a list of saved predicates with their totals.
type Model struct {
	circ     *circuit.Circuit // nil when exploring stored counts
	res      *sim.Result
	outcomes []string // sorted by count, most frequent first

	input     textinput.Model
	live      *cbits.Predicate
	liveCount int
	liveErr   error

	preds     []*cbits.Predicate
	tally     *cbits.Tally
	tallyErr  error
	rowCursor int

	cursorStep    int
	viewStartStep int
	state         []sim.BasisState
	stateErr      error

	width     int
	height    int
	focus     focus
	statusMsg string

	menu     []menuCategory
	menuCat  int
	menuItem int
}

func newModel(c *circuit.Circuit, res *sim.Result, predicates []string) (Model, error) {
	ti := textinput.New()
	ti.Prompt = "predicate> "
	ti.Placeholder = "e.g. c[0] & !c[1]"
	ti.Focus()

	m := Model{
		circ:       c,
		res:        res,
		input:      ti,
		focus:      focusInput,
		menu:       snippetMenu(res.Layout),
		cursorStep: -1,
	}
	m.outcomes = res.Counts.Outcomes()
	sort.SliceStable(m.outcomes, func(i, j int) bool {
		return res.Counts[m.outcomes[i]] > res.Counts[m.outcomes[j]]
	})

	listed := make(map[string]bool, len(predicates))
	for _, text := range predicates {
		p, err := cbits.Parse(text, res.Layout)
		if err != nil {
			return Model{}, fmt.Errorf("predicate %q: %w", text, err)
		}
		if canon := p.String(); !listed[canon] {
			listed[canon] = true
			m.preds = append(m.preds, p)
		}
	}
	m.retally()
	if c != nil {
		m.cursorStep = maxStep(c)
		m.resimulate()
	}
	return m, nil
}

func maxStep(c *circuit.Circuit) int {
	last := 0
	for _, g := range c.Gates {
		last = max(last, g.Step)
	}
	return last
}

// evaluate reparses the input and recounts the live predicate.
func (m *Model) evaluate() {
	m.live, m.liveCount, m.liveErr = nil, 0, nil
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	p, err := cbits.Parse(text, m.res.Layout)
	if err != nil {
		m.liveErr = err
		return
	}
	t, err := cbits.GatherPredicates(m.res.Counts, []*cbits.Predicate{p}, []string{"live"})
	if err != nil {
		m.liveErr = err
		return
	}
	m.live = p
	m.liveCount, _ = t.Get("live")
}

func (m *Model) retally() {
	labels := make([]string, len(m.preds))
	for i, p := range m.preds {
		labels[i] = p.String()
	}
	m.tally, m.tallyErr = cbits.GatherPredicates(m.res.Counts, m.preds, labels)
}

func (m *Model) resimulate() {
	m.state, m.stateErr = nil, nil
	state, err := sim.SimulateCircuit(m.circ, m.cursorStep)
	if err != nil {
		m.stateErr = err
		return
	}
	m.state = state.NonZero(circuit.Eps)
	sort.SliceStable(m.state, func(i, j int) bool { return m.state[i].Prob > m.state[j].Prob })
}

// addLive moves the live predicate into the tally list.
func (m *Model) addLive() {
	if m.live == nil {
		if m.liveErr == nil {
			m.statusMsg = "Nothing to add"
		}
		return
	}
	canon := m.live.String()
	for _, p := range m.preds {
		if p.String() == canon {
			m.statusMsg = "Already listed: " + canon
			return
		}
	}
	m.preds = append(m.preds, m.live)
	m.retally()
	m.rowCursor = len(m.preds) - 1
	m.input.SetValue("")
	m.evaluate()
}

// insertSnippet splices s into the input at the cursor.
func (m *Model) insertSnippet(s string) {
	v := m.input.Value()
	pos := min(m.input.Position(), len(v))
	m.input.SetValue(v[:pos] + s + v[pos:])
	m.input.SetCursor(pos + len(s))
	m.evaluate()
}

func (m *Model) saveTally() error {
	out := struct {
		Layout string         `yaml:"layout"`
		Shots  int            `yaml:"shots"`
		Tally  map[string]int `yaml:"tally"`
	}{Layout: m.res.Layout.String(), Shots: m.res.Counts.Shots(), Tally: map[string]int{}}
	if m.tally != nil {
		out.Tally = m.tally.Map()
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(tallyFile, data, 0o644)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if key == "ctrl+s" {
			if err := m.saveTally(); err != nil {
				m.statusMsg = fmt.Sprintf("Save error: %v", err)
			} else {
				m.statusMsg = "Saved " + tallyFile
			}
			break
		}

		switch m.focus {
		case focusInput:
			switch key {
			case "tab":
				m.setFocus(focusTally)
			case "esc":
				return m, tea.Quit
			case "enter":
				m.addLive()
			case "ctrl+a":
				m.menuCat, m.menuItem = 0, 0
				m.setFocus(focusMenu)
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
				m.evaluate()
			}

		case focusTally:
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				if m.circ != nil {
					m.setFocus(focusCircuit)
				} else {
					m.setFocus(focusInput)
				}
			case "esc":
				m.setFocus(focusInput)
			case "up", "k":
				if m.rowCursor > 0 {
					m.rowCursor--
				}
			case "down", "j":
				if m.rowCursor < len(m.preds)-1 {
					m.rowCursor++
				}
			case "backspace", "delete", "x":
				if len(m.preds) > 0 {
					m.preds = append(m.preds[:m.rowCursor], m.preds[m.rowCursor+1:]...)
					m.rowCursor = max(min(m.rowCursor, len(m.preds)-1), 0)
					m.retally()
				}
			case "enter", "e":
				if len(m.preds) > 0 {
					m.input.SetValue(m.preds[m.rowCursor].String())
					m.input.CursorEnd()
					m.setFocus(focusInput)
					m.evaluate()
				}
			}

		case focusCircuit:
			switch key {
			case "q":
				return m, tea.Quit
			case "tab", "esc":
				m.setFocus(focusInput)
			case "left", "h":
				if m.cursorStep > 0 {
					m.cursorStep--
					if m.cursorStep < m.viewStartStep {
						m.viewStartStep = m.cursorStep
					}
					m.resimulate()
				}
			case "right", "l":
				if m.cursorStep < maxStep(m.circ) {
					m.cursorStep++
					m.resimulate()
				}
			case "home":
				m.cursorStep, m.viewStartStep = 0, 0
				m.resimulate()
			case "end":
				m.cursorStep = maxStep(m.circ)
				m.resimulate()
			}

		case focusMenu:
			switch key {
			case "esc":
				m.setFocus(focusInput)
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
				}
			case "down", "j":
				if m.menuItem < len(m.menu[m.menuCat].items)-1 {
					m.menuItem++
				}
			case "left", "h":
				if m.menuCat > 0 {
					m.menuCat--
					m.menuItem = 0
				}
			case "right", "l":
				if m.menuCat < len(m.menu)-1 {
					m.menuCat++
					m.menuItem = 0
				}
			case "enter":
				m.setFocus(focusInput)
				m.insertSnippet(m.menu[m.menuCat].items[m.menuItem].snippet)
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// ──────────────────────────── View ────────────────────────────

// errorKind names the failure class of a predicate error.
func errorKind(err error) string {
	switch {
	case errors.Is(err, cbits.ErrSyntax):
		return "syntax error"
	case errors.Is(err, cbits.ErrLookup):
		return "lookup error"
	case errors.Is(err, cbits.ErrValue):
		return "value error"
	}
	return "error"
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

// renderCountsPanel draws one histogram bar per outcome, highlighting the
// outcomes the live predicate accepts.
func (m Model) renderCountsPanel(width, height int) string {
	var sb strings.Builder
	shots := m.res.Counts.Shots()
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Counts  %s  (%d shots)", m.res.Layout, shots)))
	sb.WriteString("\n\n")

	top := 0
	if len(m.outcomes) > 0 {
		top = m.res.Counts[m.outcomes[0]]
	}
	keyW := 0
	for _, o := range m.outcomes {
		keyW = max(keyW, len(o))
	}
	barW := max(min(barMaxW, width-keyW-20), 1)
	rows := max(height-4, 1)

	for i, o := range m.outcomes {
		if i == rows-1 && len(m.outcomes) > rows {
			fmt.Fprintf(&sb, "%s\n", dimStyle.Render(fmt.Sprintf("… %d more", len(m.outcomes)-i)))
			break
		}
		n := m.res.Counts[o]
		w := 0
		if top > 0 {
			w = max(n*barW/top, 1)
		}
		bar := strings.Repeat("█", w)
		marker := "  "
		style := barStyle
		if m.live != nil {
			if ok, err := m.live.Evaluate(o); err == nil && ok {
				marker = matchBarStyle.Render("▸ ")
				style = matchBarStyle
			}
		}
		fmt.Fprintf(&sb, "%s%-*s %s %d (%.1f%%)\n", marker, keyW, o, style.Render(bar), n, percent(n, shots))
	}

	return countsStyle.Width(width).Height(height).Render(strings.TrimRight(sb.String(), "\n"))
}

// renderCircuitPanel draws the circuit and the state after the cursor step.
func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	title := "Circuit"
	if m.focus == focusCircuit {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	steps := max((width-labelVisualW-4)/cellW, 1)
	start := m.viewStartStep
	if m.cursorStep >= start+steps {
		start = m.cursorStep - steps + 1
	}
	sb.WriteString(drawCircuit(m.circ, start, min(steps, maxStep(m.circ)-start+1), m.cursorStep))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "%s\n", activeStyle.Render(fmt.Sprintf("State after step %d (unmeasured)", m.cursorStep)))
	if m.stateErr != nil {
		sb.WriteString(errorStyle.Render(m.stateErr.Error()))
	}
	for i, s := range m.state {
		if i == stateRows {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("… %d more\n", len(m.state)-i)))
			break
		}
		fmt.Fprintf(&sb, "|%0*b>  %6.3f  p=%.3f\n", m.circ.NumQubits, s.Index, s.Amplitude, s.Prob)
	}

	return circuitStyle.Width(width).Height(height).Render(strings.TrimRight(sb.String(), "\n"))
}

// renderTallyPanel lists the saved predicates with their aggregated counts.
func (m Model) renderTallyPanel(width, height int) string {
	var sb strings.Builder
	title := "Tally"
	if m.focus == focusTally {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	switch {
	case m.tallyErr != nil:
		sb.WriteString(errorStyle.Render(m.tallyErr.Error()))
	case len(m.preds) == 0:
		sb.WriteString(dimStyle.Render("No predicates yet. Type one below and press enter."))
	default:
		shots := m.tally.Shots()
		for i, label := range m.tally.Labels() {
			n, _ := m.tally.Get(label)
			line := fmt.Sprintf("%-30s %6d  %5.1f%%", label, n, percent(n, shots))
			if i == m.rowCursor && m.focus == focusTally {
				sb.WriteString(menuSelectedStyle.Render("▸ " + line))
			} else {
				sb.WriteString("  " + line)
			}
			sb.WriteString("\n")
		}
	}
	return tallyStyle.Width(width).Height(height).Render(strings.TrimRight(sb.String(), "\n"))
}

// renderControlsPanel renders the input, the live result and the key help.
func (m Model) renderControlsPanel(width int) string {
	var sb strings.Builder
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	switch {
	case m.liveErr != nil:
		sb.WriteString(errorStyle.Render(fmt.Sprintf("%s: %v", errorKind(m.liveErr), m.liveErr)))
	case m.live != nil:
		shots := m.res.Counts.Shots()
		sb.WriteString(matchBarStyle.Render(fmt.Sprintf("%d of %d shots (%.1f%%)", m.liveCount, shots, percent(m.liveCount, shots))))
		sb.WriteString(dimStyle.Render("  " + m.live.String()))
	default:
		sb.WriteString(dimStyle.Render("Bits: c[0] or [3]  Registers: c == 5, c != 0b10  Ops: & | !"))
	}
	if m.statusMsg != "" {
		fmt.Fprintf(&sb, "  │  %s", activeStyle.Render(m.statusMsg))
	}
	sb.WriteString("\n")

	sb.WriteString(activeStyle.Render("Keys: "))
	sb.WriteString("⏎ Add  ^A Insert  Tab Switch panel  ↑↓ Select  x Delete  ←→ Step  ^S Save  Esc/^C Quit")

	return controlsStyle.Width(width).Render(sb.String())
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	controlsPanel := m.renderControlsPanel(m.width - 4)
	bodyH := max(m.height-lipgloss.Height(controlsPanel)-2, 8)
	tallyH := min(len(m.preds)+3, bodyH/3)
	topH := max(bodyH-tallyH-2, 6)

	var topRow string
	if m.circ != nil {
		countsW := m.width / 2
		topRow = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderCountsPanel(countsW-4, topH),
			m.renderCircuitPanel(m.width-countsW-4, topH))
	} else {
		topRow = m.renderCountsPanel(m.width-4, topH)
	}
	frame := lipgloss.JoinVertical(lipgloss.Left, topRow, m.renderTallyPanel(m.width-4, tallyH), controlsPanel)

	if m.focus == focusMenu {
		frame = overlayAt(frame, m.renderMenu(), 2, 2)
	}
	return frame
}
