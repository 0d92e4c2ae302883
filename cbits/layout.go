package cbits

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BitOrder selects how a combined-memory index maps onto a character of an
// outcome string.
type BitOrder int

const (
	// LittleEndian puts memory bit 0 in the rightmost character, so the first
	// declared register is the rightmost group. This is the convention of
	// Qiskit-style count keys ("c1 c0") and the local simulator.
	LittleEndian BitOrder = iota
	// BigEndian puts memory bit 0 in the leftmost character.
	BigEndian
)

func (o BitOrder) String() string {
	switch o {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return fmt.Sprintf("BitOrder(%d)", int(o))
	}
}

// ParseBitOrder accepts "little", "big" and their "-endian" forms.
func ParseBitOrder(s string) (BitOrder, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "-endian") {
	case "", "little", "le", "lsb":
		return LittleEndian, nil
	case "big", "be", "msb":
		return BigEndian, nil
	}
	return 0, valueErrorf("unknown bit order %q", s)
}

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Register is a named group of classical bits.
type Register struct {
	Name  string
	Width int
}

// Layout is an ordered sequence of classical registers concatenated into
// one combined memory vector. A Layout is immutable once built.
type Layout struct {
	regs    []Register
	offsets map[string]int
	width   int
	order   BitOrder
}

// NewLayout builds a little-endian layout from the given registers.
func NewLayout(regs ...Register) (Layout, error) {
	l := Layout{
		regs:    make([]Register, 0, len(regs)),
		offsets: make(map[string]int, len(regs)),
	}
	for _, r := range regs {
		if !identRegex.MatchString(r.Name) {
			return Layout{}, valueErrorf("invalid register name %q", r.Name)
		}
		if _, kw := keywords[strings.ToLower(r.Name)]; kw {
			return Layout{}, valueErrorf("register name %q is a reserved word", r.Name)
		}
		if r.Width <= 0 {
			return Layout{}, valueErrorf("register %s has non-positive width %d", r.Name, r.Width)
		}
		if _, dup := l.offsets[r.Name]; dup {
			return Layout{}, valueErrorf("duplicate register name %q", r.Name)
		}
		l.offsets[r.Name] = l.width
		l.width += r.Width
		l.regs = append(l.regs, r)
	}
	return l, nil
}

// MustLayout is NewLayout that panics on error. Intended for fixed layouts
// in tests and examples.
func MustLayout(regs ...Register) Layout {
	l, err := NewLayout(regs...)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLayout parses "name:width,name:width" into a layout.
func ParseLayout(s string) (Layout, error) {
	var regs []Register
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, width, ok := strings.Cut(part, ":")
		if !ok {
			return Layout{}, valueErrorf("register %q: want name:width", part)
		}
		w, err := strconv.Atoi(strings.TrimSpace(width))
		if err != nil {
			return Layout{}, valueErrorf("register %q: bad width: %v", part, err)
		}
		regs = append(regs, Register{Name: strings.TrimSpace(name), Width: w})
	}
	return NewLayout(regs...)
}

// WithOrder returns a copy of the layout using the given bit order.
func (l Layout) WithOrder(o BitOrder) Layout {
	l.order = o
	return l
}

// Order returns the layout's bit order.
func (l Layout) Order() BitOrder { return l.order }

// Width returns the total number of bits across all registers.
func (l Layout) Width() int { return l.width }

// Registers returns a copy of the registers in declaration order.
func (l Layout) Registers() []Register {
	out := make([]Register, len(l.regs))
	copy(out, l.regs)
	return out
}

// Register looks up a register and its offset in combined memory.
func (l Layout) Register(name string) (Register, int, bool) {
	off, ok := l.offsets[name]
	if !ok {
		return Register{}, 0, false
	}
	for _, r := range l.regs {
		if r.Name == name {
			return r, off, true
		}
	}
	return Register{}, 0, false
}

func (l Layout) String() string {
	parts := make([]string, len(l.regs))
	for i, r := range l.regs {
		parts[i] = fmt.Sprintf("%s:%d", r.Name, r.Width)
	}
	return strings.Join(parts, ",")
}

// Label references one classical bit, either by absolute memory index
// (Register empty) or by register name and offset.
type Label struct {
	Index    int
	Register string
	Offset   int
}

// Abs returns a label for an absolute memory index.
func Abs(index int) Label { return Label{Index: index} }

// Bit returns a label for offset within the named register.
func Bit(register string, offset int) Label { return Label{Register: register, Offset: offset} }

func (b Label) String() string {
	if b.Register == "" {
		return fmt.Sprintf("[%d]", b.Index)
	}
	return fmt.Sprintf("%s[%d]", b.Register, b.Offset)
}

// MemoryItemIndex resolves a label to its position in combined memory.
// The first declared register occupies indices 0..width-1. How an index
// maps onto an outcome character is decided separately by CharIndex.
func (l Layout) MemoryItemIndex(b Label) (int, error) {
	if b.Register == "" {
		if b.Index < 0 || b.Index >= l.width {
			return 0, &LookupError{Label: b.String(), Msg: fmt.Sprintf("index out of range [0, %d)", l.width)}
		}
		return b.Index, nil
	}
	r, off, ok := l.Register(b.Register)
	if !ok {
		return 0, &LookupError{Label: b.String(), Msg: "unknown register"}
	}
	if b.Offset < 0 || b.Offset >= r.Width {
		return 0, &LookupError{Label: b.String(), Msg: fmt.Sprintf("offset out of range [0, %d)", r.Width)}
	}
	return off + b.Offset, nil
}

// LabelAt is the inverse of MemoryItemIndex for register-qualified labels.
func (l Layout) LabelAt(index int) (Label, error) {
	if index < 0 || index >= l.width {
		return Label{}, &LookupError{Label: Abs(index).String(), Msg: fmt.Sprintf("index out of range [0, %d)", l.width)}
	}
	for _, r := range l.regs {
		off := l.offsets[r.Name]
		if index < off+r.Width {
			return Bit(r.Name, index-off), nil
		}
	}
	return Label{}, &LookupError{Label: Abs(index).String(), Msg: "no register covers index"}
}

// CharIndex maps a memory index onto a character position of a compact
// (separator-free) outcome string.
func (l Layout) CharIndex(index int) int {
	if l.order == BigEndian {
		return index
	}
	return l.width - 1 - index
}

// NormalizeOutcome strips register separators and validates the outcome
// against the layout width. An outcome with separators must have exactly
// one space between each pair of registers, in the layout's bit order.
func (l Layout) NormalizeOutcome(outcome string) (string, error) {
	compact := outcome
	if strings.ContainsRune(outcome, ' ') {
		if err := l.checkGroups(outcome); err != nil {
			return "", err
		}
		compact = strings.ReplaceAll(outcome, " ", "")
	}
	if len(compact) != l.width {
		return "", valueErrorf("outcome %q has width %d, layout %s has width %d", outcome, len(compact), l, l.width)
	}
	for i := 0; i < len(compact); i++ {
		if c := compact[i]; c != '0' && c != '1' {
			return "", valueErrorf("outcome %q: invalid character %q", outcome, c)
		}
	}
	return compact, nil
}

// checkGroups verifies that the space separated groups of outcome line up
// with the register widths.
func (l Layout) checkGroups(outcome string) error {
	groups := strings.Split(outcome, " ")
	if len(groups) != len(l.regs) {
		return valueErrorf("outcome %q has %d groups, layout %s has %d registers", outcome, len(groups), l, len(l.regs))
	}
	for i, g := range groups {
		r := l.regs[i]
		if l.order == LittleEndian {
			r = l.regs[len(l.regs)-1-i]
		}
		if len(g) != r.Width {
			return valueErrorf("outcome %q: group %q does not match register %s of width %d", outcome, g, r.Name, r.Width)
		}
	}
	return nil
}

// ParseOutcome converts an outcome string into memory bits indexed by
// memory position.
func (l Layout) ParseOutcome(outcome string) ([]bool, error) {
	compact, err := l.NormalizeOutcome(outcome)
	if err != nil {
		return nil, err
	}
	mem := make([]bool, l.width)
	for i := range mem {
		mem[i] = compact[l.CharIndex(i)] == '1'
	}
	return mem, nil
}

// FormatOutcome renders memory bits as an outcome string with a space
// between registers, in the layout's bit order.
func (l Layout) FormatOutcome(mem []bool) string {
	groups := make([]string, len(l.regs))
	for i, r := range l.regs {
		off := l.offsets[r.Name]
		b := make([]byte, r.Width)
		for j := 0; j < r.Width; j++ {
			pos := j
			if l.order == LittleEndian {
				pos = r.Width - 1 - j
			}
			if off+j < len(mem) && mem[off+j] {
				b[pos] = '1'
			} else {
				b[pos] = '0'
			}
		}
		groups[i] = string(b)
	}
	if l.order == LittleEndian {
		for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
			groups[i], groups[j] = groups[j], groups[i]
		}
	}
	return strings.Join(groups, " ")
}

// compactFromMemory renders memory bits without separators.
func (l Layout) compactFromMemory(mem []bool) string {
	b := make([]byte, l.width)
	for i := 0; i < l.width; i++ {
		if mem[i] {
			b[l.CharIndex(i)] = '1'
		} else {
			b[l.CharIndex(i)] = '0'
		}
	}
	return string(b)
}
