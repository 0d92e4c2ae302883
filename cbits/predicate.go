package cbits

import (
	"fmt"
	"math"
	"strings"
)

type nodeKind int

const (
	nodeConst nodeKind = iota
	nodeBit
	nodeNot
	nodeAnd
	nodeOr
	nodeRegEq
)

// node is one vertex of a parsed predicate. Nodes are never mutated after
// the parser returns.
type node struct {
	kind  nodeKind
	val   bool   // nodeConst
	index int    // nodeBit: resolved memory index
	label Label  // nodeBit: label as written, for re-serialization
	reg   string // nodeRegEq
	off   int    // nodeRegEq: memory offset of the register
	width int    // nodeRegEq
	value uint64 // nodeRegEq
	x, y  *node
}

func notNode(x *node) *node { return &node{kind: nodeNot, x: x} }

// Predicate is a parsed, layout-bound boolean expression over classical
// bits. It is immutable and safe for concurrent use.
type Predicate struct {
	src    string
	root   *node
	layout Layout
}

// Parse tokenizes text, parses it and resolves every bit label against
// layout. Unresolvable labels are reported here rather than at evaluation.
func Parse(text string, layout Layout) (*Predicate, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, layout: layout}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != TokEOF {
		return nil, syntaxErrorf(tok.Pos, "unexpected %s after expression", tok)
	}
	return &Predicate{src: text, root: root, layout: layout}, nil
}

// MustParse is Parse that panics on error.
func MustParse(text string, layout Layout) *Predicate {
	p, err := Parse(text, layout)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the text the predicate was parsed from.
func (p *Predicate) Source() string { return p.src }

// Layout returns the layout the predicate's labels were resolved against.
func (p *Predicate) Layout() Layout { return p.layout }

// String re-serializes the predicate in canonical notation. Parsing the
// result against the same layout yields an equivalent predicate.
func (p *Predicate) String() string {
	var sb strings.Builder
	writeNode(&sb, p.root)
	return sb.String()
}

// Evaluate reports whether a single measurement outcome satisfies the
// predicate. Register separators (spaces) in outcome are ignored.
func (p *Predicate) Evaluate(outcome string) (bool, error) {
	compact, err := p.layout.NormalizeOutcome(outcome)
	if err != nil {
		return false, err
	}
	return p.evalCompact(compact)
}

func (p *Predicate) evalCompact(compact string) (bool, error) {
	bit := func(i int) (bool, error) {
		if i < 0 || i >= p.layout.width {
			return false, &LookupError{Label: Abs(i).String(), Msg: fmt.Sprintf("index out of range [0, %d)", p.layout.width)}
		}
		return compact[p.layout.CharIndex(i)] == '1', nil
	}
	return evalNode(p.root, bit)
}

func evalNode(n *node, bit func(int) (bool, error)) (bool, error) {
	switch n.kind {
	case nodeConst:
		return n.val, nil
	case nodeBit:
		return bit(n.index)
	case nodeNot:
		v, err := evalNode(n.x, bit)
		return !v, err
	case nodeAnd:
		v, err := evalNode(n.x, bit)
		if err != nil || !v {
			return false, err
		}
		return evalNode(n.y, bit)
	case nodeOr:
		v, err := evalNode(n.x, bit)
		if err != nil || v {
			return v, err
		}
		return evalNode(n.y, bit)
	case nodeRegEq:
		for j := 0; j < n.width; j++ {
			v, err := bit(n.off + j)
			if err != nil {
				return false, err
			}
			if v != (n.value>>uint(j)&1 == 1) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("cbits: unknown node kind %d", n.kind)
}

func writeNode(sb *strings.Builder, n *node) {
	switch n.kind {
	case nodeConst:
		if n.val {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case nodeBit:
		sb.WriteString(n.label.String())
	case nodeNot:
		sb.WriteString("!")
		writeGrouped(sb, n.x, n.x.kind == nodeAnd || n.x.kind == nodeOr || n.x.kind == nodeRegEq)
	case nodeAnd:
		writeGrouped(sb, n.x, n.x.kind == nodeOr)
		sb.WriteString(" & ")
		writeGrouped(sb, n.y, n.y.kind == nodeOr)
	case nodeOr:
		writeNode(sb, n.x)
		sb.WriteString(" | ")
		writeNode(sb, n.y)
	case nodeRegEq:
		fmt.Fprintf(sb, "%s == %d", n.reg, n.value)
	}
}

func writeGrouped(sb *strings.Builder, n *node, paren bool) {
	if paren {
		sb.WriteString("(")
	}
	writeNode(sb, n)
	if paren {
		sb.WriteString(")")
	}
}

// ──────────────────────────── Parser ────────────────────────────

type parser struct {
	toks   []Token
	pos    int
	layout Layout
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.next()
	if tok.Kind != kind {
		return tok, syntaxErrorf(tok.Pos, "expected %s, found %s", kind, tok)
	}
	return tok, nil
}

func (p *parser) parseOr() (*node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeOr, x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (*node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeAnd, x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (*node, error) {
	if p.peek().Kind == TokNot {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode(x), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*node, error) {
	tok := p.next()
	switch tok.Kind {
	case TokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case TokBool:
		return &node{kind: nodeConst, val: tok.Value == 1}, nil
	case TokInt:
		if tok.Value > 1 {
			return nil, syntaxErrorf(tok.Pos, "integer %s where a predicate is expected (use [%s] for an absolute bit)", tok.Text, tok.Text)
		}
		return &node{kind: nodeConst, val: tok.Value == 1}, nil
	case TokLBracket:
		idx, err := p.parseIndexTail()
		if err != nil {
			return nil, err
		}
		return p.bitRef(Abs(idx))
	case TokIdent:
		if p.peek().Kind == TokLBracket {
			p.next()
			off, err := p.parseIndexTail()
			if err != nil {
				return nil, err
			}
			return p.bitRef(Bit(tok.Text, off))
		}
		return p.registerRef(tok)
	}
	return nil, syntaxErrorf(tok.Pos, "unexpected %s", tok)
}

// parseIndexTail reads "INT ]" after an opening bracket has been consumed.
func (p *parser) parseIndexTail() (int, error) {
	tok, err := p.expect(TokInt)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return 0, err
	}
	if tok.Value > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(tok.Value), nil
}

// bitRef resolves a single-bit label and applies an optional "== 0/1" or
// "!= 0/1" comparison.
func (p *parser) bitRef(label Label) (*node, error) {
	idx, err := p.layout.MemoryItemIndex(label)
	if err != nil {
		return nil, err
	}
	n := &node{kind: nodeBit, index: idx, label: label}
	op := p.peek()
	if op.Kind != TokEq && op.Kind != TokNe {
		return n, nil
	}
	p.next()
	v := p.next()
	if (v.Kind != TokInt && v.Kind != TokBits && v.Kind != TokBool) || v.Value > 1 {
		return nil, syntaxErrorf(v.Pos, "bit %s can only be compared with 0 or 1, found %s", label, v)
	}
	if (op.Kind == TokEq) != (v.Value == 1) {
		return notNode(n), nil
	}
	return n, nil
}

// registerRef handles a bare register name: either compared with an
// unsigned value, or used directly when the register is one bit wide.
func (p *parser) registerRef(tok Token) (*node, error) {
	r, off, ok := p.layout.Register(tok.Text)
	if !ok {
		return nil, &LookupError{Label: tok.Text, Msg: "unknown register"}
	}
	op := p.peek()
	if op.Kind != TokEq && op.Kind != TokNe {
		if r.Width == 1 {
			return &node{kind: nodeBit, index: off, label: Bit(r.Name, 0)}, nil
		}
		return nil, syntaxErrorf(tok.Pos, "register %s is %d bits wide; index it or compare it with a value", r.Name, r.Width)
	}
	p.next()
	v := p.next()
	if v.Kind != TokInt && v.Kind != TokBits {
		return nil, syntaxErrorf(v.Pos, "expected a value for register %s, found %s", r.Name, v)
	}
	if r.Width < 64 && v.Value >= 1<<uint(r.Width) {
		return nil, valueErrorf("value %s does not fit in %d-bit register %s", v.Text, r.Width, r.Name)
	}
	n := &node{kind: nodeRegEq, reg: r.Name, off: off, width: r.Width, value: v.Value}
	if op.Kind == TokNe {
		return notNode(n), nil
	}
	return n, nil
}
