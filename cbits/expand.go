package cbits

import (
	"fmt"
	"sort"
	"strings"
)

// MaxExpandWidth bounds the layout width Expand will enumerate over.
const MaxExpandWidth = 20

// cube is a conjunction of fixed bit values keyed by memory index. Bits
// not present in the map are free.
type cube map[int]bool

func (c cube) merge(o cube) (cube, bool) {
	out := make(cube, len(c)+len(o))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range o {
		if cur, ok := out[k]; ok && cur != v {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

// maxCubes bounds the intermediate disjunction dnf builds. Predicates
// that need more fall back to enumerating every outcome.
const maxCubes = 4096

// key renders a cube's fixed bits in index order.
func (c cube) key() string {
	idx := make([]int, 0, len(c))
	for i := range c {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	var sb strings.Builder
	for _, i := range idx {
		v := '0'
		if c[i] {
			v = '1'
		}
		fmt.Fprintf(&sb, "%d=%c,", i, v)
	}
	return sb.String()
}

// covers reports whether every outcome of o also satisfies c.
func (c cube) covers(o cube) bool {
	if len(c) > len(o) {
		return false
	}
	for i, v := range c {
		if w, ok := o[i]; !ok || w != v {
			return false
		}
	}
	return true
}

// reduce drops duplicate cubes and cubes absorbed by a more general one.
func reduce(cubes []cube) []cube {
	seen := make(map[string]struct{}, len(cubes))
	uniq := make([]cube, 0, len(cubes))
	for _, c := range cubes {
		k := c.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, c)
	}
	// General cubes first, so each cube only needs checking against the
	// ones already kept.
	sort.SliceStable(uniq, func(i, j int) bool { return len(uniq[i]) < len(uniq[j]) })
	out := uniq[:0]
	for _, c := range uniq {
		absorbed := false
		for _, k := range out {
			if k.covers(c) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			out = append(out, c)
		}
	}
	return out
}

// dnf rewrites n (negated when neg is set) as a disjunction of cubes. ok is
// false when the disjunction would exceed maxCubes.
func dnf(n *node, neg bool) ([]cube, bool) {
	switch n.kind {
	case nodeConst:
		if n.val != neg {
			return []cube{{}}, true
		}
		return nil, true
	case nodeBit:
		return []cube{{n.index: !neg}}, true
	case nodeNot:
		return dnf(n.x, !neg)
	case nodeAnd, nodeOr:
		left, ok := dnf(n.x, neg)
		if !ok {
			return nil, false
		}
		right, ok := dnf(n.y, neg)
		if !ok {
			return nil, false
		}
		// De Morgan: a negated AND behaves as an OR and vice versa.
		if (n.kind == nodeOr) != neg {
			out := reduce(append(left, right...))
			return out, len(out) <= maxCubes
		}
		var out []cube
		for _, a := range left {
			for _, b := range right {
				m, ok := a.merge(b)
				if !ok {
					continue
				}
				out = append(out, m)
				if len(out) > 2*maxCubes {
					if out = reduce(out); len(out) > maxCubes {
						return nil, false
					}
				}
			}
		}
		out = reduce(out)
		return out, len(out) <= maxCubes
	case nodeRegEq:
		if !neg {
			c := make(cube, n.width)
			for j := 0; j < n.width; j++ {
				c[n.off+j] = n.value>>uint(j)&1 == 1
			}
			return []cube{c}, true
		}
		out := make([]cube, 0, n.width)
		for j := 0; j < n.width; j++ {
			out = append(out, cube{n.off + j: n.value>>uint(j)&1 != 1})
		}
		return out, true
	}
	return nil, true
}

// Expand returns every outcome of the layout's full width that satisfies
// the predicate, in compact form (no register separators), sorted and
// without duplicates. Constrained bits are held fixed while the free bits
// of each satisfying cube range over their Cartesian product.
func (p *Predicate) Expand() ([]string, error) {
	w := p.layout.width
	if w > MaxExpandWidth {
		return nil, valueErrorf("layout width %d exceeds expandable width %d", w, MaxExpandWidth)
	}
	cubes, ok := dnf(p.root, false)
	if !ok {
		return p.expandAll()
	}
	seen := make(map[string]struct{})
	for _, c := range cubes {
		free := make([]int, 0, w)
		mem := make([]bool, w)
		for i := 0; i < w; i++ {
			v, fixed := c[i]
			if !fixed {
				free = append(free, i)
				continue
			}
			mem[i] = v
		}
		for combo := 0; combo < 1<<uint(len(free)); combo++ {
			for k, idx := range free {
				mem[idx] = combo>>uint(k)&1 == 1
			}
			seen[p.layout.compactFromMemory(mem)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// expandAll evaluates the predicate on every outcome of the layout.
func (p *Predicate) expandAll() ([]string, error) {
	w := p.layout.width
	mem := make([]bool, w)
	out := []string{}
	for v := 0; v < 1<<uint(w); v++ {
		for i := range mem {
			mem[i] = v>>uint(i)&1 == 1
		}
		compact := p.layout.compactFromMemory(mem)
		ok, err := p.evalCompact(compact)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, compact)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Constraints returns the fixed bit values of a predicate that reduces to a
// single conjunction of bit literals. ok is false when the predicate needs
// more than one cube (or is unsatisfiable).
func (p *Predicate) Constraints() (fixed map[int]bool, ok bool) {
	cubes, ok := dnf(p.root, false)
	if !ok || len(cubes) != 1 {
		return nil, false
	}
	return map[int]bool(cubes[0]), true
}

// FreeBits reports how many memory bits a conjunctive predicate leaves
// unconstrained. ok mirrors Constraints.
func (p *Predicate) FreeBits() (int, bool) {
	fixed, ok := p.Constraints()
	if !ok {
		return 0, false
	}
	return p.layout.width - len(fixed), true
}
