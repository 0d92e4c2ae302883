package cbits

import (
	"fmt"
	"sort"
	"strings"
)

// Counts maps an outcome string to the number of times it was observed.
type Counts map[string]int

// Shots returns the sum of all counts.
func (c Counts) Shots() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Outcomes returns the outcome keys sorted lexically.
func (c Counts) Outcomes() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tally holds aggregated counts per predicate label, in caller order.
// Overlapping predicates each count the same outcome, so the per-label
// totals need not add up to Shots.
type Tally struct {
	labels []string
	counts map[string]int
	shots  int
}

// Labels returns the labels in the order they were supplied.
func (t *Tally) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Get returns the aggregated count for label and whether it exists.
func (t *Tally) Get(label string) (int, bool) {
	n, ok := t.counts[label]
	return n, ok
}

// Shots returns the total number of shots in the aggregated counts.
func (t *Tally) Shots() int { return t.shots }

// Map returns a copy of the label to count mapping.
func (t *Tally) Map() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

func (t *Tally) String() string {
	var sb strings.Builder
	for i, l := range t.labels {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d", l, t.counts[l])
	}
	return "{" + sb.String() + "}"
}

// GatherCounts parses each predicate against layout and sums the counts of
// every outcome satisfying it. keys, when non-nil, supplies one label per
// predicate; otherwise the predicate text is the label.
func GatherCounts(counts Counts, layout Layout, predicates []string, keys []string) (*Tally, error) {
	preds := make([]*Predicate, len(predicates))
	for i, text := range predicates {
		p, err := Parse(text, layout)
		if err != nil {
			return nil, fmt.Errorf("predicate %q: %w", text, err)
		}
		preds[i] = p
	}
	return GatherPredicates(counts, preds, keys)
}

// GatherPredicates is GatherCounts for already parsed predicates. All
// predicates must share one layout.
func GatherPredicates(counts Counts, preds []*Predicate, keys []string) (*Tally, error) {
	labels := keys
	if labels == nil {
		labels = make([]string, len(preds))
		for i, p := range preds {
			labels[i] = p.Source()
		}
	}
	if len(labels) != len(preds) {
		return nil, valueErrorf("%d keys for %d predicates", len(labels), len(preds))
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, dup := seen[l]; dup {
			return nil, valueErrorf("duplicate label %q", l)
		}
		seen[l] = struct{}{}
	}
	t := &Tally{
		labels: append([]string(nil), labels...),
		counts: make(map[string]int, len(labels)),
	}
	for _, l := range labels {
		t.counts[l] = 0
	}
	if len(preds) == 0 {
		t.shots = counts.Shots()
		return t, nil
	}
	layout := preds[0].layout
	for _, p := range preds[1:] {
		if p.layout.String() != layout.String() || p.layout.order != layout.order {
			return nil, valueErrorf("predicates bound to different layouts: %s and %s", layout, p.layout)
		}
	}
	for outcome, n := range counts {
		if n < 0 {
			return nil, valueErrorf("outcome %q has negative count %d", outcome, n)
		}
		compact, err := layout.NormalizeOutcome(outcome)
		if err != nil {
			return nil, err
		}
		t.shots += n
		for i, p := range preds {
			ok, err := p.evalCompact(compact)
			if err != nil {
				return nil, err
			}
			if ok {
				t.counts[labels[i]] += n
			}
		}
	}
	return t, nil
}

// Marginal re-keys counts onto the named registers, summing the outcomes
// that collapse together. The returned layout holds only those registers,
// in the order given, with the same bit order.
func Marginal(counts Counts, layout Layout, registers ...string) (Counts, Layout, error) {
	regs := make([]Register, 0, len(registers))
	offs := make([]int, 0, len(registers))
	for _, name := range registers {
		r, off, ok := layout.Register(name)
		if !ok {
			return nil, Layout{}, &LookupError{Label: name, Msg: "unknown register"}
		}
		regs = append(regs, r)
		offs = append(offs, off)
	}
	sub, err := NewLayout(regs...)
	if err != nil {
		return nil, Layout{}, err
	}
	sub = sub.WithOrder(layout.order)
	out := make(Counts)
	for outcome, n := range counts {
		mem, err := layout.ParseOutcome(outcome)
		if err != nil {
			return nil, Layout{}, err
		}
		subMem := make([]bool, 0, sub.Width())
		for i, r := range regs {
			subMem = append(subMem, mem[offs[i]:offs[i]+r.Width]...)
		}
		out[sub.FormatOutcome(subMem)] += n
	}
	return out, sub, nil
}
