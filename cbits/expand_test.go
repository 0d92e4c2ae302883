package cbits

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allOutcomes lists every compact outcome of the given width.
func allOutcomes(width int) []string {
	out := make([]string, 0, 1<<uint(width))
	for v := 0; v < 1<<uint(width); v++ {
		out = append(out, fmt.Sprintf("%0*b", width, v))
	}
	return out
}

func TestExpandScenario(t *testing.T) {
	p := MustParse("q[0]=1", MustLayout(Register{"q", 2}))
	got, err := p.Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "11"}, got)
}

func TestExpandMatchesEvaluate(t *testing.T) {
	l := MustLayout(Register{"a", 2}, Register{"b", 2})
	preds := []string{
		"a[0]",
		"a == 2 | b == 1",
		"!(a[1] & b[0]) & [3]",
		"a != 0",
		"a[0] | a[0] | a[0]",
		"true",
		"a[0] & !a[0]",
		"(a[0] | b[0]) & (a[1] | b[1])",
	}

	for _, text := range preds {
		p := MustParse(text, l)
		got, err := p.Expand()
		require.NoError(t, err, text)

		var want []string
		for _, o := range allOutcomes(l.Width()) {
			ok, err := p.Evaluate(o)
			require.NoError(t, err)
			if ok {
				want = append(want, o)
			}
		}
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, got, text)

		for _, o := range got {
			assert.Len(t, o, l.Width())
		}
	}
}

func TestExpandFreeBitCount(t *testing.T) {
	l := MustLayout(Register{"q", 3}, Register{"c", 2})
	tests := []struct {
		pred string
		free int
	}{
		{"q[0]", 4},
		{"q[0] & !c[1]", 3},
		{"q == 5", 2},
		{"q == 5 & c == 0", 0},
		{"true", 5},
		{"c[0] & c[0]", 4},
	}
	for _, tt := range tests {
		p := MustParse(tt.pred, l)
		free, ok := p.FreeBits()
		require.True(t, ok, tt.pred)
		assert.Equal(t, tt.free, free, tt.pred)

		got, err := p.Expand()
		require.NoError(t, err)
		assert.Len(t, got, 1<<uint(free), tt.pred)
	}

	_, ok := MustParse("q[0] | q[1]", l).FreeBits()
	assert.False(t, ok)
}

func TestExpandUnsatisfiable(t *testing.T) {
	p := MustParse("q[0] & q[0] == 0", MustLayout(Register{"q", 2}))
	got, err := p.Expand()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandTooWide(t *testing.T) {
	p := MustParse("big[0]", MustLayout(Register{"big", MaxExpandWidth + 1}))
	_, err := p.Expand()
	assert.ErrorIs(t, err, ErrValue)
}

func TestExpandRepeatedConjunction(t *testing.T) {
	l := MustLayout(Register{"q", 2})
	clauses := make([]string, 64)
	for i := range clauses {
		clauses[i] = "(q[0] | q[1])"
	}
	p := MustParse(strings.Join(clauses, " & "), l)

	cubes, ok := dnf(p.root, false)
	require.True(t, ok)
	assert.Len(t, cubes, 2)

	got, err := p.Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "10", "11"}, got)
}

func TestReduceAbsorbs(t *testing.T) {
	got := reduce([]cube{{0: true, 1: true}, {0: true}, {0: true}, {1: false}, {}})
	assert.Equal(t, []cube{{}}, got)

	got = reduce([]cube{{0: true, 1: false}, {0: true}, {1: true}})
	assert.Equal(t, []cube{{0: true}, {1: true}}, got)
}

func TestExpandAllMatchesExpand(t *testing.T) {
	l := MustLayout(Register{"a", 2}, Register{"b", 3})
	for _, text := range []string{"a[0]", "a == 2 | !(b == 5)", "a[1] & !a[1]", "(a[0] | b[0]) & (a[1] | b[2])"} {
		p := MustParse(text, l)
		want, err := p.Expand()
		require.NoError(t, err)
		got, err := p.expandAll()
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}
}
