package circuit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtally/cbits"
)

func mustQFT(t *testing.T, opts Options) *Transform {
	t.Helper()
	q, err := QFT(opts)
	require.NoError(t, err)
	return q
}

func TestQFTNames(t *testing.T) {
	tests := []struct {
		opts Options
		want string
	}{
		{Options{}, "qft_beo"},
		{Options{Inverse: true}, "iqft_leo"},
		{Options{Form: MF}, "qft_mf_beo"},
		{Options{Form: MF, Inverse: true}, "iqft_mf_leo"},
		{Options{Form: Measured}, "qft_m_leo"},
		{Options{Form: Measured, Inverse: true}, "iqft_m_leo"},
		{Options{OutputEndian: "opposite"}, "qft_leo"},
		{Options{OutputEndian: "opposite", Inverse: true}, "iqft_beo"},
		{Options{OutputEndian: "opposite", Form: Measured}, "qft_m_beo"},
		{Options{OutputEndian: "big", Inverse: true, Form: MF}, "iqft_mf_beo"},
		{Options{OutputEndian: "little"}, "qft_leo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mustQFT(t, tt.opts).Name(), "%+v", tt.opts)
	}

	_, err := QFT(Options{OutputEndian: "sideways"})
	assert.Error(t, err)
}

func TestQFTCacheIdentity(t *testing.T) {
	a := mustQFT(t, Options{Form: MF})
	b := mustQFT(t, Options{Form: MF, OutputEndian: "big"})
	assert.Same(t, a, b)
}

// reachable walks every link from t and returns the transforms found, by name.
func reachable(t *Transform) map[string]*Transform {
	seen := map[string]*Transform{}
	queue := []*Transform{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := seen[cur.Name()]; ok {
			continue
		}
		seen[cur.Name()] = cur
		queue = append(queue, cur.Inverse(), cur.OppositeEndian(), cur.OppositeForm())
		if other, ok := cur.OtherMeasured(); ok {
			queue = append(queue, other)
		}
	}
	return seen
}

func TestQFTLinks(t *testing.T) {
	all := reachable(mustQFT(t, Options{}))
	require.Len(t, all, 12)

	for name, q := range all {
		assert.Same(t, q, q.Inverse().Inverse(), name)
		assert.Same(t, q, q.OppositeEndian().OppositeEndian(), name)

		// The inverse flips both the direction and the output order.
		inv := q.Inverse().Name()
		flipped := strings.TrimPrefix(name, "i")
		if !strings.HasPrefix(name, "i") {
			flipped = "i" + name
		}
		if strings.HasSuffix(flipped, "_leo") {
			flipped = strings.TrimSuffix(flipped, "_leo") + "_beo"
		} else {
			flipped = strings.TrimSuffix(flipped, "_beo") + "_leo"
		}
		assert.Equal(t, flipped, inv, name)

		switch q.Form() {
		case Plain:
			assert.Equal(t, MF, q.OppositeForm().Form(), name)
			_, ok := q.OtherMeasured()
			assert.False(t, ok, name)
		case MF:
			assert.Equal(t, Plain, q.OppositeForm().Form(), name)
			other, ok := q.OtherMeasured()
			require.True(t, ok, name)
			assert.Equal(t, Measured, other.Form(), name)
			assert.Equal(t, q.OutputOrder(), other.OutputOrder(), name)
		case Measured:
			assert.Equal(t, Plain, q.OppositeForm().Form(), name)
			other, ok := q.OtherMeasured()
			require.True(t, ok, name)
			assert.Equal(t, MF, other.Form(), name)
		}
	}
}

func TestQFTApplyGateCounts(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)
	q := mustQFT(t, Options{})
	next, err := q.Apply(c, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, next)

	var h, cp int
	for _, g := range c.Gates {
		switch g.Type {
		case "H":
			h++
		case "CP":
			cp++
		}
	}
	assert.Equal(t, 3, h)
	assert.Equal(t, 3, cp)

	// Plain big-endian output: the Hadamard on the top qubit comes first.
	assert.Equal(t, "H", c.Gates[0].Type)
	assert.Equal(t, 2, c.Gates[0].Target)

	_, err = q.Apply(c, 4, next)
	assert.ErrorIs(t, err, ErrQubitRange)
}

func TestQFTMeasuredForm(t *testing.T) {
	c, err := New(2, cbits.Register{Name: "c", Width: 2})
	require.NoError(t, err)
	m := mustQFT(t, Options{Form: Measured, Inverse: true})

	_, err = m.Apply(c, 2, 0)
	assert.ErrorIs(t, err, ErrForm)

	next, err := m.Example(c, "c", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, next)

	var conditioned, measured int
	for _, g := range c.Gates {
		if g.Conditioned() {
			conditioned++
			assert.Equal(t, "P", g.Type)
			assert.Equal(t, uint64(1), g.CondValue)
		}
		if g.Type == TypeMeasure {
			measured++
		}
	}
	assert.Equal(t, 1, conditioned)
	assert.Equal(t, 2, measured)

	_, err = m.Example(c, "nope", 2, next)
	assert.ErrorIs(t, err, cbits.ErrLookup)

	plain := mustQFT(t, Options{})
	_, err = plain.Example(c, "c", 2, next)
	assert.ErrorIs(t, err, ErrForm)
}

func TestQFTDoc(t *testing.T) {
	doc := mustQFT(t, Options{Form: MF, Inverse: true}).Doc()
	assert.True(t, strings.HasPrefix(doc, "Measurement friendly form of inverse QFT"))
	assert.Contains(t, doc, "Output (a): little-endian")
}
