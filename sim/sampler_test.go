package sim

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtally/cbits"
	"qtally/circuit"
)

func bellCircuit(t *testing.T) *circuit.Circuit {
	t.Helper()
	c, err := circuit.New(2, cbits.Register{Name: "c", Width: 2})
	require.NoError(t, err)
	c.AddGate("H", 0, 0)
	c.AddGate("CX", 1, 1, 0)
	require.NoError(t, c.Measure(0, cbits.Bit("c", 0), 2))
	require.NoError(t, c.Measure(1, cbits.Bit("c", 1), 3))
	return c
}

func run(t *testing.T, s Sampler, c *circuit.Circuit, shots int) *Result {
	t.Helper()
	res, err := s.Run(context.Background(), c, Options{Shots: shots, Memory: true})
	require.NoError(t, err)
	return res
}

func TestSamplerBellCounts(t *testing.T) {
	res := run(t, Sampler{}, bellCircuit(t), 1000)

	assert.Equal(t, 1000, res.Counts.Shots())
	assert.Equal(t, DefaultSeed, res.Seed)
	for k := range res.Counts {
		assert.Contains(t, []string{"00", "11"}, k)
	}
	assert.InDelta(t, 500, res.Counts["00"], 100)
	assert.InDelta(t, 500, res.Counts["11"], 100)

	require.Len(t, res.Memory, 1000)
	fromMemory := cbits.Counts{}
	for _, m := range res.Memory {
		fromMemory[m]++
	}
	assert.Equal(t, res.Counts, fromMemory)
}

func TestSamplerDeterministic(t *testing.T) {
	c := bellCircuit(t)
	a := run(t, Sampler{Seed: 7}, c, 500)
	b := run(t, Sampler{Seed: 7}, c, 500)
	assert.Equal(t, a.Counts, b.Counts)
	assert.Equal(t, a.Memory, b.Memory)
}

func TestSamplerEntangledPairs(t *testing.T) {
	want := map[int][]string{
		0: {"00", "11"},
		1: {"01", "10"},
		2: {"00", "11"},
		3: {"01", "10"},
	}
	for kind, outcomes := range want {
		c, err := circuit.EntangledPair(kind, true)
		require.NoError(t, err)
		res := run(t, Sampler{}, c, 400)
		for k := range res.Counts {
			assert.Contains(t, outcomes, k, "kind %d", kind)
		}
		assert.Len(t, res.Counts, 2, "kind %d", kind)
	}
}

func TestSamplerRandomBit(t *testing.T) {
	c, err := circuit.RandomBit(true)
	require.NoError(t, err)
	res := run(t, Sampler{}, c, 2000)
	assert.InDelta(t, 1000, res.Counts["1"], 150)
	assert.Equal(t, 2000, res.Counts["0"]+res.Counts["1"])
}

func TestSamplerMidCircuitCondition(t *testing.T) {
	c, err := circuit.New(2, cbits.Register{Name: "c", Width: 1}, cbits.Register{Name: "d", Width: 1})
	require.NoError(t, err)
	c.AddGate("H", 0, 0)
	require.NoError(t, c.Measure(0, cbits.Bit("c", 0), 1))
	require.NoError(t, c.AddRegisterControlGate("X", 1, 2, "c", 1))
	require.NoError(t, c.Measure(1, cbits.Bit("d", 0), 3))

	res := run(t, Sampler{}, c, 300)
	// d copies c on every shot; d is the left group in little-endian keys.
	assert.Equal(t, 300, res.Counts["0 0"]+res.Counts["1 1"])
	assert.NotZero(t, res.Counts["0 0"])
	assert.NotZero(t, res.Counts["1 1"])

	tally, err := res.Tally([]string{"c == d", "c", "!d"}, []string{"same", "c set", "d clear"})
	require.Error(t, err, "c == d is not notation")
	assert.Nil(t, tally)

	tally, err = res.Tally([]string{"(c & d) | (!c & !d)", "c", "!d"}, []string{"same", "c set", "d clear"})
	require.NoError(t, err)
	same, _ := tally.Get("same")
	assert.Equal(t, 300, same)
	set, _ := tally.Get("c set")
	unset, _ := tally.Get("d clear")
	assert.Equal(t, 300, set+unset)
}

func TestSamplerResetAndReinitialize(t *testing.T) {
	c, err := circuit.New(1, cbits.Register{Name: "c", Width: 3})
	require.NoError(t, err)
	c.AddGate("H", 0, 0)
	require.NoError(t, c.Measure(0, cbits.Bit("c", 0), 1))
	c.AddReset(0, 2)
	require.NoError(t, c.Measure(0, cbits.Bit("c", 1), 3))
	require.NoError(t, c.Initialize(4, circuit.Amplitudes{0, 1}, 0))
	require.NoError(t, c.Measure(0, cbits.Bit("c", 2), 5))

	res := run(t, Sampler{}, c, 200)
	for k := range res.Counts {
		// c[2] (leftmost) always 1, c[1] always 0, c[0] random.
		assert.True(t, strings.HasPrefix(k, "10"), "outcome %q", k)
	}
	assert.Len(t, res.Counts, 2)
}

func bitsKey(bits []bool) string {
	b := make([]byte, len(bits))
	for i, v := range bits {
		if v {
			b[len(bits)-1-i] = '1'
		} else {
			b[len(bits)-1-i] = '0'
		}
	}
	return string(b)
}

func TestQFTInverseRoundTrip(t *testing.T) {
	input := []bool{true, true, false, true}
	n := len(input)
	for _, endian := range []string{"auto", "opposite"} {
		for _, inverse := range []bool{false, true} {
			for _, form := range []circuit.Form{circuit.Plain, circuit.MF} {
				q, err := circuit.QFT(circuit.Options{OutputEndian: endian, Inverse: inverse, Form: form})
				require.NoError(t, err)

				c, err := circuit.New(n)
				require.NoError(t, err)
				step := 0
				for i, b := range input {
					if b {
						c.AddGate("X", i, step)
					}
				}
				step++
				step, err = q.Apply(c, n, step)
				require.NoError(t, err)
				c.AddBarrier(step)
				step, err = q.Inverse().Apply(c, n, step+1)
				require.NoError(t, err)
				_, err = c.MeasureAll(step)
				require.NoError(t, err)

				res := run(t, Sampler{}, c, 64)
				assert.Equal(t, cbits.Counts{bitsKey(input): 64}, res.Counts, q.Name())
			}
		}
	}
}

func TestMeasuredQFTRecoversInput(t *testing.T) {
	input := []bool{true, false, true}
	n := len(input)
	for _, inverse := range []bool{false, true} {
		for _, endian := range []string{"auto", "opposite"} {
			q, err := circuit.QFT(circuit.Options{OutputEndian: endian, Inverse: inverse, Form: circuit.MF})
			require.NoError(t, err)
			m, ok := q.Inverse().OtherMeasured()
			require.True(t, ok)

			c, err := circuit.New(n, cbits.Register{Name: "c", Width: n})
			require.NoError(t, err)
			for i, b := range input {
				if b {
					c.AddGate("X", i, 0)
				}
			}
			step, err := q.Apply(c, n, 1)
			require.NoError(t, err)
			c.AddBarrier(step)
			_, err = m.Example(c, "c", n, step+1)
			require.NoError(t, err)

			res := run(t, Sampler{}, c, 32)
			assert.Equal(t, cbits.Counts{bitsKey(input): 32}, res.Counts, "%s then %s", q.Name(), m.Name())
		}
	}
}

func TestSamplerErrors(t *testing.T) {
	c, err := circuit.New(1)
	require.NoError(t, err)
	c.AddGate("H", 0, 0)
	_, err = Sampler{}.Run(context.Background(), c, Options{Shots: 10})
	assert.ErrorIs(t, err, ErrNoClassicalBits)

	_, err = Sampler{}.Run(context.Background(), bellCircuit(t), Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Sampler{}.Run(ctx, bellCircuit(t), Options{Shots: 10})
	assert.ErrorIs(t, err, context.Canceled)

	mid, err := circuit.New(1, cbits.Register{Name: "c", Width: 1})
	require.NoError(t, err)
	require.NoError(t, mid.Measure(0, cbits.Bit("c", 0), 0))
	mid.AddGate("X", 0, 1)
	_, err = Sampler{}.Run(ctx, mid, Options{Shots: 10})
	assert.ErrorIs(t, err, context.Canceled)
}
