package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGateAt(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)
	c.AddGate("H", 0, 0)
	c.AddMultiControlGate("CCX", 2, 1, []int{0, 1})
	require.NoError(t, c.Initialize(2, Amplitudes{0, 1}, 1))

	tests := []struct {
		step, qubit int
		want        string
	}{
		{0, 0, "H"},
		{0, 1, ""},
		{1, 0, "CCX"},
		{1, 1, "CCX"},
		{1, 2, "CCX"},
		{2, 1, TypeInit},
		{2, 0, ""},
	}
	for _, tt := range tests {
		g := c.GetGateAt(tt.step, tt.qubit)
		if tt.want == "" {
			assert.Nil(t, g, "step %d qubit %d", tt.step, tt.qubit)
			continue
		}
		require.NotNil(t, g, "step %d qubit %d", tt.step, tt.qubit)
		assert.Equal(t, tt.want, g.Type)
	}
}
