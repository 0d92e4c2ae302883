package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtally/circuit"
)

type fakeBackend struct {
	name      string
	qubits    int
	simulator bool
	status    Status
	statusErr error
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) NumQubits() int  { return f.qubits }
func (f *fakeBackend) Simulator() bool { return f.simulator }

func (f *fakeBackend) Status(context.Context) (Status, error) { return f.status, f.statusErr }

func (f *fakeBackend) Run(context.Context, *circuit.Circuit, RunOptions) (*Job, error) {
	return nil, errors.New("not implemented")
}

func device(name string, qubits, pending int) *fakeBackend {
	return &fakeBackend{name: name, qubits: qubits, status: Status{Operational: true, PendingJobs: pending}}
}

func TestRegistryGet(t *testing.T) {
	local := NewLocal(LocalConfig{}, zerolog.Nop())
	r, err := NewRegistry(zerolog.Nop(), local, device("lima", 5, 0))
	require.NoError(t, err)

	b, err := r.Get(LocalName)
	require.NoError(t, err)
	assert.Same(t, local, b)
	assert.Equal(t, []string{LocalName, "lima"}, r.Names())

	_, err = r.Get("nairobi")
	assert.ErrorIs(t, err, ErrBackendNotFound)

	assert.ErrorIs(t, r.Register(device("lima", 7, 0)), ErrDuplicate)
}

func TestRegistryLeastBusy(t *testing.T) {
	down := device("down", 27, 0)
	down.status.Operational = false
	broken := device("broken", 27, 0)
	broken.statusErr = errors.New("timeout")

	r, err := NewRegistry(zerolog.Nop(),
		NewLocal(LocalConfig{}, zerolog.Nop()),
		device("small", 1, 0),
		down,
		broken,
		device("busy", 5, 12),
		device("quiet", 5, 3),
		device("quiet2", 7, 3),
	)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"devices only", Filter{MinQubits: 2}, "quiet"},
		{"tie keeps registration order", Filter{MinQubits: 5}, "quiet"},
		{"wider circuit", Filter{MinQubits: 6}, "quiet2"},
		{"any device", Filter{}, "small"},
		{"simulators allowed", Filter{MinQubits: 2, AllowSimulators: true}, LocalName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.LeastBusy(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Name())
		})
	}

	_, err = r.LeastBusy(ctx, Filter{MinQubits: 100})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestRegistrySelect(t *testing.T) {
	r, err := NewRegistry(zerolog.Nop(), NewLocal(LocalConfig{}, zerolog.Nop()))
	require.NoError(t, err)
	ctx := context.Background()

	b, err := r.Select(ctx, LocalName, Filter{})
	require.NoError(t, err)
	assert.Equal(t, LocalName, b.Name())

	_, err = r.Select(ctx, "", Filter{})
	assert.ErrorIs(t, err, ErrNoBackend)

	b, err = r.Select(ctx, "", Filter{AllowSimulators: true})
	require.NoError(t, err)
	assert.Equal(t, LocalName, b.Name())
}

func TestRegistryLeastBusyCancelled(t *testing.T) {
	r, err := NewRegistry(zerolog.Nop(), NewLocal(LocalConfig{}, zerolog.Nop()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.LeastBusy(ctx, Filter{AllowSimulators: true})
	assert.ErrorIs(t, err, context.Canceled)
}
