package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"qtally/backend"
	"qtally/cbits"
	"qtally/circuit"
	"qtally/config"
	"qtally/logging"
	"qtally/sim"
)

// app carries what PersistentPreRunE loads for every command.
type app struct {
	cfgPath  string
	logLevel string
	bitOrder string

	cfg      *config.Config
	log      zerolog.Logger
	registry *backend.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "qtally",
		Short: "Run small quantum circuits and tally their measurement counts",
		Long: `qtally runs OpenQASM 2.0 circuits on a local shot-sampling simulator
and aggregates the resulting counts with a predicate notation over
classical bits, e.g. "c[0] & !c[1]" or "flag == 0b10".`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load(cmd) },
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.qtally/qtally.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn, error or disabled")
	root.PersistentFlags().StringVar(&a.bitOrder, "bit-order", "", "outcome bit order: little or big")

	root.AddCommand(
		newRunCmd(a),
		newTallyCmd(a),
		newExploreCmd(a),
		newDrawCmd(a),
		newStateCmd(a),
		newExpandCmd(a),
		newEvalCmd(a),
		newIndexCmd(a),
		newQFTCmd(a),
		newInitCmd(a),
		newBackendsCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.bitOrder != "" {
		cfg.BitOrder = a.bitOrder
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Out: cmd.ErrOrStderr()})

	local := backend.NewLocal(backend.LocalConfig{Name: backend.LocalName, Seed: cfg.Seed}, a.log)
	a.registry, err = backend.NewRegistry(a.log, local)
	if err != nil {
		return err
	}
	a.log.Debug().Str("config", a.cfgPath).Str("bit_order", cfg.BitOrder).Msg("configuration loaded")
	return nil
}

func (a *app) setupDir() (string, error) {
	if a.cfg.SetupDir != "" {
		return a.cfg.SetupDir, nil
	}
	path := a.cfgPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return "", err
		}
	}
	return filepath.Dir(path), nil
}

// readCircuit parses a QASM file and applies the configured bit order to
// its classical registers.
func (a *app) readCircuit(path string) (*circuit.Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := circuit.ParseQASM(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Cregs = c.Cregs.WithOrder(a.cfg.Order())
	return c, nil
}

// runFlags are the execution flags shared by run, tally and explore.
type runFlags struct {
	shots    int
	seed     int64
	backend  string
	noMemory bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.shots, "shots", 0, "number of shots (default from config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "simulator seed (default from config)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "backend name; empty picks the least busy")
	cmd.Flags().BoolVar(&f.noMemory, "no-memory", false, "do not keep per-shot outcomes")
}

// execution is a finished run with where it ran.
type execution struct {
	circ    *circuit.Circuit
	res     *sim.Result
	backend string
	jobID   string
}

// execute runs the circuit in path, or loads stored counts when path is a
// YAML counts file.
func (a *app) execute(ctx context.Context, path string, f runFlags) (*execution, error) {
	if isCountsFile(path) {
		res, err := loadCounts(path)
		if err != nil {
			return nil, err
		}
		return &execution{res: res}, nil
	}
	c, err := a.readCircuit(path)
	if err != nil {
		return nil, err
	}

	name := f.backend
	if name == "" {
		name = a.cfg.Backend
	}
	b, err := a.registry.Select(ctx, name, backend.Filter{MinQubits: c.NumQubits, AllowSimulators: true})
	if err != nil {
		return nil, err
	}
	opts := backend.RunOptions{Shots: a.cfg.Shots, Memory: a.cfg.Memory && !f.noMemory, Seed: a.cfg.Seed}
	if f.shots > 0 {
		opts.Shots = f.shots
	}
	if f.seed != 0 {
		opts.Seed = f.seed
	}

	job, err := b.Run(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	res, err := job.Result(ctx)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	return &execution{circ: c, res: res, backend: b.Name(), jobID: job.ID}, nil
}

// layoutFlag parses a --layout value with the configured bit order.
func (a *app) layoutFlag(s string) (cbits.Layout, error) {
	l, err := cbits.ParseLayout(s)
	if err != nil {
		return cbits.Layout{}, err
	}
	if l.Width() == 0 {
		return cbits.Layout{}, fmt.Errorf("--layout is required, e.g. --layout c:2,flag:1")
	}
	return l.WithOrder(a.cfg.Order()), nil
}
