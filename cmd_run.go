package main

import (
	"fmt"
	"io"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"qtally/cbits"
	"qtally/circuit"
	"qtally/sim"
)

func printCounts(w io.Writer, counts cbits.Counts) {
	for _, k := range counts.Outcomes() {
		fmt.Fprintf(w, "%s: %d\n", k, counts[k])
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		f   runFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "run FILE.qasm",
		Short: "Run a circuit and print its measurement counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := a.execute(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if ex.jobID != "" {
				fmt.Fprintf(w, "# backend %s, job %s, %d shots, seed %d\n", ex.backend, ex.jobID, ex.res.Shots, ex.res.Seed)
			}
			printCounts(w, ex.res.Counts)
			if out != "" {
				if err := saveCounts(out, ex.res, ex.backend, ex.jobID); err != nil {
					return err
				}
				a.log.Info().Str("file", out).Msg("counts saved")
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the result to a YAML counts file")
	return cmd
}

func newTallyCmd(a *app) *cobra.Command {
	var (
		f     runFlags
		preds []string
		keys  []string
	)
	cmd := &cobra.Command{
		Use:   "tally FILE",
		Short: "Aggregate counts by predicate",
		Long: `Runs FILE.qasm (or loads a YAML counts file written by "run --out") and
prints, for each -p predicate, the number of shots whose outcome satisfies it.
Use -k once per predicate to name the rows.`,
		Example: `  qtally tally teleport.qasm -p "c0 == 0" -p "c0 == 1"
  qtally tally counts.yaml -p "meas[0] & meas[1]" -k both`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(preds) == 0 {
				return fmt.Errorf("at least one -p predicate is required")
			}
			var labels []string
			if len(keys) > 0 {
				labels = keys
			}
			ex, err := a.execute(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			t, err := ex.res.Tally(preds, labels)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, l := range t.Labels() {
				n, _ := t.Get(l)
				fmt.Fprintf(w, "%s: %d\n", l, n)
			}
			fmt.Fprintf(w, "shots: %d\n", t.Shots())
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringArrayVarP(&preds, "predicate", "p", nil, "predicate to count (repeatable)")
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "label for the matching -p (repeatable)")
	return cmd
}

func newExploreCmd(a *app) *cobra.Command {
	var (
		f     runFlags
		preds []string
	)
	cmd := &cobra.Command{
		Use:   "explore FILE",
		Short: "Explore counts interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := a.execute(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			m, err := newModel(ex.circ, ex.res, preds)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().StringArrayVarP(&preds, "predicate", "p", nil, "predicate to list on start (repeatable)")
	return cmd
}

func newDrawCmd(a *app) *cobra.Command {
	var qasm bool
	cmd := &cobra.Command{
		Use:   "draw FILE.qasm",
		Short: "Draw a circuit as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.readCircuit(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if qasm {
				fmt.Fprint(w, c.ToQASM())
				return nil
			}
			fmt.Fprintln(w, drawCircuit(c, 0, maxStep(c)+1, -1))
			fmt.Fprintf(w, "depth %d, %d gates, registers %s\n", c.Depth(), len(c.Gates), c.Cregs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&qasm, "qasm", false, "print the normalized QASM instead")
	return cmd
}

func newStateCmd(a *app) *cobra.Command {
	var step int
	cmd := &cobra.Command{
		Use:   "state FILE.qasm",
		Short: "Print the state vector after a step, ignoring measurements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.readCircuit(args[0])
			if err != nil {
				return err
			}
			state, err := sim.SimulateCircuit(c, step)
			if err != nil {
				return err
			}
			nz := state.NonZero(circuit.Eps)
			sort.SliceStable(nz, func(i, j int) bool { return nz[i].Prob > nz[j].Prob })
			w := cmd.OutOrStdout()
			for _, s := range nz {
				fmt.Fprintf(w, "|%0*b>  %.4f  p=%.4f\n", c.NumQubits, s.Index, s.Amplitude, s.Prob)
			}
			for q, p := range state.GetQubitProbabilities() {
				fmt.Fprintf(w, "q[%d]: P(1)=%.4f\n", q, p.Prob1)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&step, "step", -1, "last step to apply; negative means all")
	return cmd
}

func newBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List backends and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, name := range a.registry.Names() {
				b, err := a.registry.Get(name)
				if err != nil {
					return err
				}
				st, err := b.Status(cmd.Context())
				if err != nil {
					fmt.Fprintf(w, "%s: status unavailable: %v\n", name, err)
					continue
				}
				kind := "device"
				if b.Simulator() {
					kind = "simulator"
				}
				fmt.Fprintf(w, "%s: %s, %d qubits, operational=%t, pending=%d\n", name, kind, b.NumQubits(), st.Operational, st.PendingJobs)
			}
			return nil
		},
	}
}
