package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qtally/backend"
	"qtally/cbits"
	"qtally/circuit"
)

func parseForm(s string) (circuit.Form, error) {
	switch strings.ToLower(s) {
	case "", "plain":
		return circuit.Plain, nil
	case "mf":
		return circuit.MF, nil
	case "measured", "m":
		return circuit.Measured, nil
	}
	return 0, fmt.Errorf("unknown QFT form %q: want plain, mf or measured", s)
}

// qftCircuit prepares input as a basis state on n qubits, applies t, and
// measures every qubit i into c[i].
func qftCircuit(t *circuit.Transform, n int, input uint64) (*circuit.Circuit, error) {
	c, err := circuit.New(n, cbits.Register{Name: "c", Width: n})
	if err != nil {
		return nil, err
	}
	step := 0
	for q := range n {
		if input>>uint(q)&1 == 1 {
			c.AddGate("X", q, step)
		}
	}
	if input != 0 {
		step++
	}
	if t.Form() == circuit.Measured {
		_, err = t.Example(c, "c", n, step)
		return c, err
	}
	if step, err = t.Apply(c, n, step); err != nil {
		return nil, err
	}
	c.AddBarrier(step)
	step++
	for q := range n {
		if err := c.Measure(q, cbits.Bit("c", q), step); err != nil {
			return nil, err
		}
		step++
	}
	return c, nil
}

func newQFTCmd(a *app) *cobra.Command {
	var (
		endian  string
		inverse bool
		form    string
		input   uint64
		doc     bool
		run     bool
		draw    bool
		shots   int
	)
	cmd := &cobra.Command{
		Use:   "qft N",
		Short: "Build a quantum Fourier transform circuit on N qubits",
		Example: `  qtally qft 3 --doc
  qtally qft 3 --inverse --form measured --input 5 --run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n <= 0 {
				return fmt.Errorf("N must be a positive integer, got %q", args[0])
			}
			f, err := parseForm(form)
			if err != nil {
				return err
			}
			t, err := circuit.QFT(circuit.Options{OutputEndian: endian, Inverse: inverse, Form: f})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if doc {
				fmt.Fprintf(w, "%s\n%s", t.Name(), t.Doc())
				return nil
			}
			c, err := qftCircuit(t, n, input)
			if err != nil {
				return err
			}
			c.Cregs = c.Cregs.WithOrder(a.cfg.Order())
			switch {
			case run:
				b, err := a.registry.Select(cmd.Context(), a.cfg.Backend, backend.Filter{MinQubits: n, AllowSimulators: true})
				if err != nil {
					return err
				}
				res, err := backend.Execute(cmd.Context(), b, c, backend.RunOptions{Shots: max(shots, 1), Seed: a.cfg.Seed})
				if err != nil {
					return err
				}
				printCounts(w, res.Counts)
			case draw:
				fmt.Fprintln(w, drawCircuit(c, 0, maxStep(c)+1, -1))
			default:
				fmt.Fprint(w, c.ToQASM())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&endian, "endian", "auto", "output bit order: auto, opposite, little or big")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "build the inverse transform")
	cmd.Flags().StringVar(&form, "form", "plain", "plain, mf or measured")
	cmd.Flags().Uint64Var(&input, "input", 0, "basis state prepared before the transform")
	cmd.Flags().BoolVar(&doc, "doc", false, "describe the transform's conventions and exit")
	cmd.Flags().BoolVar(&run, "run", false, "run the circuit and print counts")
	cmd.Flags().BoolVar(&draw, "draw", false, "draw the circuit")
	cmd.Flags().IntVar(&shots, "shots", 1000, "shots for --run")
	return cmd
}
