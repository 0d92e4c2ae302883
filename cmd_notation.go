package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"qtally/cbits"
)

var labelRegex = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)?\[(\d+)\]$`)

// parseLabel reads "c[1]" or "[3]".
func parseLabel(s string) (cbits.Label, error) {
	m := labelRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return cbits.Label{}, fmt.Errorf("%q: want reg[offset] or [index]", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return cbits.Label{}, fmt.Errorf("%q: %w", s, err)
	}
	if m[1] == "" {
		return cbits.Abs(n), nil
	}
	return cbits.Bit(m[1], n), nil
}

func newExpandCmd(a *app) *cobra.Command {
	var (
		layout   string
		separate bool
	)
	cmd := &cobra.Command{
		Use:   "expand --layout LAYOUT PREDICATE",
		Short: "List every outcome that satisfies a predicate",
		Example: `  qtally expand --layout c:2,flag:1 "c == 0b10"
  qtally expand --layout c:3 --bit-order big "c[0] | c[2]"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.layoutFlag(layout)
			if err != nil {
				return err
			}
			p, err := cbits.Parse(args[0], l)
			if err != nil {
				return err
			}
			outcomes, err := p.Expand()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, o := range outcomes {
				if separate {
					mem, err := l.ParseOutcome(o)
					if err != nil {
						return err
					}
					o = l.FormatOutcome(mem)
				}
				fmt.Fprintln(w, o)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "", "classical registers as name:width,... in declaration order")
	cmd.Flags().BoolVar(&separate, "separate", false, "put a space between registers")
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	var layout string
	cmd := &cobra.Command{
		Use:   "eval --layout LAYOUT PREDICATE OUTCOME...",
		Short: "Evaluate a predicate against measurement outcomes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.layoutFlag(layout)
			if err != nil {
				return err
			}
			p, err := cbits.Parse(args[0], l)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, o := range args[1:] {
				ok, err := p.Evaluate(o)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s: %t\n", o, ok)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "", "classical registers as name:width,... in declaration order")
	return cmd
}

func newIndexCmd(a *app) *cobra.Command {
	var layout string
	cmd := &cobra.Command{
		Use:   "index --layout LAYOUT LABEL...",
		Short: "Resolve bit labels to combined-memory indices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.layoutFlag(layout)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range args {
				label, err := parseLabel(s)
				if err != nil {
					return err
				}
				idx, err := l.MemoryItemIndex(label)
				if err != nil {
					return err
				}
				canon, err := l.LabelAt(idx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s: memory %d, %s, char %d\n", s, idx, canon, l.CharIndex(idx))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "", "classical registers as name:width,... in declaration order")
	return cmd
}
