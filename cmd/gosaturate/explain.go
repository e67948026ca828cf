package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gosaturate/pkg/egraph"
)

var (
	stepStyle   = color.New(color.FgWhite)
	reasonStyle = color.New(color.FgMagenta, color.Bold)
)

var explainCmd = &cobra.Command{
	Use:   "explain <term-a> <term-b>",
	Short: "Prove two terms equal under a ruleset and print the proof",
	Long: `explain inserts both terms, saturates under the ruleset, and prints
the chain of rewrites and congruences connecting them. Fails if
saturation does not prove them equal within the configured limits.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rulesFile == "" {
			return fmt.Errorf("provide a ruleset with --rules")
		}
		rs, err := egraph.LoadRulesetFile(rulesFile)
		if err != nil {
			return err
		}
		termA, err := egraph.ParseTerm(args[0])
		if err != nil {
			return err
		}
		termB, err := egraph.ParseTerm(args[1])
		if err != nil {
			return err
		}

		g := egraph.New(nil)
		a, err := g.AddTerm(termA)
		if err != nil {
			return err
		}
		b, err := g.AddTerm(termB)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		opts := append([]egraph.RunnerOption{
			egraph.WithLogger(logger),
			egraph.WithExplanations(),
			// Equality may be proven long before saturation.
			egraph.WithHook(stopWhenEqual(a, b)),
		}, rs.Options...)
		report, err := egraph.NewRunner(g, opts...).Run(ctx, rs.Rewrites...)
		if err != nil {
			return err
		}

		if g.Find(a) != g.Find(b) {
			return fmt.Errorf("not proven equal (%s after %d iterations); try raising the limits",
				report.StopReason, len(report.Iterations))
		}

		steps, err := g.Explain(a, b)
		if err != nil {
			return err
		}
		headerStyle.Printf("%s = %s in %d step(s)\n", termA, termB, len(steps))
		for i, s := range steps {
			stepStyle.Printf("  %2d. class %d = class %d  ", i+1, int(s.From), int(s.To))
			reasonStyle.Println(s.Reason)
		}
		return nil
	},
}

// errProvenEqual signals the runner hook that the query is answered.
var errProvenEqual = fmt.Errorf("terms proven equal")

func stopWhenEqual(a, b egraph.ClassID) egraph.Hook {
	return func(r *egraph.Runner) error {
		if r.Graph().Find(a) == r.Graph().Find(b) {
			return errProvenEqual
		}
		return nil
	}
}
