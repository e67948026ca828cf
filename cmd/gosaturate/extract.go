package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gosaturate/pkg/egraph"
)

var snapshotIn string

var extractCmd = &cobra.Command{
	Use:   "extract <term>",
	Short: "Extract the cheapest form of a term from a saved e-graph",
	Long: `extract loads an e-graph snapshot produced by 'run --snapshot',
resolves the given term in it, and prints the cheapest equivalent form
under the chosen cost function.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotIn == "" {
			return fmt.Errorf("provide a snapshot with --snapshot")
		}
		term, err := egraph.ParseTerm(args[0])
		if err != nil {
			return err
		}
		costFn, err := costFunction(costName)
		if err != nil {
			return err
		}

		f, err := os.Open(snapshotIn)
		if err != nil {
			return err
		}
		defer f.Close()
		s, err := egraph.DecodeSnapshot(f)
		if err != nil {
			return err
		}
		g, _, err := egraph.Load(s, nil)
		if err != nil {
			return err
		}

		// Adding the query term resolves it against the loaded hashcons;
		// subterms absent from the snapshot join as fresh classes with
		// only themselves as representation.
		root, err := g.AddTerm(term)
		if err != nil {
			return err
		}
		if err := g.Rebuild(); err != nil {
			return err
		}

		if exactCost {
			best, cost, err := egraph.NewExactExtractor(g, costFn, nil).
				Extract(context.Background(), root)
			if err != nil {
				return err
			}
			printResult(term, best, cost)
			return nil
		}

		ex, err := egraph.NewExtractor(g, costFn)
		if err != nil {
			return err
		}
		best, cost, err := ex.Extract(root)
		if err != nil {
			return err
		}
		printResult(term, best, cost)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&snapshotIn, "snapshot", "s", "", "e-graph snapshot to extract from")
	extractCmd.Flags().StringVar(&costName, "cost", "size", "cost function: size, depth")
	extractCmd.Flags().BoolVar(&exactCost, "exact", false, "use exact DAG-cost extraction (slower)")
}
