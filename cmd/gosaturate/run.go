package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/gosaturate/pkg/egraph"
)

var (
	snapshotOut string
	costName    string
	exactCost   bool
	showStats   bool
)

var (
	headerStyle = color.New(color.FgCyan, color.Bold)
	termStyle   = color.New(color.FgWhite)
	arrowStyle  = color.New(color.FgYellow, color.Bold)
	bestStyle   = color.New(color.FgGreen, color.Bold)
	costStyle   = color.New(color.FgHiBlue)
)

var runCmd = &cobra.Command{
	Use:   "run [term-files...]",
	Short: "Saturate terms under a ruleset and print their cheapest forms",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("provide at least one term file")
		}
		if rulesFile == "" {
			return fmt.Errorf("provide a ruleset with --rules")
		}

		rs, err := egraph.LoadRulesetFile(rulesFile)
		if err != nil {
			return err
		}

		terms, err := readTermFiles(args)
		if err != nil {
			return err
		}

		g := egraph.New(nil)
		roots := make([]egraph.ClassID, len(terms))
		for i, term := range terms {
			if roots[i], err = g.AddTerm(term); err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		bar := newSaturationBar(os.Stderr)
		opts := append([]egraph.RunnerOption{
			egraph.WithLogger(logger),
			egraph.WithHook(func(r *egraph.Runner) error { return bar.Add(1) }),
		}, rs.Options...)
		runner := egraph.NewRunner(g, opts...)

		report, err := runner.Run(ctx, rs.Rewrites...)
		if err != nil {
			return err
		}
		// Clear the spinner before the summary lines print.
		_ = bar.Finish()
		fmt.Println()
		headerStyle.Printf("saturation: %s after %d iteration(s) in %s\n",
			report.StopReason, len(report.Iterations), report.TotalTime.Round(time.Microsecond))
		if showStats {
			printIterationStats(report)
		}

		if err := printBest(g, terms, roots); err != nil {
			return err
		}

		if snapshotOut != "" {
			if err := writeSnapshot(g, snapshotOut); err != nil {
				return err
			}
			logger.Info("snapshot written", zap.String("path", snapshotOut))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&snapshotOut, "snapshot", "s", "", "write the saturated e-graph to this JSON file")
	runCmd.Flags().StringVar(&costName, "cost", "size", "cost function: size, depth")
	runCmd.Flags().BoolVar(&exactCost, "exact", false, "use exact DAG-cost extraction (slower)")
	runCmd.Flags().BoolVar(&showStats, "stats", false, "print per-iteration statistics")
}

// newSaturationBar builds the per-iteration progress bar. The iteration
// count is unknown up front, so the bar runs in spinner mode; callers
// must Finish it before printing results.
func newSaturationBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		progressbar.OptionSetDescription("saturating"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func printBest(g *egraph.EGraph, terms []*egraph.Term, roots []egraph.ClassID) error {
	costFn, err := costFunction(costName)
	if err != nil {
		return err
	}

	if exactCost {
		ex := egraph.NewExactExtractor(g, costFn, nil)
		for i, root := range roots {
			best, cost, err := ex.Extract(context.Background(), root)
			if err != nil {
				return err
			}
			printResult(terms[i], best, cost)
		}
		return nil
	}

	ex, err := egraph.NewExtractor(g, costFn)
	if err != nil {
		return err
	}
	results, err := ex.ExtractAll(context.Background(), roots)
	if err != nil {
		return err
	}
	for i, res := range results {
		if res.Err != nil {
			return res.Err
		}
		printResult(terms[i], res.Term, res.Cost)
	}
	return nil
}

func printResult(in, best *egraph.Term, cost float64) {
	termStyle.Print(in)
	arrowStyle.Print("  =>  ")
	bestStyle.Print(best)
	costStyle.Printf("  (cost %g)\n", cost)
}

func printIterationStats(report *egraph.Report) {
	for _, it := range report.Iterations {
		applied := 0
		for _, n := range it.Applied {
			applied += n
		}
		fmt.Printf("  iter %2d: %d classes, %d nodes, %d applications (search %s, apply %s, rebuild %s)\n",
			it.Index, it.Classes, it.Nodes, applied,
			it.SearchTime.Round(time.Microsecond),
			it.ApplyTime.Round(time.Microsecond),
			it.RebuildTime.Round(time.Microsecond))
	}
}

func costFunction(name string) (egraph.CostFunction, error) {
	switch strings.ToLower(name) {
	case "size":
		return egraph.ASTSize{}, nil
	case "depth":
		return egraph.ASTDepth{}, nil
	default:
		return nil, fmt.Errorf("unknown cost function %q (want size or depth)", name)
	}
}

func writeSnapshot(g *egraph.EGraph, path string) error {
	s, err := g.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Encode(f)
}
