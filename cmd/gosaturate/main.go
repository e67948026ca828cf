// Command gosaturate is a CLI front end for the egraph library: it
// saturates terms under a YAML ruleset, extracts optimal forms, and
// prints equality proofs.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rulesFile string
	timeout   time.Duration
	verbose   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gosaturate",
	Short: "gosaturate - equality saturation over s-expression terms",
	Long: `gosaturate reads terms in parenthesized-prefix notation, saturates
them under a YAML ruleset of rewrite rules, and reports the cheapest
equivalent form of each term.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "", "YAML ruleset file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "overall time budget")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(explainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
