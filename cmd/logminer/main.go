// logminer mines temporal invariants and a behavioral model from an event
// log (XES, CSV, or JSONL), via counterexample-guided partition refinement.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "logminer",
	Short:   "logminer - mine temporal invariants and a k-tails model from an event log",
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func main() {
	rootCmd.AddCommand(mineCmd, exportCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
