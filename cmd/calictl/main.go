// Command calictl is a small operator CLI around Caliper core: it replays a
// JSON fixture of immediate-only snapshots through an AggregationDB and
// prints the folded summary, and resolves a service's config per caliconfig.
// Grounded on the teacher's cmd/codefang/main.go root-command shape
// (cobra.Command tree with persistent verbose/quiet flags and a version
// subcommand), trimmed to this module's much smaller surface (see
// DESIGN.md).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hpctrace/caliper/cmd/calictl/commands"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "calictl",
		Short: "calictl inspects and replays Caliper instrumentation data",
		Long: `calictl operates on Caliper JSON snapshot fixtures and channel
configuration outside of an instrumented process.

Commands:
  replay   Fold a JSON snapshot fixture through an AggregationDB and print it
  config   Resolve and print a service's configuration
  stats    Report metadata-tree node counts and an estimated byte footprint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(commands.NewReplayCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(os.Stdout, "calictl (development build)")
		},
	}
}
