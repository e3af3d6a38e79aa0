package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hpctrace/caliper/pkg/caliper"
)

const statsCmdShort = "Report metadata-tree node count and an estimated byte footprint for a fresh core"

// estimatedNodeBytes approximates one calitree node's resident size
// (a variant.Variant plus four uint32 fields), for an operator-facing
// "roughly how much memory is this tree using" figure; it is not exact
// accounting and is not meant to be.
const estimatedNodeBytes = 72

// NewStatsCommand creates the stats subcommand: it reports the metadata
// tree's node count (and a rough byte estimate via go-humanize) for a
// freshly constructed, empty core, useful as a sanity check on the
// per-node footprint before sizing a real deployment's arena.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: statsCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStats(os.Stdout)
		},
	}
}

func runStats(out *os.File) error {
	core := caliper.New(nil)

	nodes := core.Tree().Len()
	estimated := uint64(nodes) * estimatedNodeBytes //nolint:gosec // nodes is always non-negative

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"tree nodes", humanize.Comma(int64(nodes))})
	t.AppendRow(table.Row{"estimated tree size", humanize.Bytes(estimated)})
	t.Render()

	fmt.Fprintln(out)

	return nil
}
