package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hpctrace/caliper/pkg/caliconfig"
)

const (
	configCmdUse   = "config <channel> <service-spec.json>"
	configCmdShort = "Resolve and print a service's configuration"
)

var configFile string

// NewConfigCommand creates the config subcommand: it decodes a service's
// published ServiceSpec and resolves each field through caliconfig.Resolver
// (env > config file > the spec's published value, which is installed as
// the file tier's default), printing the result as a
// table (grounded on the teacher's cmd/codefang/commands/config.go cobra
// flag conventions).
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   configCmdUse,
		Short: configCmdShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfig(args[0], args[1], configFile, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&configFile, "config-file", "", "optional channel config file (toml/yaml/json)")

	return cmd
}

func runConfig(channelName, specPath, configFilePath string, out *os.File) error {
	data, err := os.ReadFile(specPath) //nolint:gosec // operator-supplied spec path
	if err != nil {
		return fmt.Errorf("calictl: read service spec: %w", err)
	}

	spec, err := caliconfig.ParseServiceSpec(data)
	if err != nil {
		return err
	}

	resolver, err := caliconfig.NewResolver(channelName, configFilePath)
	if err != nil {
		return err
	}

	for _, field := range spec.Config {
		resolver.SetDefault(field.Name, field.Value)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"field", "type", "resolved", "description"})

	for _, field := range spec.Config {
		resolved := resolver.Resolve(field.Name, "")
		t.AppendRow(table.Row{field.Name, field.Type, resolved, field.Description})
	}

	fmt.Fprintf(out, "%s (%s)\n", spec.Name, spec.Description)
	t.Render()

	return nil
}
