package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-fleet/pkg/registry"
)

// NewParseCmd returns the parse subcommand: a path-style field lookup
// against one registry entry. Missing servers and fields print the literal
// null token so callers can tell "not configured" apart from "error".
func NewParseCmd(logger *zap.Logger) *cobra.Command {
	cfg := LoadFleetConfig()

	cmd := &cobra.Command{
		Use:   "parse <id> <field>",
		Short: "Query one field of a server entry",
		Long:  "Query a registry entry by dotted field path, e.g. parse github source.image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadRegistry(cfg.RegistryPath)
			if err != nil {
				Error("Failed to load registry")
				logStructuredError(logger, err, "Failed to load registry")
				return err
			}
			DefaultPrinter.Println(registry.Query(file, args[0], args[1]))
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.RegistryPath, "registry", cfg.RegistryPath, "Registry file or directory")

	return cmd
}
