package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-fleet/pkg/registry"
)

// NewListCmd returns the list subcommand for enumerating registry entries.
func NewListCmd(logger *zap.Logger) *cobra.Command {
	cfg := LoadFleetConfig()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured servers",
		Long:  "List every server declared in the registry with its topology and source.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadRegistry(cfg.RegistryPath)
			if err != nil {
				Error("Failed to load registry")
				logStructuredError(logger, err, "Failed to load registry")
				return err
			}
			return listServers(file)
		},
	}

	cmd.Flags().StringVar(&cfg.RegistryPath, "registry", cfg.RegistryPath, "Registry file or directory")

	return cmd
}

func listServers(file *registry.File) error {
	tableData := [][]string{
		{"ID", "Name", "Topology", "Source", "Image/Endpoint"},
	}

	for _, id := range file.IDs() {
		def, _ := file.Get(id)
		target := def.Source.Image
		if def.Source.Type == registry.SourceRemote {
			target = def.Source.URL
		}
		tableData = append(tableData, []string{id, def.Name, def.ServerType, def.Source.Type, target})
	}

	TableBoxed(tableData)
	return nil
}
