package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-fleet/internal/launch"
	"mcp-fleet/internal/render"
	"mcp-fleet/pkg/registry"
)

// NewConfigCmd returns the config subcommand: render the client
// configuration document and print it without touching any destination.
func NewConfigCmd(logger *zap.Logger) *cobra.Command {
	cfg := LoadFleetConfig()

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Preview the client configuration document",
		Long:  "Render the configuration document every client would receive and print it to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, file, failures, err := renderDocument(logger, cfg)
			if err != nil {
				return err
			}
			DefaultPrinter.Printf("%s", string(doc))
			return tally(len(file.IDs())-len(failures), len(failures))
		},
	}

	addInputFlags(cmd, cfg)

	return cmd
}

// NewConfigWriteCmd returns the config-write subcommand: emit the rendered
// document to every client destination and regenerate the secrets example.
func NewConfigWriteCmd(logger *zap.Logger) *cobra.Command {
	cfg := LoadFleetConfig()

	cmd := &cobra.Command{
		Use:   "config-write",
		Short: "Write the client configuration to every destination",
		Long: `Render the configuration document, validate it, and write the identical
bytes to every client destination. The secrets file is never overwritten;
its .example sibling is fully regenerated instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, file, failures, err := renderDocument(logger, cfg)
			if err != nil {
				return err
			}

			if err := render.Emit(doc, cfg.Destinations); err != nil {
				wrapped := wrapWithSentinelAndContext(ErrEmitFailed, err,
					fmt.Sprintf("failed to emit configuration: %v", err),
					map[string]any{"destinations": cfg.Destinations})
				Error("Failed to write configuration")
				logStructuredError(logger, wrapped, "Failed to write configuration")
				return wrapped
			}
			for _, dest := range cfg.Destinations {
				Success("Wrote " + dest)
			}

			examplePath, err := render.EmitSecretsTemplate(file, cfg.EnvFilePath)
			if err != nil {
				wrapped := wrapWithSentinel(ErrEmitFailed, err, fmt.Sprintf("failed to regenerate secrets template: %v", err))
				Error("Failed to regenerate secrets template")
				logStructuredError(logger, wrapped, "Failed to regenerate secrets template")
				return wrapped
			}
			Success("Regenerated " + examplePath)
			return tally(len(file.IDs())-len(failures), len(failures))
		},
	}

	addInputFlags(cmd, cfg)
	cmd.Flags().StringSliceVar(&cfg.Destinations, "dest", cfg.Destinations, "Client destination paths")

	return cmd
}

// renderDocument runs the registry through resolution and rendering. A
// misconfigured server is reported and excluded from the document; its
// failure stays in the returned map so callers count it in the final tally.
func renderDocument(logger *zap.Logger, cfg *FleetConfig) ([]byte, *registry.File, map[string]error, error) {
	file, err := loadRegistry(cfg.RegistryPath)
	if err != nil {
		Error("Failed to load registry")
		logStructuredError(logger, err, "Failed to load registry")
		return nil, nil, nil, err
	}

	env := resolveEnvironment(logger, cfg.EnvFilePath)
	builder := &launch.Builder{Env: env, EnvFilePath: cfg.EnvFilePath}

	resolved, diags, failures := builder.BuildAll(file)
	reportDiagnostics(logger, diags)
	for _, id := range file.IDs() {
		if ferr, bad := failures[id]; bad {
			Error(fmt.Sprintf("[failed] %s: %v", id, ferr))
			logger.Warn("Excluding misconfigured server", zap.String("server", id), zap.Error(ferr))
		}
	}

	renderer, err := render.New()
	if err != nil {
		return nil, nil, nil, err
	}
	doc, err := renderer.Render(file, resolved)
	if err != nil {
		Error("Failed to render configuration")
		logStructuredError(logger, err, "Failed to render configuration")
		return nil, nil, nil, err
	}
	return doc, file, failures, nil
}

// addInputFlags wires the shared input-selection flags.
func addInputFlags(cmd *cobra.Command, cfg *FleetConfig) {
	cmd.Flags().StringVar(&cfg.RegistryPath, "registry", cfg.RegistryPath, "Registry file or directory")
	cmd.Flags().StringVar(&cfg.EnvFilePath, "env-file", cfg.EnvFilePath, "Secrets file for variable expansion")
}
