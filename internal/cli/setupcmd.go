package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-fleet/internal/setup"
)

// NewSetupCmd returns the setup subcommand: realize the image every server
// (or one named server) needs.
func NewSetupCmd(logger *zap.Logger) *cobra.Command {
	cfg := LoadFleetConfig()

	cmd := &cobra.Command{
		Use:   "setup [id]",
		Short: "Pull or build server images",
		Long: `Realize the container image each server needs: pull registry images,
clone and build source servers. Already-present images are left alone.
One server's failure never blocks another's setup.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadRegistry(cfg.RegistryPath)
			if err != nil {
				Error("Failed to load registry")
				logStructuredError(logger, err, "Failed to load registry")
				return err
			}

			orch := setup.New(logger,
				setup.WithScratchRoot(cfg.ScratchRoot),
				setup.WithRecipesDir(cfg.RecipesDir),
				setup.WithTimeout(cfg.SetupTimeout),
			)

			Section("Server setup")
			results := orch.Run(cmd.Context(), file, args)

			succeeded, failed := 0, 0
			for _, r := range results {
				if r.Failed() {
					failed++
					Error(fmt.Sprintf("[%s] %s: %s", r.State, r.ID, r.Detail))
					logger.Warn("Setup failed", zap.String("server", r.ID), zap.Error(r.Err))
					continue
				}
				succeeded++
				Success(fmt.Sprintf("[%s] %s: %s", r.State, r.ID, r.Detail))
			}

			return tally(succeeded, failed)
		},
	}

	cmd.Flags().StringVar(&cfg.RegistryPath, "registry", cfg.RegistryPath, "Registry file or directory")
	cmd.Flags().StringVar(&cfg.RecipesDir, "recipes", cfg.RecipesDir, "Directory of pinned replacement Dockerfiles")
	cmd.Flags().DurationVar(&cfg.SetupTimeout, "timeout", cfg.SetupTimeout, "Per-call pull/clone/build timeout")

	return cmd
}
