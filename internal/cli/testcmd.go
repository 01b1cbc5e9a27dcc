package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-fleet/internal/health"
	"mcp-fleet/internal/launch"
)

// NewTestCmd returns the test subcommand: the two-tier protocol probe.
func NewTestCmd(logger *zap.Logger) *cobra.Command {
	cfg := LoadFleetConfig()

	cmd := &cobra.Command{
		Use:   "test [id]",
		Short: "Probe servers for protocol health",
		Long: `Run the two-tier protocol probe against every server (or one named
server). The basic tier needs no real credentials; the advanced tier runs
only when every required variable holds a non-placeholder value, and its
outcome never changes a verdict the basic tier already passed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadRegistry(cfg.RegistryPath)
			if err != nil {
				Error("Failed to load registry")
				logStructuredError(logger, err, "Failed to load registry")
				return err
			}

			env := resolveEnvironment(logger, cfg.EnvFilePath)
			builder := &launch.Builder{Env: env, EnvFilePath: cfg.EnvFilePath}
			verifier := health.New(logger, builder, health.WithTimeout(cfg.ProbeTimeout))

			Section("Protocol health")
			results := verifier.Run(cmd.Context(), file, args)

			succeeded, failed := 0, 0
			for _, r := range results {
				line := fmt.Sprintf("%s: basic=%s advanced=%s (%s)", r.ID, r.Basic, r.Advanced, r.Detail)
				if r.Failed() {
					failed++
					Error(line)
					logger.Warn("Probe failed", zap.String("server", r.ID), zap.Error(r.Err))
					continue
				}
				succeeded++
				if r.Advanced == health.OutcomeWarn || r.Advanced == health.OutcomeFailed {
					Warn(line)
				} else {
					Success(line)
				}
			}

			return tally(succeeded, failed)
		},
	}

	cmd.Flags().StringVar(&cfg.RegistryPath, "registry", cfg.RegistryPath, "Registry file or directory")
	cmd.Flags().StringVar(&cfg.EnvFilePath, "env-file", cfg.EnvFilePath, "Secrets file gating the advanced tier")
	cmd.Flags().DurationVar(&cfg.ProbeTimeout, "timeout", cfg.ProbeTimeout, "Per-probe timeout")

	return cmd
}
