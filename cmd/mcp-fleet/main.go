package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mcp-fleet/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger, err := newConsoleLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	initCommands(logger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcp-fleet",
	Short: "MCP server fleet configuration and health CLI",
	Long: `mcp-fleet turns a declarative server registry into client launch
configurations, realizes the container image each server needs, and
verifies every server speaks the protocol before it is trusted:
- registry inspection (list, parse)
- configuration rendering and emission (config, config-write)
- image realization (setup)
- two-tier protocol probing (test)`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func initCommands(logger *zap.Logger) {
	rootCmd.AddCommand(cli.NewListCmd(logger))
	rootCmd.AddCommand(cli.NewParseCmd(logger))
	rootCmd.AddCommand(cli.NewConfigCmd(logger))
	rootCmd.AddCommand(cli.NewConfigWriteCmd(logger))
	rootCmd.AddCommand(cli.NewSetupCmd(logger))
	rootCmd.AddCommand(cli.NewTestCmd(logger))
}

// newConsoleLogger returns a human-friendly console logger with timestamps.
func newConsoleLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}
