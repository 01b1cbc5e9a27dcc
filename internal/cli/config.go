package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FleetConfig holds all CLI configuration loaded from environment
// variables. Use LoadFleetConfig() to create an instance with values from
// the environment.
type FleetConfig struct {
	// RegistryPath is the registry file (or directory of files).
	RegistryPath string

	// EnvFilePath is the durable secrets file. Never written by the core;
	// only its .example sibling is regenerated.
	EnvFilePath string

	// Destinations are the client configuration files. Every one receives
	// the identical rendered document.
	Destinations []string

	// ScratchRoot is where source builds are cloned.
	ScratchRoot string

	// RecipesDir holds pinned replacement Dockerfiles keyed by server id.
	RecipesDir string

	// ProbeTimeout bounds a single probe exchange.
	ProbeTimeout time.Duration

	// SetupTimeout bounds a single pull/clone/build call.
	SetupTimeout time.Duration
}

const (
	defaultRegistryPath = "servers.yaml"
	defaultEnvFilePath  = ".env"
	defaultRecipesDir   = "dockerfiles"
	defaultProbeTimeout = 15 * time.Second
	defaultSetupTimeout = 10 * time.Minute
)

// LoadFleetConfig loads CLI configuration from environment variables.
func LoadFleetConfig() *FleetConfig {
	return &FleetConfig{
		RegistryPath: getEnvOrDefault("MCP_FLEET_REGISTRY", defaultRegistryPath),
		EnvFilePath:  getEnvOrDefault("MCP_FLEET_ENV_FILE", defaultEnvFilePath),
		Destinations: parseListEnv("MCP_FLEET_DESTINATIONS", defaultDestinations()),
		ScratchRoot:  getEnvOrDefault("MCP_FLEET_SCRATCH", os.TempDir()),
		RecipesDir:   getEnvOrDefault("MCP_FLEET_RECIPES", defaultRecipesDir),
		ProbeTimeout: parseDurationEnv("MCP_FLEET_PROBE_TIMEOUT", defaultProbeTimeout),
		SetupTimeout: parseDurationEnv("MCP_FLEET_SETUP_TIMEOUT", defaultSetupTimeout),
	}
}

// defaultDestinations are the client applications configured out of the
// box. Both receive byte-identical documents.
func defaultDestinations() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"),
		filepath.Join(home, ".cursor", "mcp.json"),
	}
}

// parseDurationEnv parses a duration from an environment variable,
// returning the default if not set or invalid.
func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// parseListEnv parses a comma-separated list from an environment variable.
func parseListEnv(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if
// not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
