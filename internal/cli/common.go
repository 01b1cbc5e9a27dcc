package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"mcp-fleet/pkg/envfile"
	"mcp-fleet/pkg/registry"
)

var statPath = os.Stat

// loadRegistry reads the registry fresh from disk; definitions are never
// cached between invocations.
func loadRegistry(path string) (*registry.File, error) {
	info, err := statPath(path)
	if err == nil && info.IsDir() {
		file, err := registry.LoadFromDirectory(path)
		if err != nil {
			return nil, wrapWithSentinel(ErrRegistryUnreadable, err, fmt.Sprintf("failed to load registry directory %q: %v", path, err))
		}
		return file, nil
	}

	file, err := registry.LoadFromFile(path)
	if err != nil {
		return nil, wrapWithSentinel(ErrRegistryUnreadable, err, fmt.Sprintf("failed to load registry %q: %v", path, err))
	}
	return file, nil
}

// resolveEnvironment loads the secrets file and routes its diagnostics to
// the logger and terminal. The data never shares a channel with them.
func resolveEnvironment(logger *zap.Logger, path string) map[string]string {
	env, diags := envfile.Resolve(path)
	reportDiagnostics(logger, diags)
	return env
}

// reportDiagnostics prints and logs resolution diagnostics.
func reportDiagnostics(logger *zap.Logger, diags []envfile.Diagnostic) {
	for _, d := range diags {
		switch d.Severity {
		case envfile.SeverityError:
			Error(d.Message)
			logger.Error(d.Message)
		default:
			Warn(d.Message)
			logger.Warn(d.Message)
		}
	}
}

// tally prints the final success/failure counts and returns the run-level
// error when any unit failed. Partial success stays visible without
// re-reading the whole log.
func tally(succeeded, failed int) error {
	DefaultPrinter.Println()
	if failed == 0 {
		Success(fmt.Sprintf("%d succeeded, 0 failed", succeeded))
		return nil
	}
	Error(fmt.Sprintf("%d succeeded, %d failed", succeeded, failed))
	return newWithSentinel(ErrUnitsFailed, fmt.Sprintf("%d of %d servers failed", failed, succeeded+failed))
}
