// Package envfile loads the durable secrets file that parameterizes server
// launches.
//
// Functions in this package return diagnostics alongside their result
// instead of printing anything: progress/warning text and structured data
// must never share a channel. The caller owns the decision of where
// diagnostics go (logger, terminal, nowhere).
package envfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Severity of a diagnostic produced while resolving the environment.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Diagnostic is a single piece of progress/warning text kept separate from
// the resolved data.
type Diagnostic struct {
	Severity Severity
	Message  string
}

// Resolve loads KEY=value pairs from the file at path. An absent file is
// recoverable: the result is an empty map plus a warning diagnostic, and
// downstream consumers degrade gracefully by leaving references unexpanded.
func Resolve(path string) (map[string]string, []Diagnostic) {
	if path == "" {
		return map[string]string{}, []Diagnostic{{
			Severity: SeverityWarn,
			Message:  "no environment file configured; variable references stay unexpanded",
		}}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, []Diagnostic{{
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("environment file %s not found; variable references stay unexpanded", path),
		}}
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return map[string]string{}, []Diagnostic{{
			Severity: SeverityError,
			Message:  fmt.Sprintf("failed to parse environment file %s: %v", path, err),
		}}
	}

	return values, nil
}

// placeholderPrefixes are the obvious stand-in shapes an unfilled template
// value takes. The generated secrets template uses the "your-" form, so a
// freshly copied example file always trips this check.
var placeholderPrefixes = []string{
	"your-",
	"your_",
	"changeme",
	"change-me",
	"placeholder",
	"replace-me",
	"todo",
	"xxx",
	"<",
	"...",
}

// IsPlaceholder reports whether value looks like an unfilled template value
// rather than a real credential. Empty counts as a placeholder.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

// Placeholder returns the deterministic stand-in value the secrets template
// uses for a variable, e.g. GITHUB_TOKEN -> your-github-token-here.
func Placeholder(name string) string {
	return "your-" + strings.ReplaceAll(strings.ToLower(name), "_", "-") + "-here"
}
