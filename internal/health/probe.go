// Package health drives the two-tier protocol probe that decides whether a
// configured server actually speaks JSON-RPC over stdio before it is
// trusted.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"mcp-fleet/internal/execx"
	"mcp-fleet/internal/launch"
	"mcp-fleet/pkg/envfile"
	"mcp-fleet/pkg/registry"
)

// Outcome of one probe tier.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeWarn    Outcome = "warn"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// ErrProbeFailed marks a basic probe that produced neither a handshake
// response nor a recognizable needs-credentials pattern.
var ErrProbeFailed = errors.New("protocol probe failed")

// Result is one server's verification outcome. The overall verdict is the
// basic tier's alone: advanced outcomes are informational and never flip a
// pass into a failure.
type Result struct {
	ID       string
	Basic    Outcome
	Advanced Outcome
	Detail   string
	Output   string
	Err      error
}

// Failed reports the server's overall verdict.
func (r Result) Failed() bool { return r.Basic == OutcomeFailed }

// initializeRequest is the single JSON-RPC handshake the basic probe
// writes. One exchange only; the protocol itself lives in the servers.
const initializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"mcp-fleet","version":"1.0"}}}`

// listToolsRequest asks for the capability list in the advanced tier.
const listToolsRequest = `{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`

// credentialPatterns recognize a binary that reached its argument/auth
// parsing code but refused to start without real secrets. Matching one of
// these counts as basic success: it proves protocol plumbing without
// needing credentials, which is what makes the basic tier safe to run
// unconditionally in unattended pipelines.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)api[ _-]?key`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)credential`),
	regexp.MustCompile(`(?i)auth(entication|orization)?[ _-]?(required|failed|error)`),
	regexp.MustCompile(`(?i)unauthorized`),
	regexp.MustCompile(`(?i)usage:`),
	regexp.MustCompile(`(?i)environment variable .* (is )?(not set|required|missing)`),
}

// Verifier runs probes against configured servers. Probes run serially;
// the container runtime is a shared host resource.
type Verifier struct {
	exec    execx.Executor
	logger  *zap.Logger
	builder *launch.Builder
	timeout time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithExecutor replaces the process executor (used by tests).
func WithExecutor(e execx.Executor) Option {
	return func(v *Verifier) { v.exec = e }
}

// WithTimeout bounds a single probe exchange when the server's health_test
// does not set its own.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.timeout = d }
}

// New creates a Verifier. The builder supplies each server's launch spec so
// probes run the exact command the clients will.
func New(logger *zap.Logger, builder *launch.Builder, opts ...Option) *Verifier {
	v := &Verifier{
		exec:    execx.Default(),
		logger:  logger,
		builder: builder,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var probeValidators = []execx.Validator{
	execx.AllowlistBins("docker"),
	execx.NoControlChars(),
}

// Run verifies every requested server and returns one result per server.
// Terminal outcomes are reported, never aborted on.
func (v *Verifier) Run(ctx context.Context, file *registry.File, ids []string) []Result {
	if len(ids) == 0 {
		ids = file.IDs()
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		def, ok := file.Get(id)
		if !ok {
			results = append(results, Result{
				ID:     id,
				Basic:  OutcomeFailed,
				Detail: "not declared in registry",
				Err:    fmt.Errorf("server %q not declared in registry", id),
			})
			continue
		}
		results = append(results, v.Verify(ctx, def))
	}
	return results
}

// Verify drives one server through the basic tier and, when credentials
// look real, the advanced tier.
func (v *Verifier) Verify(ctx context.Context, def registry.ServerDefinition) Result {
	topo, err := launch.Classify(def)
	if err != nil {
		return Result{ID: def.ID, Basic: OutcomeFailed, Detail: "unknown topology", Err: err}
	}
	if topo == launch.TopologyRemote {
		return Result{
			ID:       def.ID,
			Basic:    OutcomeSkipped,
			Advanced: OutcomeSkipped,
			Detail:   "remote endpoint, no local container to probe",
		}
	}

	result := v.basicProbe(ctx, def)
	if result.Basic != OutcomeOK {
		result.Advanced = OutcomeSkipped
		return result
	}

	if !v.credentialsLookReal(def) {
		result.Advanced = OutcomeSkipped
		if result.Detail != "" {
			result.Detail += "; "
		}
		result.Detail += "advanced tier skipped, placeholder credentials"
		return result
	}

	v.advancedProbe(ctx, def, &result)
	return result
}

// basicProbe starts the container non-interactively, writes one initialize
// request, and interprets the bounded output per the server's parse mode.
func (v *Verifier) basicProbe(ctx context.Context, def registry.ServerDefinition) Result {
	output, runErr := v.exchange(ctx, def, initializeRequest+"\n")
	result := Result{ID: def.ID, Output: output}

	mode := "direct"
	if def.HealthTest != nil && def.HealthTest.ParseMode != "" {
		mode = def.HealthTest.ParseMode
	}

	switch mode {
	case "error_only":
		// Silence or a recognizable usage/auth message proves the binary
		// reached protocol/argument parsing without real secrets.
		if strings.TrimSpace(output) == "" || matchesCredentialPattern(output) {
			result.Basic = OutcomeOK
			result.Detail = "binary reached argument parsing"
			return result
		}
		result.Basic = OutcomeFailed
		result.Detail = "unrecognized failure output"
		result.Err = fmt.Errorf("%w: %s: no recognizable pattern in output", ErrProbeFailed, def.ID)
		return result

	case "filter_json":
		if env, ok := firstEnvelope(output); ok && identityBearing(env) {
			result.Basic = OutcomeOK
			result.Detail = "handshake response received"
			return result
		}

	default: // direct
		if env, ok := parseEnvelope(strings.TrimSpace(output)); ok && identityBearing(env) {
			result.Basic = OutcomeOK
			result.Detail = "handshake response received"
			return result
		}
	}

	// No handshake; a needs-real-credentials message still passes.
	if matchesCredentialPattern(output) {
		result.Basic = OutcomeOK
		result.Detail = "needs real credentials"
		return result
	}

	result.Basic = OutcomeFailed
	result.Detail = "no handshake response"
	if runErr != nil {
		result.Err = fmt.Errorf("%w: %s: %v", ErrProbeFailed, def.ID, runErr)
	} else {
		result.Err = fmt.Errorf("%w: %s: no response within window", ErrProbeFailed, def.ID)
	}
	return result
}

// advancedProbe sends initialize then the capability-listing request over
// the same stream. Whatever happens here, the verdict set by the basic tier
// stands.
func (v *Verifier) advancedProbe(ctx context.Context, def registry.ServerDefinition, result *Result) {
	output, _ := v.exchange(ctx, def, initializeRequest+"\n"+listToolsRequest+"\n")

	count, found := toolCount(output)
	switch {
	case !found:
		result.Advanced = OutcomeFailed
		result.Detail = "advanced tier got no capability response"
	case count == 0:
		// A valid credential may simply lack scope.
		result.Advanced = OutcomeWarn
		result.Detail = "capability list is empty"
	default:
		result.Advanced = OutcomeOK
		result.Detail = fmt.Sprintf("%d capabilities listed", count)
	}
}

// exchange runs the server's launch command with the request on stdin and
// captures combined output within the bounded window. A timed-out probe
// reads exactly like a non-matching response.
func (v *Verifier) exchange(ctx context.Context, def registry.ServerDefinition, request string) (string, error) {
	spec, _, err := v.builder.Build(def)
	if err != nil {
		return "", err
	}

	timeout := v.timeout
	if def.HealthTest != nil && def.HealthTest.TimeoutSeconds > 0 {
		timeout = time.Duration(def.HealthTest.TimeoutSeconds) * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd, err := v.exec.Command(probeCtx, spec.Command, spec.Args, probeValidators...)
	if err != nil {
		return "", err
	}
	cmd.SetStdin(strings.NewReader(request))

	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		v.logger.Debug("Probe process exited non-zero",
			zap.String("server", def.ID),
			zap.Error(runErr))
	}
	return string(out), runErr
}

// credentialsLookReal gates the advanced tier: every required variable must
// hold a value that fails the placeholder heuristic.
func (v *Verifier) credentialsLookReal(def registry.ServerDefinition) bool {
	if len(def.EnvironmentVariables) == 0 {
		return true
	}
	for _, name := range def.EnvironmentVariables {
		if envfile.IsPlaceholder(v.builder.Env[name]) {
			return false
		}
	}
	return true
}

// envelope is the minimal JSON-RPC response shape the probe inspects.
type envelope struct {
	JSONRPC string `json:"jsonrpc"`
	Result  struct {
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
		Tools []json.RawMessage `json:"tools"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseEnvelope(line string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		return envelope{}, false
	}
	return env, env.JSONRPC == "2.0"
}

// firstEnvelope scans lines for the first JSON-RPC envelope amid banner
// noise.
func firstEnvelope(output string) (envelope, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if env, ok := parseEnvelope(line); ok {
			return env, true
		}
	}
	return envelope{}, false
}

// identityBearing reports whether the envelope names the responding server,
// the well-formed outcome of an initialize exchange.
func identityBearing(env envelope) bool {
	return env.Result.ServerInfo.Name != ""
}

// toolCount finds the capability-listing response in the output and returns
// how many tools it carries.
func toolCount(output string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			continue
		}
		if env.JSONRPC == "2.0" && env.Result.Tools != nil {
			return len(env.Result.Tools), true
		}
	}
	return 0, false
}

func matchesCredentialPattern(output string) bool {
	for _, p := range credentialPatterns {
		if p.MatchString(output) {
			return true
		}
	}
	return false
}
