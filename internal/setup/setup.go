// Package setup realizes the container image each server needs: pulling
// registry images, cloning and building source servers, idempotently.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-fleet/internal/execx"
	"mcp-fleet/pkg/registry"
)

// State of one server's image in the setup state machine.
type State string

const (
	StateNotPresent State = "not_present"
	StatePulling    State = "pulling"
	StateCloning    State = "cloning"
	StateBuilding   State = "building"
	StatePresent    State = "present"
	StateFailed     State = "failed"
)

// Sentinel errors for external tool failures. All are recoverable at the
// run level: they mark that one unit as failed and the run continues.
var (
	ErrPullFailed  = errors.New("image pull failed")
	ErrCloneFailed = errors.New("repository clone failed")
	ErrBuildFailed = errors.New("image build failed")
)

// Result is one server's terminal setup outcome.
type Result struct {
	ID     string
	State  State
	Detail string
	Err    error
}

// Failed reports whether the unit ended in the failed state.
func (r Result) Failed() bool { return r.State == StateFailed }

// Orchestrator drives the per-server setup state machines. Units run
// serially: the container runtime's image cache is a shared host resource
// and serialized execution keeps builds from racing on the same tag.
type Orchestrator struct {
	exec        execx.Executor
	logger      *zap.Logger
	scratchRoot string
	recipesDir  string
	timeout     time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor replaces the process executor (used by tests).
func WithExecutor(e execx.Executor) Option {
	return func(o *Orchestrator) { o.exec = e }
}

// WithScratchRoot sets where build clones are placed.
func WithScratchRoot(dir string) Option {
	return func(o *Orchestrator) { o.scratchRoot = dir }
}

// WithRecipesDir sets the directory of pinned replacement build recipes,
// one <server-id>.Dockerfile per server whose upstream repository lacks a
// working recipe.
func WithRecipesDir(dir string) Option {
	return func(o *Orchestrator) { o.recipesDir = dir }
}

// WithTimeout bounds each external pull/clone/build call. A timed-out call
// soft-fails its unit; the run continues.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New creates an Orchestrator.
func New(logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		exec:        execx.Default(),
		logger:      logger,
		scratchRoot: os.TempDir(),
		timeout:     10 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var setupValidators = []execx.Validator{
	execx.AllowlistBins("docker", "git"),
	execx.NoControlChars(),
}

// Run attempts every server independently and returns one result per
// server. A failed unit never blocks or corrupts another's transition.
func (o *Orchestrator) Run(ctx context.Context, file *registry.File, ids []string) []Result {
	if len(ids) == 0 {
		ids = file.IDs()
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		def, ok := file.Get(id)
		if !ok {
			results = append(results, Result{
				ID:     id,
				State:  StateFailed,
				Detail: "not declared in registry",
				Err:    fmt.Errorf("server %q not declared in registry", id),
			})
			continue
		}
		results = append(results, o.Ensure(ctx, def))
	}
	return results
}

// Ensure drives one server through NotPresent -> Pulling/Cloning ->
// Building -> Present, or to Failed.
func (o *Orchestrator) Ensure(ctx context.Context, def registry.ServerDefinition) Result {
	if err := registry.Validate(def); err != nil {
		return Result{ID: def.ID, State: StateFailed, Detail: "malformed entry", Err: err}
	}

	switch def.Source.Type {
	case registry.SourceImage:
		return o.ensurePulled(ctx, def)
	case registry.SourceBuild:
		return o.ensureBuilt(ctx, def)
	case registry.SourceRemote:
		return Result{ID: def.ID, State: StatePresent, Detail: "remote endpoint, nothing to realize"}
	default:
		return Result{ID: def.ID, State: StateFailed, Detail: "unknown source kind", Err: registry.ErrMalformedEntry}
	}
}

// ensurePulled short-circuits to Present when the image already exists
// locally; re-running setup then performs zero network calls.
func (o *Orchestrator) ensurePulled(ctx context.Context, def registry.ServerDefinition) Result {
	image := def.Source.Image

	inspectCtx, cancelInspect := context.WithTimeout(ctx, o.timeout)
	defer cancelInspect()
	inspect, err := o.exec.Command(inspectCtx, "docker", []string{"image", "inspect", image}, setupValidators...)
	if err == nil {
		inspect.SetStdout(io.Discard)
		inspect.SetStderr(io.Discard)
		if inspect.Run() == nil {
			o.logger.Debug("Image already present", zap.String("server", def.ID), zap.String("image", image))
			return Result{ID: def.ID, State: StatePresent, Detail: "image already present"}
		}
	}

	o.logger.Info("Pulling image", zap.String("server", def.ID), zap.String("image", image))
	pullCtx, cancelPull := context.WithTimeout(ctx, o.timeout)
	defer cancelPull()
	pull, err := o.exec.Command(pullCtx, "docker", []string{"pull", image}, setupValidators...)
	if err != nil {
		return Result{ID: def.ID, State: StateFailed, Detail: "pull rejected", Err: fmt.Errorf("%w: %v", ErrPullFailed, err)}
	}
	pull.SetStdout(os.Stdout)
	pull.SetStderr(os.Stderr)
	if err := pull.Run(); err != nil {
		return Result{
			ID:     def.ID,
			State:  StateFailed,
			Detail: fmt.Sprintf("pull of %s failed", image),
			Err:    fmt.Errorf("%w: %s: %v", ErrPullFailed, image, err),
		}
	}

	return Result{ID: def.ID, State: StatePresent, Detail: "image pulled"}
}

// ensureBuilt clones into an isolated scratch directory keyed by server id,
// substitutes a pinned recipe when one exists, builds the target image, and
// removes the scratch directory regardless of outcome so partial clones
// never accumulate.
func (o *Orchestrator) ensureBuilt(ctx context.Context, def registry.ServerDefinition) Result {
	scratch := filepath.Join(o.scratchRoot, "mcp-fleet-"+def.ID+"-"+uuid.NewString())
	defer os.RemoveAll(scratch)

	o.logger.Info("Cloning repository", zap.String("server", def.ID), zap.String("repository", def.Source.Repository))
	cloneCtx, cancelClone := context.WithTimeout(ctx, o.timeout)
	defer cancelClone()
	clone, err := o.exec.Command(cloneCtx, "git", []string{"clone", "--depth", "1", def.Source.Repository, scratch}, setupValidators...)
	if err != nil {
		return Result{ID: def.ID, State: StateFailed, Detail: "clone rejected", Err: fmt.Errorf("%w: %v", ErrCloneFailed, err)}
	}
	clone.SetStdout(os.Stdout)
	clone.SetStderr(os.Stderr)
	if err := clone.Run(); err != nil {
		return Result{
			ID:     def.ID,
			State:  StateFailed,
			Detail: fmt.Sprintf("clone of %s failed", def.Source.Repository),
			Err:    fmt.Errorf("%w: %s: %v", ErrCloneFailed, def.Source.Repository, err),
		}
	}

	dockerfile := def.Source.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	if o.recipesDir != "" {
		pinned := filepath.Join(o.recipesDir, def.ID+".Dockerfile")
		if _, statErr := os.Stat(pinned); statErr == nil {
			o.logger.Info("Substituting pinned build recipe", zap.String("server", def.ID), zap.String("recipe", pinned))
			if copyErr := copyFile(pinned, filepath.Join(scratch, dockerfile)); copyErr != nil {
				return Result{
					ID:     def.ID,
					State:  StateFailed,
					Detail: "failed to substitute pinned recipe",
					Err:    fmt.Errorf("%w: %v", ErrBuildFailed, copyErr),
				}
			}
		}
	}

	o.logger.Info("Building image", zap.String("server", def.ID), zap.String("image", def.Source.Image))
	buildCtx, cancelBuild := context.WithTimeout(ctx, o.timeout)
	defer cancelBuild()
	build, err := o.exec.Command(buildCtx, "docker", []string{
		"build",
		"-f", filepath.Join(scratch, dockerfile),
		"-t", def.Source.Image,
		scratch,
	}, setupValidators...)
	if err != nil {
		return Result{ID: def.ID, State: StateFailed, Detail: "build rejected", Err: fmt.Errorf("%w: %v", ErrBuildFailed, err)}
	}
	build.SetStdout(os.Stdout)
	build.SetStderr(os.Stderr)
	if err := build.Run(); err != nil {
		return Result{
			ID:     def.ID,
			State:  StateFailed,
			Detail: fmt.Sprintf("build of %s failed", def.Source.Image),
			Err:    fmt.Errorf("%w: %s: %v", ErrBuildFailed, def.Source.Image, err),
		}
	}

	return Result{ID: def.ID, State: StatePresent, Detail: "image built from source"}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src) // #nosec G304 -- recipe path derives from the configured recipes dir.
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
