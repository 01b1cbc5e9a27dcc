package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"mcp-fleet/internal/execx"
	"mcp-fleet/pkg/registry"
)

func imageDef(id, image string) registry.ServerDefinition {
	return registry.ServerDefinition{
		ID:         id,
		ServerType: "standalone",
		Source:     registry.Source{Type: registry.SourceImage, Image: image},
	}
}

func buildDef(id string) registry.ServerDefinition {
	return registry.ServerDefinition{
		ID:         id,
		ServerType: "api_based",
		Source: registry.Source{
			Type:       registry.SourceBuild,
			Repository: "https://git.example.com/" + id + ".git",
			Image:      "example/" + id,
		},
	}
}

func TestEnsurePulled(t *testing.T) {
	t.Run("present-image-is-a-no-op", func(t *testing.T) {
		mock := &execx.MockExecutor{} // inspect succeeds by default
		o := New(zap.NewNop(), WithExecutor(mock))

		res := o.Ensure(context.Background(), imageDef("alpha", "example/alpha"))
		if res.State != StatePresent {
			t.Fatalf("state = %s, want present", res.State)
		}
		if len(mock.Commands) != 1 {
			t.Fatalf("expected only the inspect call, got %v", mock.Commands)
		}
		if mock.Commands[0].Args[0] != "image" || mock.Commands[0].Args[1] != "inspect" {
			t.Errorf("first call is not an inspect: %v", mock.Commands[0])
		}
	})

	t.Run("absent-image-is-pulled", func(t *testing.T) {
		mock := &execx.MockExecutor{
			CommandFunc: func(spec execx.Spec) *execx.MockCommand {
				if spec.Args[0] == "image" {
					return &execx.MockCommand{RunErr: errors.New("no such image")}
				}
				return &execx.MockCommand{}
			},
		}
		o := New(zap.NewNop(), WithExecutor(mock))

		res := o.Ensure(context.Background(), imageDef("alpha", "example/alpha"))
		if res.State != StatePresent {
			t.Fatalf("state = %s, want present (%v)", res.State, res.Err)
		}
		last := mock.LastCommand()
		if last.Name != "docker" || last.Args[0] != "pull" || last.Args[1] != "example/alpha" {
			t.Errorf("expected a pull of the image, got %v", last)
		}
	})

	t.Run("pull-failure-soft-fails", func(t *testing.T) {
		mock := &execx.MockExecutor{
			CommandFunc: func(spec execx.Spec) *execx.MockCommand {
				return &execx.MockCommand{RunErr: errors.New("network down")}
			},
		}
		o := New(zap.NewNop(), WithExecutor(mock))

		res := o.Ensure(context.Background(), imageDef("alpha", "example/alpha"))
		if res.State != StateFailed {
			t.Fatalf("state = %s, want failed", res.State)
		}
		if !errors.Is(res.Err, ErrPullFailed) {
			t.Errorf("err = %v, want ErrPullFailed", res.Err)
		}
	})
}

func TestEnsureBuilt(t *testing.T) {
	t.Run("clone-then-build", func(t *testing.T) {
		mock := &execx.MockExecutor{}
		o := New(zap.NewNop(), WithExecutor(mock), WithScratchRoot(t.TempDir()))

		res := o.Ensure(context.Background(), buildDef("beta"))
		if res.State != StatePresent {
			t.Fatalf("state = %s, want present (%v)", res.State, res.Err)
		}
		if len(mock.Commands) != 2 {
			t.Fatalf("expected clone and build, got %v", mock.Commands)
		}
		if mock.Commands[0].Name != "git" || mock.Commands[0].Args[0] != "clone" {
			t.Errorf("first call must clone: %v", mock.Commands[0])
		}
		if mock.Commands[1].Name != "docker" || mock.Commands[1].Args[0] != "build" {
			t.Errorf("second call must build: %v", mock.Commands[1])
		}
	})

	t.Run("scratch-dir-is-keyed-by-server-id", func(t *testing.T) {
		mock := &execx.MockExecutor{}
		root := t.TempDir()
		o := New(zap.NewNop(), WithExecutor(mock), WithScratchRoot(root))

		o.Ensure(context.Background(), buildDef("beta"))
		scratch := mock.Commands[0].Args[len(mock.Commands[0].Args)-1]
		if !strings.HasPrefix(scratch, root) || !strings.Contains(scratch, "beta") {
			t.Errorf("scratch dir %q not under root or not keyed by id", scratch)
		}
	})

	t.Run("pinned-recipe-substituted-before-build", func(t *testing.T) {
		recipes := t.TempDir()
		if err := os.WriteFile(filepath.Join(recipes, "beta.Dockerfile"), []byte("FROM pinned:latest\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		var built string
		mock := &execx.MockExecutor{
			CommandFunc: func(spec execx.Spec) *execx.MockCommand {
				scratch := spec.Args[len(spec.Args)-1]
				if spec.Name == "git" {
					return &execx.MockCommand{RunFunc: func() error { return os.MkdirAll(scratch, 0o755) }}
				}
				return &execx.MockCommand{RunFunc: func() error {
					data, err := os.ReadFile(filepath.Join(scratch, "Dockerfile"))
					if err != nil {
						return err
					}
					built = string(data)
					return nil
				}}
			},
		}
		o := New(zap.NewNop(), WithExecutor(mock), WithScratchRoot(t.TempDir()), WithRecipesDir(recipes))

		res := o.Ensure(context.Background(), buildDef("beta"))
		if res.State != StatePresent {
			t.Fatalf("state = %s, want present (%v)", res.State, res.Err)
		}
		if built != "FROM pinned:latest\n" {
			t.Errorf("build did not use the pinned recipe, saw %q", built)
		}
	})

	t.Run("scratch-removed-after-failed-build", func(t *testing.T) {
		var scratch string
		mock := &execx.MockExecutor{
			CommandFunc: func(spec execx.Spec) *execx.MockCommand {
				if spec.Name == "git" {
					scratch = spec.Args[len(spec.Args)-1]
					return &execx.MockCommand{RunFunc: func() error { return os.MkdirAll(scratch, 0o755) }}
				}
				return &execx.MockCommand{RunErr: errors.New("compile error")}
			},
		}
		o := New(zap.NewNop(), WithExecutor(mock), WithScratchRoot(t.TempDir()))

		res := o.Ensure(context.Background(), buildDef("beta"))
		if !errors.Is(res.Err, ErrBuildFailed) {
			t.Fatalf("err = %v, want ErrBuildFailed", res.Err)
		}
		if _, statErr := os.Stat(scratch); !os.IsNotExist(statErr) {
			t.Errorf("scratch dir %q survived a failed build", scratch)
		}
	})

	t.Run("clone-failure-never-builds", func(t *testing.T) {
		mock := &execx.MockExecutor{
			CommandFunc: func(spec execx.Spec) *execx.MockCommand {
				if spec.Name == "git" {
					return &execx.MockCommand{RunErr: errors.New("repo gone")}
				}
				return &execx.MockCommand{}
			},
		}
		o := New(zap.NewNop(), WithExecutor(mock), WithScratchRoot(t.TempDir()))

		res := o.Ensure(context.Background(), buildDef("beta"))
		if !errors.Is(res.Err, ErrCloneFailed) {
			t.Fatalf("err = %v, want ErrCloneFailed", res.Err)
		}
		if mock.HasCommand("docker") {
			t.Error("build ran despite a failed clone")
		}
	})
}

func TestExternalCallsAreBounded(t *testing.T) {
	mock := &execx.MockExecutor{
		CommandFunc: func(spec execx.Spec) *execx.MockCommand {
			if spec.Name == "git" {
				scratch := spec.Args[len(spec.Args)-1]
				return &execx.MockCommand{RunFunc: func() error { return os.MkdirAll(scratch, 0o755) }}
			}
			if spec.Args[0] == "image" {
				return &execx.MockCommand{RunErr: errors.New("no such image")}
			}
			return &execx.MockCommand{}
		},
	}
	o := New(zap.NewNop(), WithExecutor(mock), WithScratchRoot(t.TempDir()), WithTimeout(time.Minute))

	o.Ensure(context.Background(), imageDef("alpha", "example/alpha"))
	o.Ensure(context.Background(), buildDef("beta"))

	if len(mock.Contexts) != 4 {
		t.Fatalf("expected inspect, pull, clone, build calls, got %d", len(mock.Contexts))
	}
	for i, callCtx := range mock.Contexts {
		if _, ok := callCtx.Deadline(); !ok {
			t.Errorf("call %d (%s %v) carries no deadline", i, mock.Commands[i].Name, mock.Commands[i].Args)
		}
	}
}

func TestEnsureRemoteIsNoOp(t *testing.T) {
	mock := &execx.MockExecutor{}
	o := New(zap.NewNop(), WithExecutor(mock))

	res := o.Ensure(context.Background(), registry.ServerDefinition{
		ID:         "hosted",
		ServerType: "remote",
		Source:     registry.Source{Type: registry.SourceRemote, URL: "https://mcp.example.com", Cmd: "mcp-proxy"},
	})
	if res.State != StatePresent {
		t.Fatalf("state = %s, want present", res.State)
	}
	if len(mock.Commands) != 0 {
		t.Errorf("remote setup ran commands: %v", mock.Commands)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	mock := &execx.MockExecutor{
		CommandFunc: func(spec execx.Spec) *execx.MockCommand {
			if spec.Name == "docker" && spec.Args[0] == "image" && spec.Args[2] == "example/bad" {
				return &execx.MockCommand{RunErr: errors.New("no such image")}
			}
			if spec.Name == "docker" && spec.Args[0] == "pull" {
				return &execx.MockCommand{RunErr: errors.New("network down")}
			}
			return &execx.MockCommand{}
		},
	}
	o := New(zap.NewNop(), WithExecutor(mock))

	file := &registry.File{Servers: map[string]registry.ServerDefinition{
		"bad":  imageDef("bad", "example/bad"),
		"good": imageDef("good", "example/good"),
	}}

	results := o.Run(context.Background(), file, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.ID] = r
	}
	if !byID["bad"].Failed() {
		t.Error("bad server should have failed")
	}
	if byID["good"].Failed() {
		t.Errorf("good server blocked by bad one: %v", byID["good"].Err)
	}
}

func TestRunUnknownID(t *testing.T) {
	o := New(zap.NewNop(), WithExecutor(&execx.MockExecutor{}))
	file := &registry.File{Servers: map[string]registry.ServerDefinition{}}

	results := o.Run(context.Background(), file, []string{"ghost"})
	if len(results) != 1 || !results[0].Failed() {
		t.Fatalf("expected one failed result, got %+v", results)
	}
}
