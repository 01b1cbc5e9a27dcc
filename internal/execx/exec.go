// Package execx wraps external process execution behind an interface seam
// so orchestration code can be exercised without docker or git installed.
package execx

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// execCommandContext is a seam for tests to stub out command creation.
var execCommandContext = exec.CommandContext

// Command represents a command that can be executed.
type Command interface {
	Output() ([]byte, error)
	CombinedOutput() ([]byte, error)
	Run() error
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
	SetStdin(r io.Reader)
}

// Executor creates commands for execution. Every command is created with a
// context so blocking calls stay bounded by the caller's timeout.
type Executor interface {
	Command(ctx context.Context, name string, args []string, validators ...Validator) (Command, error)
}

// realCommand wraps exec.Cmd to implement Command.
type realCommand struct {
	cmd *exec.Cmd
}

func (c *realCommand) Output() ([]byte, error)         { return c.cmd.Output() }
func (c *realCommand) CombinedOutput() ([]byte, error) { return c.cmd.CombinedOutput() }
func (c *realCommand) Run() error                      { return c.cmd.Run() }
func (c *realCommand) SetStdout(w io.Writer)           { c.cmd.Stdout = w }
func (c *realCommand) SetStderr(w io.Writer)           { c.cmd.Stderr = w }
func (c *realCommand) SetStdin(r io.Reader)            { c.cmd.Stdin = r }

type defaultExecutor struct{}

func (defaultExecutor) Command(ctx context.Context, name string, args []string, validators ...Validator) (Command, error) {
	spec := Spec{Name: name, Args: args}
	for _, validate := range validators {
		if err := validate(spec); err != nil {
			return nil, err
		}
	}
	return &realCommand{cmd: execCommandContext(ctx, name, args...)}, nil
}

// Default returns the Executor backed by os/exec.
func Default() Executor { return defaultExecutor{} }

// Spec is the validated shape of a command before it runs.
type Spec struct {
	Name string
	Args []string
}

// Validator inspects a Spec before the command is created.
type Validator func(Spec) error

// AllowlistBins rejects any binary not in the given set.
func AllowlistBins(allowed ...string) Validator {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return func(spec Spec) error {
		if _, ok := set[spec.Name]; !ok {
			return errors.New("exec: binary not allowed")
		}
		return nil
	}
}

// NoShellMeta rejects arguments carrying shell metacharacters.
func NoShellMeta() Validator {
	return func(spec Spec) error {
		for _, arg := range spec.Args {
			if strings.ContainsAny(arg, "&|;<>()`\\") {
				return errors.New("exec: shell metacharacters not allowed")
			}
		}
		return nil
	}
}

// NoControlChars rejects arguments carrying control characters.
func NoControlChars() Validator {
	return func(spec Spec) error {
		for _, arg := range spec.Args {
			if strings.ContainsAny(arg, "\r\n\t") {
				return errors.New("exec: control characters not allowed")
			}
		}
		return nil
	}
}

// PathUnder rejects path arguments that escape root.
func PathUnder(root string) Validator {
	absRoot := root
	if abs, err := filepath.Abs(root); err == nil {
		absRoot = abs
	}
	return func(spec Spec) error {
		for _, arg := range spec.Args {
			if arg == "-" {
				continue
			}
			candidate := arg
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(absRoot, candidate)
			}
			candidate = filepath.Clean(candidate)
			rel, err := filepath.Rel(absRoot, candidate)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return errors.New("exec: path escapes root")
			}
		}
		return nil
	}
}
