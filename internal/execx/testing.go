package execx

import (
	"context"
	"io"
)

// MockCommand is a test double for Command.
type MockCommand struct {
	Spec       Spec
	OutputData []byte
	OutputErr  error
	RunErr     error
	StdoutW    io.Writer
	StderrW    io.Writer
	StdinR     io.Reader
	RunFunc    func() error
}

func (m *MockCommand) Output() ([]byte, error)         { return m.OutputData, m.OutputErr }
func (m *MockCommand) CombinedOutput() ([]byte, error) { return m.OutputData, m.OutputErr }
func (m *MockCommand) Run() error {
	if m.RunFunc != nil {
		if err := m.RunFunc(); err != nil {
			return err
		}
	}
	return m.RunErr
}
func (m *MockCommand) SetStdout(w io.Writer) { m.StdoutW = w }
func (m *MockCommand) SetStderr(w io.Writer) { m.StderrW = w }
func (m *MockCommand) SetStdin(r io.Reader)  { m.StdinR = r }

// MockExecutor is a test double for Executor.
type MockExecutor struct {
	// Commands records all commands that were created.
	Commands []Spec
	// Contexts records the context each command was created with.
	Contexts []context.Context
	// DefaultOutput is returned by commands when CommandFunc is nil.
	DefaultOutput []byte
	// DefaultErr is the error returned by Output/CombinedOutput.
	DefaultErr error
	// DefaultRunErr is the error returned by Run.
	DefaultRunErr error
	// CommandFunc allows custom behavior per command.
	CommandFunc func(spec Spec) *MockCommand
}

func (m *MockExecutor) Command(ctx context.Context, name string, args []string, validators ...Validator) (Command, error) {
	spec := Spec{Name: name, Args: args}
	for _, validate := range validators {
		if err := validate(spec); err != nil {
			return nil, err
		}
	}
	m.Commands = append(m.Commands, spec)
	m.Contexts = append(m.Contexts, ctx)

	if m.CommandFunc != nil {
		cmd := m.CommandFunc(spec)
		cmd.Spec = spec
		return cmd, nil
	}
	return &MockCommand{
		Spec:       spec,
		OutputData: m.DefaultOutput,
		OutputErr:  m.DefaultErr,
		RunErr:     m.DefaultRunErr,
	}, nil
}

// LastCommand returns the most recent command spec.
func (m *MockExecutor) LastCommand() Spec {
	if len(m.Commands) == 0 {
		return Spec{}
	}
	return m.Commands[len(m.Commands)-1]
}

// HasCommand reports whether a command with the given binary name ran.
func (m *MockExecutor) HasCommand(name string) bool {
	for _, c := range m.Commands {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Reset clears recorded commands.
func (m *MockExecutor) Reset() {
	m.Commands = nil
	m.Contexts = nil
}
