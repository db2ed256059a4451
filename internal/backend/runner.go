package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command is an external command to run.
type Command struct {
	Name   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner runs an external command to completion.
//
// Run returns the command's exit code. A command that ran and exited
// non-zero is not an error; err is reserved for commands that could not be
// started or were interrupted by ctx.
type Runner interface {
	Run(ctx context.Context, cmd Command) (exitCode int, err error)
}

// ExecError wraps a failure to start a command.
type ExecError struct {
	Command string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("run %q: %v", e.Command, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts cmd and waits for it.
func (ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return exitErr.ExitCode(), fmt.Errorf("%s: %w", c.Name, ctxErr)
		}
		return exitErr.ExitCode(), nil
	}
	return -1, &ExecError{Command: c.String(), Err: err}
}
