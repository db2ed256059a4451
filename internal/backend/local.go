package backend

import (
	"context"

	"github.com/roach88/sweep/internal/sweep"
)

// LocalProcess runs the trainer on this machine and waits for it to finish.
type LocalProcess struct {
	opts Options
}

// NewLocalProcess builds a local backend.
func NewLocalProcess(opts Options) *LocalProcess {
	return &LocalProcess{opts: opts.withDefaults()}
}

// Kind returns KindPython.
func (l *LocalProcess) Kind() Kind {
	return KindPython
}

// CommandLine returns the shell command that runs the trainer.
func (l *LocalProcess) CommandLine(flags string) string {
	return l.opts.Python + " " + l.opts.Trainer + flags
}

// Submit runs the trainer through sh -c and returns its exit status. The
// flag string is passed to the shell unquoted.
func (l *LocalProcess) Submit(ctx context.Context, flags string, _ sweep.Identity) (Result, error) {
	ctx, cancel := withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	code, err := l.opts.Runner.Run(ctx, Command{
		Name:   "sh",
		Args:   []string{"-c", l.CommandLine(flags)},
		Stdout: l.opts.Stdout,
		Stderr: l.opts.Stderr,
	})
	res := resultFor(code)
	if err != nil {
		res.Status = StatusRejected
		return res, err
	}
	return res, nil
}
