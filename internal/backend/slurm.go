package backend

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/roach88/sweep/internal/sweep"
)

//go:embed templates/slurm.sh.tmpl
var defaultJobTemplate string

// sbatch prints "Submitted batch job 2723147" on success.
var submittedRe = regexp.MustCompile(`Submitted batch job (\d+)`)

// JobScript is the data a job script template is rendered with.
type JobScript struct {
	JobName string
	Python  string
	Trainer string

	// Command is the trainer flag string, with its leading space.
	Command string
}

// BatchScheduler submits runs to SLURM.
//
// Every submission rewrites the same script file, so a BatchScheduler must
// not be used from more than one goroutine.
type BatchScheduler struct {
	opts Options
	tmpl *template.Template
}

// NewBatchScheduler builds a SLURM backend, loading the job script template
// from opts.TemplatePath when set.
func NewBatchScheduler(opts Options) (*BatchScheduler, error) {
	opts = opts.withDefaults()

	text := defaultJobTemplate
	name := "slurm.sh.tmpl"
	if opts.TemplatePath != "" {
		data, err := os.ReadFile(opts.TemplatePath)
		if err != nil {
			return nil, sweep.NewConfigurationError("read job script template", err)
		}
		text = string(data)
		name = filepath.Base(opts.TemplatePath)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, sweep.NewConfigurationError("parse job script template", err)
	}
	return &BatchScheduler{opts: opts, tmpl: tmpl}, nil
}

// Kind returns KindSlurm.
func (b *BatchScheduler) Kind() Kind {
	return KindSlurm
}

// ScriptPath returns the path the job script is written to.
func (b *BatchScheduler) ScriptPath() string {
	return b.opts.ScriptPath
}

// CommandLine returns the trainer invocation inside the job script.
func (b *BatchScheduler) CommandLine(flags string) string {
	return b.opts.Python + " -u " + b.opts.Trainer + flags
}

// Render renders the job script for one run.
func (b *BatchScheduler) Render(id sweep.Identity, flags string) (string, error) {
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, JobScript{
		JobName: id.JobName,
		Python:  b.opts.Python,
		Trainer: b.opts.Trainer,
		Command: flags,
	})
	if err != nil {
		return "", fmt.Errorf("render job script: %w", err)
	}
	return buf.String(), nil
}

// Submit writes the job script and runs sbatch on it.
func (b *BatchScheduler) Submit(ctx context.Context, flags string, id sweep.Identity) (Result, error) {
	script, err := b.Render(id, flags)
	if err != nil {
		return Result{ExitCode: -1, Status: StatusRejected}, err
	}
	if err := writeScript(b.opts.ScriptPath, script); err != nil {
		return Result{ExitCode: -1, Status: StatusRejected}, err
	}
	slog.Debug("job script written", "path", b.opts.ScriptPath, "job_name", id.JobName)

	ctx, cancel := withTimeout(ctx, b.opts.Timeout)
	defer cancel()

	var out bytes.Buffer
	code, err := b.opts.Runner.Run(ctx, Command{
		Name:   b.opts.SubmitCommand,
		Args:   []string{b.opts.ScriptPath},
		Stdout: io.MultiWriter(&out, b.opts.Stdout),
		Stderr: io.MultiWriter(&out, b.opts.Stderr),
	})

	res := resultFor(code)
	res.Output = strings.TrimSpace(out.String())
	res.JobID = ParseJobID(res.Output)
	if err != nil {
		res.Status = StatusRejected
		return res, err
	}
	return res, nil
}

// ParseJobID extracts the job id from sbatch output, or "" if none.
func ParseJobID(output string) string {
	m := submittedRe.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

func writeScript(path, script string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create script dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return fmt.Errorf("write job script: %w", err)
	}
	return nil
}
