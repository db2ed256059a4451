package orchestrator

import (
	"context"

	"github.com/roach88/sweep/internal/fingerprint"
	"github.com/roach88/sweep/internal/runconfig"
	"github.com/roach88/sweep/internal/sweep"
)

// Run is one planned submission.
type Run struct {
	Point sweep.Point

	// Flags is the trainer flag string built from the point's config.
	Flags string

	// CommandLine is the trainer invocation as the backend runs it.
	CommandLine string

	// Fingerprint identifies the run's resolved configuration.
	Fingerprint string
}

// Plan is a validated, fully expanded sweep.
type Plan struct {
	Runs []Run
}

// Len returns the number of planned runs.
func (p *Plan) Len() int {
	return len(p.Runs)
}

// Plan expands the sweep, resolves over-LoRA chains against trainer state
// already on disk and checks that output directories are unique. It submits
// nothing.
func (o *Orchestrator) Plan(ctx context.Context) (*Plan, error) {
	plan := &Plan{Runs: make([]Run, 0, o.expander.Size())}
	seen := make(map[string]sweep.Point, o.expander.Size())

	for p, err := range o.expander.Points() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err = o.resolver.Resolve(p)
		if err != nil {
			return nil, err
		}
		if err := claimOutputDir(seen, p); err != nil {
			return nil, err
		}

		run, err := o.prepare(p)
		if err != nil {
			return nil, err
		}
		plan.Runs = append(plan.Runs, run)
	}
	return plan, nil
}

// prepare builds the command and fingerprint for a resolved point.
func (o *Orchestrator) prepare(p sweep.Point) (Run, error) {
	fp, err := fingerprint.Run(p.Config.Map())
	if err != nil {
		return Run{}, sweep.NewConfigurationError("fingerprint point", err)
	}
	flags := runconfig.BuildCommand(p.Config)
	return Run{
		Point:       p,
		Flags:       flags,
		CommandLine: o.backend.CommandLine(flags),
		Fingerprint: fp,
	}, nil
}

// claimOutputDir records p's output dir, failing if another point holds it.
func claimOutputDir(seen map[string]sweep.Point, p sweep.Point) error {
	dir := p.OutputDir()
	if prev, ok := seen[dir]; ok {
		return sweep.NewCollisionError(prev, p)
	}
	seen[dir] = p
	return nil
}
