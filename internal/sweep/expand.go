package sweep

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/roach88/sweep/internal/runconfig"
)

// LoggingSteps maps a shot count to the eval/save cadence of non-freeze runs.
var LoggingSteps = map[string]int64{
	"50": 970,
	"10": 100,
	"5":  50,
	"1":  10,
}

// Mode is the axis a sweep enumerates below (dataset, shot, seed). It is one
// of PlainSweep, FreezeSweep or LoraSweep.
type Mode interface {
	// Name identifies the variant in logs and reports.
	Name() string

	// Width is the number of points per (dataset, shot, seed).
	Width() int

	points(e *Expander, c coords) ([]Point, error)
}

// PlainSweep emits a single nolora point per coordinate.
type PlainSweep struct{}

// FreezeSweep emits one point per freeze pair.
type FreezeSweep struct {
	Pairs []FreezePair
}

// LoraSweep emits one point per LoRA rank. With OverLoRA each point records
// the nolora run it should chain onto.
type LoraSweep struct {
	Ranks    []string
	OverLoRA bool
}

func (PlainSweep) Name() string  { return "plain" }
func (FreezeSweep) Name() string { return "freeze" }
func (LoraSweep) Name() string   { return "lora" }

func (PlainSweep) Width() int    { return 1 }
func (m FreezeSweep) Width() int { return len(m.Pairs) }
func (m LoraSweep) Width() int   { return len(m.Ranks) }

type coords struct {
	dataset string
	shot    string
	seed    string
}

func (PlainSweep) points(e *Expander, c coords) ([]Point, error) {
	dir := BranchDir(e.spec.OutputRoot, c.dataset, c.shot, BranchNoLoRA, c.seed, "")
	cfg, err := e.scheduledConfig(c, dir)
	if err != nil {
		return nil, err
	}
	return []Point{{
		Dataset: c.dataset,
		Shot:    c.shot,
		Seed:    c.seed,
		Branch:  BranchNoLoRA,
		Config:  cfg,
	}}, nil
}

func (m FreezeSweep) points(e *Expander, c coords) ([]Point, error) {
	out := make([]Point, 0, len(m.Pairs))
	for _, pair := range m.Pairs {
		cfg := e.base.With(
			runconfig.Entry{Key: KeyFreezeModules, Value: pair.Modules},
			runconfig.Entry{Key: KeyFreezeAt, Value: pair.At},
			runconfig.Entry{Key: KeyDatasetName, Value: c.dataset},
			runconfig.Entry{Key: KeySeed, Value: c.seed},
			runconfig.Entry{Key: KeyShots, Value: c.shot},
			runconfig.Entry{Key: KeyOutputDir, Value: FreezeDir(e.spec.OutputRoot, c.dataset, c.shot, c.seed, pair)},
		)
		out = append(out, Point{
			Dataset: c.dataset,
			Shot:    c.shot,
			Seed:    c.seed,
			Branch:  BranchFreeze,
			Freeze:  pair,
			Config:  cfg,
		})
	}
	return out, nil
}

func (m LoraSweep) points(e *Expander, c coords) ([]Point, error) {
	var chainFrom string
	if m.OverLoRA {
		chainFrom = BranchDir(e.spec.OutputRoot, c.dataset, c.shot, BranchNoLoRA, c.seed, "")
	}

	out := make([]Point, 0, len(m.Ranks))
	for _, rank := range m.Ranks {
		dir := BranchDir(e.spec.OutputRoot, c.dataset, c.shot, BranchLoRA, c.seed, rank)
		cfg, err := e.scheduledConfig(c, dir)
		if err != nil {
			return nil, err
		}
		cfg = cfg.With(
			runconfig.Entry{Key: KeyUseLoRA, Value: true},
			runconfig.Entry{Key: KeyLoRARank, Value: rank},
		)
		out = append(out, Point{
			Dataset:   c.dataset,
			Shot:      c.shot,
			Seed:      c.seed,
			Branch:    BranchLoRA,
			Rank:      rank,
			ChainFrom: chainFrom,
			Config:    cfg,
		})
	}
	return out, nil
}

// Expander turns a Spec and a base config into sweep points.
type Expander struct {
	spec Spec
	base *runconfig.Config
	mode Mode
}

// NewExpander validates spec and returns an expander over it. base is never
// modified.
func NewExpander(spec Spec, base *runconfig.Config) (*Expander, error) {
	if base == nil {
		return nil, NewConfigurationError("base config is required", nil)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Expander{spec: spec, base: base, mode: spec.Mode()}, nil
}

// Spec returns the sweep spec.
func (e *Expander) Spec() Spec {
	return e.spec
}

// Mode returns the sweep variant.
func (e *Expander) Mode() Mode {
	return e.mode
}

// Size returns the number of points the sweep expands to.
func (e *Expander) Size() int {
	return len(e.spec.Datasets) * len(e.spec.Shots) * len(e.spec.Seeds) * e.mode.Width()
}

// Points yields the sweep's points lazily in dataset, shot, seed, mode
// order. The sequence stops after the first error.
func (e *Expander) Points() iter.Seq2[Point, error] {
	return func(yield func(Point, error) bool) {
		index := 0
		for _, dataset := range e.spec.Datasets {
			for _, shot := range e.spec.Shots {
				for _, seed := range e.spec.Seeds {
					pts, err := e.mode.points(e, coords{dataset: dataset, shot: shot, seed: seed})
					if err != nil {
						yield(Point{Index: index, Dataset: dataset, Shot: shot, Seed: seed}, err)
						return
					}
					for _, p := range pts {
						p.Index = index
						index++
						if !yield(p, nil) {
							return
						}
					}
				}
			}
		}
	}
}

// All expands the whole sweep.
func (e *Expander) All() ([]Point, error) {
	out := make([]Point, 0, e.Size())
	for p, err := range e.Points() {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// scheduledConfig derives the config shared by plain and LoRA points.
func (e *Expander) scheduledConfig(c coords, outputDir string) (*runconfig.Config, error) {
	steps, ok := LoggingSteps[c.shot]
	if !ok {
		known := slices.Sorted(maps.Keys(LoggingSteps))
		return nil, NewConfigurationError(
			fmt.Sprintf("shot %q has no logging-steps entry (known shots: %v)", c.shot, known), nil)
	}
	return e.base.With(
		runconfig.Entry{Key: KeyDatasetName, Value: c.dataset},
		runconfig.Entry{Key: KeySeed, Value: c.seed},
		runconfig.Entry{Key: KeyShots, Value: c.shot},
		runconfig.Entry{Key: KeyOutputDir, Value: outputDir},
		runconfig.Entry{Key: KeyEvalSteps, Value: steps},
		runconfig.Entry{Key: KeySaveSteps, Value: steps},
	), nil
}
