package sweep

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec describes a sweep: the axes to enumerate and how to submit each run.
// It is built once (from flags, optionally seeded by a sweep file) and only
// read afterwards.
type Spec struct {
	Datasets []string `yaml:"datasets" json:"datasets"`
	Shots    []string `yaml:"shots" json:"shots"`
	Seeds    []string `yaml:"seeds" json:"seeds"`

	// OutputRoot prefixes every run's output_dir.
	OutputRoot string `yaml:"output_root" json:"output_root"`

	FreezeMode  bool         `yaml:"freeze_mode" json:"freeze_mode"`
	FreezePairs []FreezePair `yaml:"freeze_pairs" json:"freeze_pairs,omitempty"`

	UseLoRA   bool     `yaml:"use_lora" json:"use_lora"`
	LoRARanks []string `yaml:"lora_ranks" json:"lora_ranks,omitempty"`
	OverLoRA  bool     `yaml:"over_lora" json:"over_lora"`

	// Backend is the execution backend selector ("slurm" or "python").
	Backend string `yaml:"exec_type" json:"exec_type"`
}

// FreezePair is one freezing strategy: which modules to freeze and from
// where. Empty strings mean "no override".
type FreezePair struct {
	Modules string `yaml:"modules" json:"modules"`
	At      string `yaml:"at" json:"at"`
}

// DefaultFreezeModules and DefaultFreezeAt are zipped into the freeze pairs
// used when a freeze sweep names none.
var (
	DefaultFreezeModules = []string{"", "backbone", "backbone", "bias", "norm"}
	DefaultFreezeAt      = []string{"", "0", "half", "", ""}
)

// PairFreeze zips module and freeze-at lists into pairs. An empty list is
// replaced by its default. The lists must have equal length.
func PairFreeze(modules, at []string) ([]FreezePair, error) {
	if len(modules) == 0 {
		modules = DefaultFreezeModules
	}
	if len(at) == 0 {
		at = DefaultFreezeAt
	}
	if len(modules) != len(at) {
		return nil, NewConfigurationError(
			fmt.Sprintf("freeze modules (%d) and freeze-at values (%d) must pair up", len(modules), len(at)), nil)
	}
	pairs := make([]FreezePair, len(modules))
	for i := range modules {
		pairs[i] = FreezePair{Modules: modules[i], At: at[i]}
	}
	return pairs, nil
}

// Validate checks that the spec describes at least one point and that its
// axes are consistent.
func (s Spec) Validate() error {
	var errs []error
	check := func(name string, values []string) {
		if len(values) == 0 {
			errs = append(errs, fmt.Errorf("%s: at least one value is required", name))
			return
		}
		for i, v := range values {
			if v == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: empty value", name, i))
			}
		}
	}
	check("datasets", s.Datasets)
	check("shots", s.Shots)
	check("seeds", s.Seeds)
	for i, d := range s.Datasets {
		if d != "" && DatasetBasename(d) == "" {
			errs = append(errs, fmt.Errorf("datasets[%d]: %q has no basename", i, d))
		}
	}
	if s.OutputRoot == "" {
		errs = append(errs, errors.New("output root is required"))
	}
	if s.FreezeMode && len(s.FreezePairs) == 0 {
		errs = append(errs, errors.New("freeze mode needs at least one freeze pair"))
	}
	if !s.FreezeMode && s.UseLoRA {
		check("lora_ranks", s.LoRARanks)
	}
	if s.OverLoRA && !s.UseLoRA {
		errs = append(errs, errors.New("over-LoRA requires LoRA to be enabled"))
	}
	if len(errs) > 0 {
		return NewConfigurationError("invalid sweep", errors.Join(errs...))
	}
	return nil
}

// Mode picks the sweep variant. Freeze mode wins over LoRA.
func (s Spec) Mode() Mode {
	switch {
	case s.FreezeMode:
		return FreezeSweep{Pairs: s.FreezePairs}
	case s.UseLoRA:
		return LoraSweep{Ranks: s.LoRARanks, OverLoRA: s.OverLoRA}
	default:
		return PlainSweep{}
	}
}

// LoadSpecFile reads a YAML sweep file.
func LoadSpecFile(path string) (Spec, error) {
	var s Spec
	data, err := os.ReadFile(path)
	if err != nil {
		return s, NewConfigurationError("read sweep file", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, NewConfigurationError("decode sweep file "+path, err)
	}
	return s, nil
}
