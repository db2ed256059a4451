package cli

import (
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/backend"
	"github.com/roach88/sweep/internal/runconfig"
	"github.com/roach88/sweep/internal/sweep"
)

// Defaults for the sweep flags.
const (
	DefaultConfigPath = "configs/models/diffusiondet_dota.json"
	DefaultOutputDir  = "diffusiondet"
	DefaultRunsDir    = "runs"
)

// SweepOptions holds the flags shared by launch and plan.
type SweepOptions struct {
	*RootOptions

	ConfigPath string
	SweepFile  string

	Datasets []string
	Seeds    []string
	Shots    []string

	OutputDir string
	RunsDir   string

	FreezeMode    bool
	FreezeModules []string
	FreezeAt      []string

	UseLoRA   bool
	LoRARanks []string
	OverLoRA  bool

	ExecType string

	ScriptPath     string
	ScriptTemplate string
	Python         string
	Trainer        string
	SubmitCommand  string
	Timeout        time.Duration
}

// addSweepFlags registers the sweep and backend flags on cmd.
func addSweepFlags(cmd *cobra.Command, opts *SweepOptions) {
	f := cmd.Flags()

	f.StringVar(&opts.ConfigPath, "config", DefaultConfigPath, "base run config (.json, .yaml or .cue)")
	f.StringVar(&opts.SweepFile, "sweep-file", "", "YAML sweep file providing defaults for the sweep flags")

	f.StringSliceVar(&opts.Datasets, "dataset-names", []string{"detection-datasets/coco"}, "datasets to sweep")
	f.StringSliceVar(&opts.Seeds, "seed", []string{"1338"}, "seeds to sweep")
	f.StringSliceVar(&opts.Shots, "shots", []string{"10"}, "shot counts to sweep")

	f.StringVar(&opts.OutputDir, "output-dir", DefaultOutputDir, "sweep output directory, under --runs-dir")
	f.StringVar(&opts.RunsDir, "runs-dir", DefaultRunsDir, "root directory for all runs")

	f.BoolVar(&opts.FreezeMode, "freeze-mode", false, "sweep freezing strategies")
	f.StringSliceVar(&opts.FreezeModules, "freeze-modules", nil, "modules to freeze, paired with --freeze-at")
	f.StringSliceVar(&opts.FreezeAt, "freeze-at", nil, "freeze-at values, paired with --freeze-modules")

	f.BoolVar(&opts.UseLoRA, "use-lora", false, "sweep LoRA ranks")
	f.StringSliceVar(&opts.LoRARanks, "lora-ranks", []string{"8"}, "LoRA ranks to sweep")
	f.BoolVar(&opts.OverLoRA, "over-lora", false, "chain LoRA runs onto the best checkpoint of a full fine-tuning run")

	f.StringVar(&opts.ExecType, "exec-type", string(backend.KindSlurm), "execution backend (slurm|python)")

	f.StringVar(&opts.ScriptPath, "script-path", backend.DefaultScriptPath, "where the batch job script is written")
	f.StringVar(&opts.ScriptTemplate, "script-template", "", "job script template (default: built-in)")
	f.StringVar(&opts.Python, "python", backend.DefaultPython, "interpreter used to start the trainer")
	f.StringVar(&opts.Trainer, "trainer", backend.DefaultTrainer, "trainer script")
	f.StringVar(&opts.SubmitCommand, "submit-command", backend.DefaultSubmit, "batch submission command")
	f.DurationVar(&opts.Timeout, "timeout", 0, "per-submission timeout (0 = none)")
}

// buildSpec assembles the sweep spec. A sweep file seeds the spec and flags
// set on the command line override it.
func buildSpec(cmd *cobra.Command, opts *SweepOptions) (sweep.Spec, error) {
	var spec sweep.Spec
	if opts.SweepFile != "" {
		s, err := sweep.LoadSpecFile(opts.SweepFile)
		if err != nil {
			return spec, err
		}
		spec = s
	}

	changed := cmd.Flags().Changed
	fromFile := opts.SweepFile != ""
	use := func(flag string) bool {
		return !fromFile || changed(flag)
	}

	if use("dataset-names") || len(spec.Datasets) == 0 {
		spec.Datasets = opts.Datasets
	}
	if use("seed") || len(spec.Seeds) == 0 {
		spec.Seeds = opts.Seeds
	}
	if use("shots") || len(spec.Shots) == 0 {
		spec.Shots = opts.Shots
	}
	if use("output-dir") || use("runs-dir") || spec.OutputRoot == "" {
		spec.OutputRoot = path.Join(opts.RunsDir, opts.OutputDir)
	}
	if use("freeze-mode") {
		spec.FreezeMode = opts.FreezeMode
	}
	if use("use-lora") {
		spec.UseLoRA = opts.UseLoRA
	}
	if use("lora-ranks") || len(spec.LoRARanks) == 0 {
		spec.LoRARanks = opts.LoRARanks
	}
	if use("over-lora") {
		spec.OverLoRA = opts.OverLoRA
	}
	if use("exec-type") || spec.Backend == "" {
		spec.Backend = opts.ExecType
	}

	if spec.FreezeMode && (use("freeze-modules") || use("freeze-at") || len(spec.FreezePairs) == 0) {
		pairs, err := sweep.PairFreeze(opts.FreezeModules, opts.FreezeAt)
		if err != nil {
			return spec, err
		}
		spec.FreezePairs = pairs
	}
	return spec, nil
}

// loadBase reads the base run config.
func loadBase(opts *SweepOptions) (*runconfig.Config, error) {
	base, err := runconfig.Load(opts.ConfigPath)
	if err != nil {
		return nil, sweep.NewConfigurationError("load base config", err)
	}
	return base, nil
}

// newBackend builds the backend named by spec. Child output goes to stdout
// in text mode and to stderr when stdout carries JSON.
func newBackend(cmd *cobra.Command, opts *SweepOptions, spec sweep.Spec) (backend.Backend, error) {
	kind, err := backend.ParseKind(spec.Backend)
	if err != nil {
		return nil, err
	}
	stdout := cmd.OutOrStdout()
	if opts.Format == "json" {
		stdout = cmd.ErrOrStderr()
	}
	b, err := backend.New(kind, backend.Options{
		Python:        opts.Python,
		Trainer:       opts.Trainer,
		ScriptPath:    opts.ScriptPath,
		TemplatePath:  opts.ScriptTemplate,
		SubmitCommand: opts.SubmitCommand,
		Timeout:       opts.Timeout,
		Stdout:        stdout,
		Stderr:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// configureLogging installs the process-wide slog handler.
func configureLogging(verbose bool, w io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
