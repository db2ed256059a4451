package sweep

import (
	"path"
	"strings"

	"github.com/roach88/sweep/internal/runconfig"
)

// Config keys the sweep writes.
const (
	KeyDatasetName     = "dataset_name"
	KeySeed            = "seed"
	KeyShots           = "shots"
	KeyOutputDir       = "output_dir"
	KeyEvalSteps       = "eval_steps"
	KeySaveSteps       = "save_steps"
	KeyFreezeModules   = "freeze_modules"
	KeyFreezeAt        = "freeze_at"
	KeyUseLoRA         = "use_lora"
	KeyLoRARank        = "lora_rank"
	KeyModelNameOrPath = "model_name_or_path"
)

// Branch is the mode segment of a run's output path.
type Branch string

const (
	BranchNoLoRA   Branch = "nolora"
	BranchLoRA     Branch = "lora"
	BranchOverLoRA Branch = "overlora"
	BranchFreeze   Branch = "freeze"
)

// Point is one fully resolved run of a sweep.
type Point struct {
	// Index is the point's position in expansion order, starting at 0.
	Index int

	Dataset string
	Shot    string
	Seed    string
	Branch  Branch

	// Rank is set for LoRA points.
	Rank string

	// Freeze is set for freeze points.
	Freeze FreezePair

	// ChainFrom is the nolora output dir an over-LoRA point chains onto.
	ChainFrom string

	// Checkpoint is the resolved checkpoint for a chained point.
	Checkpoint string

	Config *runconfig.Config
}

// OutputDir returns the point's output_dir.
func (p Point) OutputDir() string {
	if p.Config == nil {
		return ""
	}
	return p.Config.String(KeyOutputDir)
}

// Identity returns the scheduler-facing identity of the point.
func (p Point) Identity() Identity {
	return Identity{
		Shot:    p.Shot,
		Seed:    p.Seed,
		JobName: JobName(p.Shot, p.Seed),
	}
}

// Identity is run metadata used for backend bookkeeping only.
type Identity struct {
	Shot    string
	Seed    string
	JobName string
}

// JobName is the batch job name for a (shot, seed) pair.
func JobName(shot, seed string) string {
	return shot + "nl" + seed
}

// DatasetBasename strips trailing slashes and keeps the last path segment.
func DatasetBasename(dataset string) string {
	trimmed := strings.TrimRight(dataset, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// BranchDir is the output dir of a non-freeze point:
// {root}/{dataset}/{shot}/{branch}/{seed}[/{rank}].
func BranchDir(root, dataset, shot string, branch Branch, seed, rank string) string {
	dir := path.Join(root, DatasetBasename(dataset), shot, string(branch), seed)
	if rank != "" {
		dir = path.Join(dir, rank)
	}
	return dir
}

// FreezeDir is the output dir of a freeze point:
// {root}/{dataset}/{shot}/seed_{seed}/{suffix}.
func FreezeDir(root, dataset, shot, seed string, pair FreezePair) string {
	return path.Join(root, DatasetBasename(dataset), shot, "seed_"+seed, FreezeSuffix(pair))
}

// FreezeSuffix names a freeze strategy. No modules means full fine-tuning;
// a freeze-at of "0" means the whole module set.
func FreezeSuffix(pair FreezePair) string {
	var suffix string
	if pair.Modules == "" {
		suffix = "full_finetuning"
	}
	at := pair.At
	if at == "0" {
		at = "full"
	}
	suffix += pair.Modules + "-" + at
	return strings.TrimSuffix(suffix, "-")
}
