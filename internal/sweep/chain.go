package sweep

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/sweep/internal/runconfig"
)

// TrainerStateFile is where a completed run records its training state,
// relative to its output dir.
const TrainerStateFile = "trainer_state.json"

// TrainerState is the part of a run's trainer state the sweep reads.
type TrainerState struct {
	BestModelCheckpoint *string `json:"best_model_checkpoint"`
}

// ChainResolver chains over-LoRA points onto the best checkpoint of their
// completed nolora run.
type ChainResolver struct {
	// OutputRoot is the sweep's output root, used to build overlora dirs.
	OutputRoot string

	// StateFile overrides TrainerStateFile when set.
	StateFile string
}

// NewChainResolver returns a resolver for a sweep rooted at outputRoot.
func NewChainResolver(outputRoot string) ChainResolver {
	return ChainResolver{OutputRoot: outputRoot}
}

// Resolve returns p chained onto its nolora run's best checkpoint when one
// has been recorded, and p unchanged otherwise. A trainer state file that
// exists but cannot be used is an error.
func (r ChainResolver) Resolve(p Point) (Point, error) {
	if p.ChainFrom == "" {
		return p, nil
	}

	name := r.StateFile
	if name == "" {
		name = TrainerStateFile
	}
	statePath := filepath.Join(filepath.FromSlash(p.ChainFrom), name)

	data, err := os.ReadFile(statePath)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, NewChainArtifactError(p, "read "+statePath, err)
	}

	var state TrainerState
	if err := json.Unmarshal(data, &state); err != nil {
		return p, NewChainArtifactError(p, "parse "+statePath, err)
	}
	if state.BestModelCheckpoint == nil || *state.BestModelCheckpoint == "" {
		return p, NewChainArtifactError(p, statePath+" has no best_model_checkpoint", nil)
	}

	ckpt := *state.BestModelCheckpoint
	p.Branch = BranchOverLoRA
	p.Checkpoint = ckpt
	p.Config = p.Config.With(
		runconfig.Entry{Key: KeyModelNameOrPath, Value: ckpt},
		runconfig.Entry{Key: KeyOutputDir, Value: BranchDir(r.OutputRoot, p.Dataset, p.Shot, BranchOverLoRA, p.Seed, p.Rank)},
	)
	return p, nil
}
