package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/sweep/internal/sweep"
)

// WriteTrainerState writes a trainer state file recording checkpoint as the
// best checkpoint of the run in dir. dir is created if needed.
func WriteTrainerState(t *testing.T, dir, checkpoint string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"best_model_checkpoint": checkpoint,
		"best_metric":           0.5,
		"global_step":           500,
	})
	if err != nil {
		t.Fatalf("marshal trainer state: %v", err)
	}
	return WriteRawTrainerState(t, dir, string(data))
}

// WriteRawTrainerState writes content verbatim as the trainer state file in
// dir and returns its path.
func WriteRawTrainerState(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create run dir: %v", err)
	}
	path := filepath.Join(dir, sweep.TrainerStateFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write trainer state: %v", err)
	}
	return path
}
