package sweep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datasets: [detection-datasets/coco, detection-datasets/dior]
shots: ["1", "10"]
seeds: ["1337"]
output_root: runs/diffusiondet
use_lora: true
lora_ranks: ["4", "8"]
over_lora: true
exec_type: python
`), 0644))

	s, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"detection-datasets/coco", "detection-datasets/dior"}, s.Datasets)
	assert.Equal(t, []string{"1", "10"}, s.Shots)
	assert.Equal(t, "runs/diffusiondet", s.OutputRoot)
	assert.True(t, s.OverLoRA)
	assert.Equal(t, "python", s.Backend)
	assert.Equal(t, LoraSweep{Ranks: []string{"4", "8"}, OverLoRA: true}, s.Mode())
	assert.NoError(t, s.Validate())
}

func TestLoadSpecFileFreezePairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
freeze_mode: true
freeze_pairs:
  - {modules: backbone, at: "0"}
  - {modules: "", at: ""}
`), 0644))

	s, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, []FreezePair{{"backbone", "0"}, {"", ""}}, s.FreezePairs)
}

func TestLoadSpecFileErrors(t *testing.T) {
	_, err := LoadSpecFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("datasets: {not: [a list"), 0644))
	_, err = LoadSpecFile(path)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "decode sweep file")
}
