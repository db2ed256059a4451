package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTextGolden(t *testing.T) {
	cmd := NewPlanCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd,
		"--config", writeBaseConfig(t),
		"--exec-type", "python",
		"--trainer", "train.py",
		"--use-lora",
		"--lora-ranks", "4,8",
		"--shots", "1,10",
	)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plan_text", []byte(out))
}

func TestPlanJSON(t *testing.T) {
	cmd := NewPlanCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd,
		"--config", writeBaseConfig(t),
		"--seed", "1,2",
		"--freeze-mode",
	)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	// 1 dataset x 1 shot x 2 seeds x 5 default freeze pairs
	require.Len(t, resp.Data.Runs, 10)
	assert.Equal(t, "runs/diffusiondet/coco/10/seed_1/full_finetuning", resp.Data.Runs[0].OutputDir)
	assert.Equal(t, "runs/diffusiondet/coco/10/seed_1/backbone-full", resp.Data.Runs[1].OutputDir)
	assert.Equal(t, "runs/diffusiondet/coco/10/seed_2/norm", resp.Data.Runs[9].OutputDir)
	assert.Equal(t, "10nl2", resp.Data.Runs[9].JobName)
	for i, run := range resp.Data.Runs {
		assert.Equal(t, i, run.Index)
		assert.Equal(t, "freeze", run.Branch)
		assert.Len(t, run.Fingerprint, 64)
		assert.Contains(t, run.CommandLine, "python -u run_object_detection.py")
	}
}

func TestPlanCollision(t *testing.T) {
	cmd := NewPlanCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd,
		"--config", writeBaseConfig(t),
		"--dataset-names", "org-a/coco,org-b/coco",
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [OUTPUT_COLLISION]")
}

func TestPlanUnknownShot(t *testing.T) {
	cmd := NewPlanCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd,
		"--config", writeBaseConfig(t),
		"--shots", "7",
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFIGURATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `shot "7"`)
}

func TestPlanMismatchedFreezeLists(t *testing.T) {
	cmd := NewPlanCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd,
		"--config", writeBaseConfig(t),
		"--freeze-mode",
		"--freeze-modules", "backbone,bias",
		"--freeze-at", "0",
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "must pair up")
}

func TestPlanSweepFile(t *testing.T) {
	dir := t.TempDir()
	sweepFile := dir + "/sweep.yaml"
	require.NoError(t, writeFile(sweepFile, `
datasets: [detection-datasets/fashionpedia]
shots: ["1", "5"]
seeds: ["7"]
output_root: sweeps/fp
exec_type: python
`))

	cmd := NewPlanCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd,
		"--config", writeBaseConfig(t),
		"--sweep-file", sweepFile,
		"--shots", "50",
	)
	require.NoError(t, err)

	var resp struct {
		Data PlanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "sweeps/fp/fashionpedia/50/nolora/7", resp.Data.Runs[0].OutputDir)
	assert.Contains(t, resp.Data.Runs[0].CommandLine, "--eval_steps 970")
	assert.NotContains(t, resp.Data.Runs[0].CommandLine, " -u ")
}
