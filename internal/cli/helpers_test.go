package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testBaseConfig = `{
  "model_name_or_path": "fcakyon/diffusiondet",
  "num_train_epochs": 20
}
`

// writeBaseConfig writes a small base run config and returns its path.
func writeBaseConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "base.json")
	require.NoError(t, os.WriteFile(path, []byte(testBaseConfig), 0644))
	return path
}

// execute runs cmd with args and returns stdout and stderr separately.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
