package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sweep/internal/sweep"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"sweep_id": "abc"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("SUBMISSION_FAILED", "error running command: train", map[string]int{"submitted": 1})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SUBMISSION_FAILED", resp.Error.Code)
	assert.Equal(t, "error running command: train", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("CONFIGURATION", "invalid sweep", "hidden"))
	assert.Contains(t, buf.String(), "Error [CONFIGURATION]: invalid sweep")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("CONFIGURATION", "invalid sweep", "shown"))
	assert.Contains(t, buf.String(), "Details: shown")
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("loaded %d keys", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 keys\n", errOut.String())

	errOut.Reset()
	formatter.Verbose = false
	formatter.VerboseLog("quiet")
	assert.Empty(t, errOut.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "bad", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitCodeFor(t *testing.T) {
	p := sweep.Point{Index: 1}

	assert.Equal(t, ExitCommandError, exitCodeFor(sweep.NewConfigurationError("bad", nil)))
	assert.Equal(t, ExitCommandError, exitCodeFor(sweep.NewCollisionError(sweep.Point{}, p)))
	assert.Equal(t, ExitCommandError, exitCodeFor(sweep.NewChainArtifactError(p, "bad state", nil)))
	assert.Equal(t, ExitFailure, exitCodeFor(sweep.NewSubmissionError(p, "train", errors.New("exit status 1"))))
	assert.Equal(t, ExitFailure, exitCodeFor(errors.New("interrupted")))
}

func TestErrorCodeFor(t *testing.T) {
	assert.Equal(t, "CHAIN_ARTIFACT", errorCodeFor(sweep.NewChainArtifactError(sweep.Point{}, "x", nil)))
	assert.Equal(t, "OUTPUT_COLLISION", errorCodeFor(fmt.Errorf("plan: %w", sweep.NewCollisionError(sweep.Point{}, sweep.Point{}))))
	assert.Equal(t, ErrCodeGeneric, errorCodeFor(errors.New("other")))
}
