package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOpts(format))
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestValidate_Valid(t *testing.T) {
	buf, err := runValidateCmd(t, "text", "testdata/diamond.yaml")
	require.NoError(t, err)
	assert.Equal(t, "✓ Query set diamond is valid\n", buf.String())
}

func TestValidate_ValidJSON(t *testing.T) {
	buf, err := runValidateCmd(t, "json", "testdata/adults.cue")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
}

// TestValidate_ReportsEveryCycle tests that unreachable cycles are reported too.
func TestValidate_ReportsEveryCycle(t *testing.T) {
	buf, err := runValidateCmd(t, "json", "testdata/cycles.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, []string{"a", "b", "a"}, resp.Data.Errors[0].Path)
	assert.Equal(t, []string{"x", "x"}, resp.Data.Errors[1].Path)
}

func TestValidate_UnknownReference(t *testing.T) {
	buf, err := runValidateCmd(t, "text", "testdata/unknown.yaml")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "UNKNOWN_REFERENCE")
	assert.Contains(t, buf.String(), "(nope)")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := runValidateCmd(t, "text", "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
