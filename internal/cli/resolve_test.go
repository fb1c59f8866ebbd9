package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runResolveCmd(t *testing.T, opts *RootOptions, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewResolveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestResolve_CTE(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("text"), "testdata/diamond.yaml")
	require.NoError(t, err)
	assertGolden(t, "resolve_cte", buf.Bytes())
}

func TestResolve_TempFlag(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("text"), "--mode", "temp", "testdata/diamond.yaml")
	require.NoError(t, err)
	assertGolden(t, "resolve_temp", buf.Bytes())
}

func TestResolve_JSON(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("json"), "testdata/adults.cue")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ResolveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "adults", resp.Data.Name)
	assert.Equal(t, "cte", resp.Data.Mode)
	assert.Equal(t, "WITH \"adults_0\" AS (select * from (select name, age from users) _people where age >= :min)\n"+
		"select name from \"adults_0\" order by name", resp.Data.SQL)
	assert.Equal(t, []string{"min"}, resp.Data.Params)
}

func TestResolve_QuoteCharFlag(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("text"), "--quote-char", "`", "testdata/diamond.yaml")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "WITH `d_0` AS (select 4 as v)")
}

func TestResolve_MaxDepthFlag(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("text"), "--max-depth", "2", "testdata/diamond.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [DEPTH_EXCEEDED]")
}

func TestResolve_UnknownReference(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("json"), "testdata/unknown.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "UNKNOWN_REFERENCE", resp.Error.Code)
}

func TestResolve_Cycle(t *testing.T) {
	buf, err := runResolveCmd(t, testOpts("text"), "testdata/cycles.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "CYCLE_DETECTED")
}

func TestResolve_MissingFile(t *testing.T) {
	_, err := runResolveCmd(t, testOpts("text"), "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResolve_ConfigMode(t *testing.T) {
	opts := testOpts("text")
	opts.ConfigFile = "testdata/config.yaml"
	buf, err := runResolveCmd(t, opts, "testdata/diamond.yaml")
	require.NoError(t, err)
	assertGolden(t, "resolve_temp", buf.Bytes())
}

func TestResolve_RequiresArgument(t *testing.T) {
	_, err := runResolveCmd(t, testOpts("text"))
	require.Error(t, err)
}
