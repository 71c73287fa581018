package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidate_StdinSingleFilter(t *testing.T) {
	out, err := execute(t, `{"object":"flow_run","property":"tag","all_":["prod"]}`, "validate")
	require.NoError(t, err)
	assert.Equal(t, "ok stdin: property=tag family=tag\n", out)
}

func TestValidate_JSONList(t *testing.T) {
	path := writeFile(t, "filters.json", `[
		{"object":"flow_run","property":"name","any_":["etl"]},
		{"object":"flow_run","property":"start_date","after_":"2024-01-01T00:00:00Z"},
		{"object":"flow_run","property":"name","any_":["a"],"any_":["b"]}
	]`)

	out, err := execute(t, "", "validate", path)
	require.ErrorIs(t, err, errInvalidFilters)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ok "+path+"[0]: property=name family=string", lines[0])
	assert.Equal(t, "ok "+path+"[1]: property=start_date family=date", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "FAIL "+path+"[2]: duplicate field"), lines[2])
}

func TestValidate_YAML(t *testing.T) {
	path := writeFile(t, "filters.yaml", `
- object: flow_run
  property: end_date
  is_null_: true
- object: flow_run
  property: state
  type:
    any_: [COMPLETED, FAILED]
- object: flow_run
  property: end_date
  before_: 2024-01-01T00:00:00Z
`)

	out, err := execute(t, "", "validate", "--normalize", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok "+path+"[0]: property=end_date family=date")
	assert.Contains(t, out, "ok "+path+"[1]: property=state family=state")
	assert.Contains(t, out, "ok "+path+"[2]: property=end_date family=date")
	assert.Contains(t, out, `"before_":"2024-01-01T00:00:00Z"`)
}

func TestValidate_ReportsEveryFailure(t *testing.T) {
	path := writeFile(t, "bad.yml", `
- object: task_run
  property: name
- object: flow_run
  property: tag
  any_: [prod]
`)

	out, err := execute(t, "", "validate", path)
	require.ErrorIs(t, err, errInvalidFilters)
	assert.Contains(t, err.Error(), "2 failed")
	assert.Contains(t, out, "FAIL "+path+"[0]: wrong object kind")
	assert.Contains(t, out, "FAIL "+path+"[1]: unknown field \"any_\"")
}

func TestValidate_MalformedDocument(t *testing.T) {
	out, err := execute(t, `[{"object":`, "validate", "-")
	require.ErrorIs(t, err, errInvalidFilters)
	assert.Contains(t, out, "FAIL stdin:")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "", "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errInvalidFilters)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "runfilter version dev")
}
