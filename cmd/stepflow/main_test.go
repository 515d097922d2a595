package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stepflow/pkg/stepflow"
)

const branchProgram = `let who = "ops"
workflow "Deploy" {
  step 1: fetch("u")
  step 2: if (step 1.status == 200) {
    step 3: print("ok " + who)
  } else {
    step 4: print("bad")
  }
}`

func writeProgram(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.flow")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// execute runs the CLI with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	a := newApp()
	a.settings = filepath.Join(t.TempDir(), "settings.json")
	a.getenv = env(nil)

	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// --- run ---

func TestRunText(t *testing.T) {
	out, _, err := execute(t, "run", writeProgram(t, branchProgram))
	require.NoError(t, err)

	assert.Contains(t, out, "Variable 'who' = 'ops'\n")
	assert.Contains(t, out, "Executing workflow: Deploy\n")
	assert.Contains(t, out, "      Print: ok ops\n")
	assert.NotContains(t, out, "bad")
	assert.Contains(t, out, `step 3: status=200 success=true data="ok ops"`)
}

func TestRunJSON(t *testing.T) {
	out, _, err := execute(t, "run", "--format", "json", writeProgram(t, branchProgram))
	require.NoError(t, err)

	var rep stepflow.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, []uint32{1, 3}, rep.StepIDs())
	assert.Equal(t, "ok ops", rep.Results[3].Data)
}

func TestRunFollow(t *testing.T) {
	out, _, err := execute(t, "run", "--follow", writeProgram(t, branchProgram))
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Run started", lines[0])
	assert.Contains(t, out, "Run completed\n")
	assert.Equal(t, 1, strings.Count(out, "Print: ok ops"), "trace is streamed, not printed twice")
}

func TestRunFollowJSON(t *testing.T) {
	out, _, err := execute(t, "run", "--follow", "--format", "json", writeProgram(t, `workflow "W" { step 1: print("x") }`))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &last))
	assert.Equal(t, "run_completed", last["kind"])
}

func TestRunRuntimeErrorPrintsPartialTrace(t *testing.T) {
	out, _, err := execute(t, "run", writeProgram(t, `workflow "W" {
  step 1: print("a")
  step 2: print(step 9.data)
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 9")
	assert.Contains(t, out, "    Print: a\n")
	assert.Contains(t, out, "step 1: status=200")
}

func TestRunErrors(t *testing.T) {
	_, _, err := execute(t, "run", writeProgram(t, `workflow "W" { step 1: print("x }`))
	require.Error(t, err)

	_, _, err = execute(t, "run", "--format", "yaml", writeProgram(t, branchProgram))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	_, _, err = execute(t, "run", filepath.Join(t.TempDir(), "nope.flow"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read program")

	_, _, err = execute(t, "run")
	require.Error(t, err)
}

// --- check ---

func TestCheck(t *testing.T) {
	path := writeProgram(t, branchProgram)
	out, _, err := execute(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+": ok (0 warning(s))")
}

func TestCheckStrict(t *testing.T) {
	path := writeProgram(t, `workflow "W" { step 1: bogus() }`)

	out, _, err := execute(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning line 1")
	assert.Contains(t, out, "ok (1 warning(s))")

	out, _, err = execute(t, "check", "--strict", path)
	require.Error(t, err)
	assert.Contains(t, out, "error line 1")
}

func TestCheckSyntaxError(t *testing.T) {
	out, _, err := execute(t, "check", writeProgram(t, "let a = @"))
	require.Error(t, err)
	assert.Contains(t, out, "error line 1")
}

// --- tokens / describe / commands / version ---

func TestTokens(t *testing.T) {
	out, _, err := execute(t, "tokens", writeProgram(t, `let a = "x"`))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "1: EOF", lines[4])
}

func TestDescribe(t *testing.T) {
	path := writeProgram(t, branchProgram)

	out, _, err := execute(t, "describe", path)
	require.NoError(t, err)
	assert.Equal(t, "Step 1: Fetch data from URL\nStep 2: Conditional logic\n  Step 3: Execute print\n  Step 4: Execute print\n", out)

	out, _, err = execute(t, "describe", "--mermaid", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))

	out, _, err = execute(t, "describe", "--ascii", path)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Deploy ===")

	_, _, err = execute(t, "describe", "--ascii", "--mermaid", path)
	require.Error(t, err)
}

func TestDescribePNG(t *testing.T) {
	path := writeProgram(t, branchProgram)
	pngPath := filepath.Join(t.TempDir(), "flow.png")

	out, _, err := execute(t, "describe", "--png", pngPath, "--status", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Diagram written to "+pngPath)

	data, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestCommandsList(t *testing.T) {
	out, _, err := execute(t, "commands")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "NAME"))
	assert.Contains(t, out, "send_email")
	assert.Contains(t, out, "validate_schema")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

// --- config wiring ---

func TestLogLevelFlag(t *testing.T) {
	_, stderr, err := execute(t, "--log-level", "debug", "run", writeProgram(t, `workflow "W" { step 1: print("x") }`))
	require.NoError(t, err)
	assert.Contains(t, stderr, "command executed")
	assert.Contains(t, stderr, "workflow=W")
	assert.Contains(t, stderr, "step_id=1")
}

func TestInvalidSettingsFail(t *testing.T) {
	a := newApp()
	a.settings = writeSettings(t, `{"trace_format": "xml"}`)
	a.getenv = env(nil)

	cmd := newRootCmd(a)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"version"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestWatchRejectsBadSchedule(t *testing.T) {
	_, _, err := execute(t, "watch", "--schedule", "not a spec", writeProgram(t, branchProgram))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron")
}

func TestWatchRunsUntilCancelled(t *testing.T) {
	a := newApp()
	a.settings = filepath.Join(t.TempDir(), "settings.json")
	a.getenv = env(nil)

	cmd := newRootCmd(a)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"watch", "--schedule", "@every 1h", writeProgram(t, branchProgram)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))

	out := stdout.String()
	assert.Contains(t, out, "program.flow run ")
	assert.Contains(t, out, "completed in")
	assert.Contains(t, out, "watching program.flow (@every 1h)")
}
