package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rendis/stepflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runBuiltin(t *testing.T, name string, args ...string) Outcome {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	cmd, err := reg.Get(name)
	require.NoError(t, err)
	return cmd.Execute(context.Background(), args)
}

// --- Echo commands ---

func TestEchoCommands(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		message string
	}{
		{"print", "Print", "Print executed successfully"},
		{"log", "Log", "Log executed successfully"},
		{"notify", "Notify", "Notification sent successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runBuiltin(t, tt.name, "hello", "world", "200")
			assert.Equal(t, schema.StepResult{
				Success: true,
				Data:    "hello world 200",
				Status:  200,
				Message: tt.message,
			}, out.Result)
			assert.Equal(t, tt.label+": hello world 200", out.Trace)
		})
	}
}

func TestEchoCommands_NoArgs(t *testing.T) {
	out := runBuiltin(t, "print")
	assert.Equal(t, "", out.Result.Data)
	assert.True(t, out.Result.Success)
	assert.Equal(t, "Print: ", out.Trace)
}

// --- Simulated side effects ---

func TestFetch(t *testing.T) {
	out := runBuiltin(t, "fetch", "https://x.test/a?b=1&c=2")
	assert.Equal(t, `{"data": "Sample data from https://x.test/a?b=1&c=2"}`, out.Result.Data)
	assert.Equal(t, 200, out.Result.Status)
	assert.Equal(t, "Fetch completed successfully", out.Result.Message)
	assert.Equal(t, "Fetch: https://x.test/a?b=1&c=2", out.Trace)
}

func TestFetch_DefaultURL(t *testing.T) {
	out := runBuiltin(t, "fetch")
	assert.Equal(t, `{"data": "Sample data from https://api.example.com"}`, out.Result.Data)
}

func TestFetch_ExtraArgsIgnored(t *testing.T) {
	out := runBuiltin(t, "fetch", "u", "ignored")
	assert.Equal(t, `{"data": "Sample data from u"}`, out.Result.Data)
}

func TestSendEmail(t *testing.T) {
	out := runBuiltin(t, "send_email", "ada@example.com", "Hi")
	assert.Equal(t, schema.OK("Email sent to ada@example.com", "Email sent successfully"), out.Result)
	assert.Equal(t, "Send Email: ada@example.com - Hi", out.Trace)

	out = runBuiltin(t, "send_email")
	assert.Equal(t, "Email sent to user@example.com", out.Result.Data)
	assert.Equal(t, "Send Email: user@example.com - Notification", out.Trace)
}

// --- Workflow-integration commands ---

func TestJSONCommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		data    string
		message string
		trace   string
	}{
		{
			"input", nil,
			`{"variable": "user_input", "type": "text", "placeholder": "Enter value"}`,
			"Input collected successfully",
			"Input: Collect 'user_input' as text (Enter value)",
		},
		{
			"input", []string{"email", "email"},
			`{"variable": "email", "type": "email", "placeholder": "Enter value"}`,
			"Input collected successfully",
			"Input: Collect 'email' as email (Enter value)",
		},
		{
			"generate", []string{"a poem"},
			`{"content": "Generated content for: a poem", "model": "mistral-small-latest", "temperature": "0.7"}`,
			"Content generated successfully",
			"Generate: Using mistral-small-latest (temp: 0.7) with prompt: 'a poem'",
		},
		{
			"output", []string{"report", "csv", "out.csv"},
			`{"exported": "report", "format": "csv", "file": "out.csv"}`,
			"Output exported successfully",
			"Output: Export report as csv to out.csv",
		},
		{
			"transform", nil,
			`{"transformed": "data", "type": "format"}`,
			"Data transformed successfully",
			"Transform: Apply format to data",
		},
		{
			"validate", []string{"email"},
			`{"validated": "email", "type": "required", "valid": true}`,
			"Validation completed successfully",
			"Validate: Check email for required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runBuiltin(t, tt.name, tt.args...)
			assert.Equal(t, tt.data, out.Result.Data)
			assert.Equal(t, tt.message, out.Result.Message)
			assert.Equal(t, tt.trace, out.Trace)
			assert.True(t, out.Result.Success)
			assert.Equal(t, schema.StatusOK, out.Result.Status)
			assert.True(t, json.Valid([]byte(out.Result.Data)))
		})
	}
}

func TestJSONCommands_EscapeArguments(t *testing.T) {
	out := runBuiltin(t, "input", `say "hi"`, "a\nb")

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(out.Result.Data), &decoded))
	assert.Equal(t, `say "hi"`, decoded["variable"])
	assert.Equal(t, "a\nb", decoded["type"])
}

func TestBuiltinCommands_Labels(t *testing.T) {
	labels := map[string]string{}
	for _, c := range BuiltinCommands() {
		labels[c.Name()] = c.Info().StepLabel()
	}
	assert.Equal(t, "Collect user input", labels["input"])
	assert.Equal(t, "Generate AI content", labels["generate"])
	assert.Equal(t, "Export results", labels["output"])
	assert.Equal(t, "Fetch data from URL", labels["fetch"])
	assert.Equal(t, "Transform data", labels["transform"])
	assert.Equal(t, "Validate input", labels["validate"])
	assert.Equal(t, "Execute send_email", labels["send_email"])
}

func TestRegisterBuiltins_Twice(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	err := RegisterBuiltins(reg)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
}
