package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stepflow/pkg/schema"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"), env(nil))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigSettingsFile(t *testing.T) {
	path := writeSettings(t, `{"log_level": "debug", "trace_format": "json", "strict": true, "schedule": "@hourly"}`)

	cfg, err := loadConfig(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, Config{LogLevel: "debug", TraceFormat: "json", Strict: true, Schedule: "@hourly"}, cfg)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeSettings(t, `{"log_level": "debug", "strict": true}`)

	cfg, err := loadConfig(path, env(map[string]string{
		"STEPFLOW_LOG_LEVEL":    "error",
		"STEPFLOW_TRACE_FORMAT": "JSON",
		"STEPFLOW_STRICT":       "0",
		"STEPFLOW_SCHEDULE":     "*/5 * * * *",
	}))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "json", cfg.TraceFormat)
	assert.False(t, cfg.Strict)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `{"db_path": "/tmp/x"}`},
		{"bad level", `{"log_level": "verbose"}`},
		{"wrong type", `{"strict": "yes"}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeSettings(t, tt.content), env(nil))
			require.Error(t, err)
			assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
		})
	}
}
