package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/stepflow/internal/validation"
)

// Config holds the CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	LogLevel    string `json:"log_level"`
	TraceFormat string `json:"trace_format"`
	Strict      bool   `json:"strict"`
	Schedule    string `json:"schedule"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:    "info",
		TraceFormat: "text",
		Schedule:    "@every 1m",
	}
}

func stepflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stepflow"
	}
	return filepath.Join(home, ".stepflow")
}

func settingsPath() string {
	return filepath.Join(stepflowDir(), "settings.json")
}

// loadConfig layers defaults, the settings file at path and the environment.
// A missing settings file is fine; one that fails its schema is an error.
func loadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	default:
		v, vErr := validation.NewJSONSchemaValidator()
		if vErr != nil {
			return cfg, vErr
		}
		if err := v.ValidateSettings(data); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Layer 3: env vars override.
	if v := getenv("STEPFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("STEPFLOW_TRACE_FORMAT"); v != "" {
		cfg.TraceFormat = v
	}
	if v := getenv("STEPFLOW_STRICT"); v != "" {
		cfg.Strict = v == "true" || v == "1"
	}
	if v := getenv("STEPFLOW_SCHEDULE"); v != "" {
		cfg.Schedule = v
	}

	cfg.TraceFormat = strings.ToLower(cfg.TraceFormat)
	return cfg, nil
}
