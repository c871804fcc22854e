package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the PDFCOMPOSE_* variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvLogLevel, EnvWorker, EnvValidation, EnvYieldEvery} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pdfcompose.yaml", `
log_level: debug
worker: process
validation: relaxed
yield_every: 4
output_dir: /tmp/out
`)

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, WorkerProcess, cfg.Worker)
	assert.Equal(t, "relaxed", cfg.Validation)
	assert.Equal(t, 4, cfg.YieldEvery)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Len(t, cfg.EngineOptions(cfg.Logger()), 3)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pdfcompose.yaml", "worker: process\nlog_level: debug\n")
	t.Setenv(EnvWorker, "OFF")
	t.Setenv(EnvYieldEvery, "32")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, WorkerOff, cfg.Worker)
	assert.Equal(t, 32, cfg.YieldEvery)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	env := writeFile(t, ".env", "PDFCOMPOSE_LOG_LEVEL=error\nPDFCOMPOSE_VALIDATION=relaxed\n")
	t.Setenv(EnvValidation, "strict")

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "strict", cfg.Validation, "the environment wins over .env")
	assert.Equal(t, logrus.ErrorLevel, cfg.Logger().GetLevel())
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "log level", yaml: "log_level: loud\n"},
		{name: "worker", yaml: "worker: thread\n"},
		{name: "validation", yaml: "validation: lenient\n"},
		{name: "yield", yaml: "yield_every: 0\n"},
		{name: "yield env", env: map[string]string{EnvYieldEvery: "often"}},
		{name: "yaml syntax", yaml: "worker: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "pdfcompose.yaml", tt.yaml)
			}
			_, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
