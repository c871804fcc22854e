// Package config loads pdfcompose settings from a YAML file, a .env file
// and PDFCOMPOSE_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/lvillar/pdfcompose/pageops"
)

// WorkerMode selects where background operations run.
type WorkerMode string

const (
	// WorkerProcess runs operations in a child "pdfcompose worker" process.
	WorkerProcess WorkerMode = "process"
	// WorkerInProcess runs operations on a worker goroutine behind pipes.
	WorkerInProcess WorkerMode = "inprocess"
	// WorkerOff runs every operation in the foreground.
	WorkerOff WorkerMode = "off"
)

// Environment variables read by Load.
const (
	EnvLogLevel   = "PDFCOMPOSE_LOG_LEVEL"
	EnvWorker     = "PDFCOMPOSE_WORKER"
	EnvValidation = "PDFCOMPOSE_VALIDATION"
	EnvYieldEvery = "PDFCOMPOSE_YIELD_EVERY"
)

// Config holds the settings shared by the CLI and the MCP server.
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	Worker     WorkerMode `yaml:"worker"`
	Validation string     `yaml:"validation"` // strict or relaxed
	YieldEvery int        `yaml:"yield_every"`
	OutputDir  string     `yaml:"output_dir"` // where split writes when no directory is given
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:   "warn",
		Worker:     WorkerInProcess,
		Validation: "strict",
		YieldEvery: 16,
		OutputDir:  ".",
	}
}

// Load reads the YAML file at path, if path is not empty, then the given
// .env files (".env" when none are given; missing files are skipped), then
// the environment. Variables already set in the environment win over the
// .env files.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(expandHome(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvWorker); v != "" {
		c.Worker = WorkerMode(strings.ToLower(v))
	}
	if v := os.Getenv(EnvValidation); v != "" {
		c.Validation = strings.ToLower(v)
	}
	if v := os.Getenv(EnvYieldEvery); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvYieldEvery, v, err)
		}
		c.YieldEvery = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.Worker {
	case WorkerProcess, WorkerInProcess, WorkerOff:
	default:
		return fmt.Errorf("invalid worker mode %q (want process, inprocess or off)", c.Worker)
	}
	switch c.Validation {
	case "strict", "relaxed":
	default:
		return fmt.Errorf("invalid validation mode %q (want strict or relaxed)", c.Validation)
	}
	if c.YieldEvery < 1 {
		return fmt.Errorf("yield_every must be positive, got %d", c.YieldEvery)
	}
	return nil
}

// Logger returns a stderr logger at the configured level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// EngineOptions translates the settings into engine options.
func (c *Config) EngineOptions(logger *logrus.Logger) []pageops.Option {
	return []pageops.Option{
		pageops.WithLogger(logger),
		pageops.WithValidation(c.Validation == "relaxed"),
		pageops.WithYieldEvery(c.YieldEvery),
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
