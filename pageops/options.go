package pageops

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Option is a functional option for configuring an Engine via New.
type Option func(*engineConfig)

type engineConfig struct {
	logger     *logrus.Logger
	relaxed    bool
	yieldEvery int
}

// WithLogger sets the logger used for debug output. The default logger
// discards everything.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithValidation selects the validation mode of the first parse attempt.
// Relaxed validation accepts documents with minor syntax errors.
func WithValidation(relaxed bool) Option {
	return func(c *engineConfig) {
		c.relaxed = relaxed
	}
}

// WithYieldEvery sets how many pages are copied between scheduler yields.
// Values below 1 disable per-page yielding; phases still yield.
func WithYieldEvery(n int) Option {
	return func(c *engineConfig) {
		c.yieldEvery = n
	}
}

func defaultConfig() *engineConfig {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &engineConfig{
		logger:     logger,
		yieldEvery: 16,
	}
}
