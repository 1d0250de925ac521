package monitor

import (
	"strings"
	"time"

	"github.com/estesp/pplot/utils"
	"github.com/pkg/errors"
)

const (
	defaultInterval  = time.Second
	defaultKillGrace = 2 * time.Second
)

// Config parameterizes a single run
type Config struct {
	Command   string             `yaml:"command"`
	Interval  time.Duration      `yaml:"interval"`
	Timeout   time.Duration      `yaml:"timeout,omitempty"`
	Children  bool               `yaml:"children"`
	KillGrace time.Duration      `yaml:"kill_grace,omitempty"`
	Output    utils.OutputConfig `yaml:"output"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
// Command output goes to log files, so callers must set Output.Basename.
func DefaultConfig() Config {
	return Config{
		Interval:  defaultInterval,
		Children:  true,
		KillGrace: defaultKillGrace,
		Output:    utils.OutputConfig{Mode: utils.File},
	}
}

// Validate checks the configuration for values a run cannot start with
func (c Config) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return errors.Wrap(ErrInvalidConfig, "no command given")
	}
	if c.Interval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "interval must be positive, got %v", c.Interval)
	}
	if c.Timeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "timeout must not be negative, got %v", c.Timeout)
	}
	if c.KillGrace < 0 {
		return errors.Wrapf(ErrInvalidConfig, "kill grace must not be negative, got %v", c.KillGrace)
	}
	if c.Output.Mode == utils.File && c.Output.Basename == "" {
		return errors.Wrap(ErrInvalidConfig, "file output mode needs a basename")
	}
	return nil
}
