package utils

import (
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// SplitCommand splits a shell-style command string into its arguments,
// honoring quotes and escapes. No shell expansion is performed.
func SplitCommand(command string) ([]string, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}

// SecondsToDuration converts fractional seconds (as given on the command line)
// into a time.Duration
func SecondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
