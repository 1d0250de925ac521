package utils

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OutputMode selects where a launched command's stdout/stderr are sent
type OutputMode int

const (
	// Hide discards command output
	Hide OutputMode = iota
	// Screen passes output through to our own stdout/stderr
	Screen
	// File writes output to <basename>.out.log and <basename>.err.log
	File
)

// ModeToString converts an OutputMode into its string representation
func ModeToString(mode OutputMode) string {
	switch mode {
	case Hide:
		return "hide"
	case Screen:
		return "screen"
	case File:
		return "file"
	default:
		return "(unknown)"
	}
}

// StringToMode converts a stringified output mode into its OutputMode
func StringToMode(mode string) (OutputMode, error) {
	switch strings.ToLower(mode) {
	case "hide":
		return Hide, nil
	case "screen":
		return Screen, nil
	case "file":
		return File, nil
	default:
		return Hide, errors.Errorf("unknown command output mode: %q", mode)
	}
}

func (m OutputMode) String() string {
	return ModeToString(m)
}

// UnmarshalYAML reads the mode from its string form
func (m *OutputMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := StringToMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalYAML writes the mode as a string
func (m OutputMode) MarshalYAML() (interface{}, error) {
	return ModeToString(m), nil
}

// OutputConfig describes the redirection of a launched command's output
type OutputConfig struct {
	Mode     OutputMode `yaml:"mode"`
	Dir      string     `yaml:"dir,omitempty"`
	Basename string     `yaml:"basename,omitempty"`
}

// LogPaths returns the stdout and stderr log file paths used in File mode
func (o OutputConfig) LogPaths() (string, string) {
	return filepath.Join(o.Dir, o.Basename+".out.log"), filepath.Join(o.Dir, o.Basename+".err.log")
}

// ResolveBinary finds a binary name along the path and evaluates any symlinks
func ResolveBinary(binname string) (string, error) {
	binaryPath, err := exec.LookPath(binname)
	if err != nil {
		return "", err
	}
	resolvedPath, err := filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return "", err
	}
	return resolvedPath, nil
}

// Cmd is a started command together with its output files
type Cmd struct {
	cmd     *exec.Cmd
	closers []io.Closer
	started time.Time
}

// StartCmd launches argv without waiting for it, wiring its output per out
func StartCmd(argv []string, out OutputConfig) (*Cmd, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	binary, err := ResolveBinary(argv[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %q", argv[0])
	}

	execCmd := exec.Command(binary, argv[1:]...)
	execCmd.Args[0] = argv[0]
	execCmd.Stdin = nil
	execCmd.Env = os.Environ()

	c := &Cmd{cmd: execCmd}
	switch out.Mode {
	case Hide:
		execCmd.Stdout = nil
		execCmd.Stderr = nil
	case Screen:
		execCmd.Stdout = os.Stdout
		execCmd.Stderr = os.Stderr
	case File:
		if out.Dir != "" {
			if err := os.MkdirAll(out.Dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create output folder %q", out.Dir)
			}
		}
		outPath, errPath := out.LogPaths()
		stdout, err := os.Create(outPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %q", outPath)
		}
		stderr, err := os.Create(errPath)
		if err != nil {
			stdout.Close()
			return nil, errors.Wrapf(err, "failed to create %q", errPath)
		}
		execCmd.Stdout = stdout
		execCmd.Stderr = stderr
		c.closers = append(c.closers, stdout, stderr)
	default:
		return nil, errors.Errorf("unknown command output mode: %v", out.Mode)
	}

	if err := execCmd.Start(); err != nil {
		c.closeOutputs()
		return nil, errors.Wrapf(err, "exec failed: %s", strings.Join(argv, " "))
	}
	c.started = time.Now()
	return c, nil
}

// PID returns the process id of the started command
func (c *Cmd) PID() int {
	return c.cmd.Process.Pid
}

// Started returns the time the command was started
func (c *Cmd) Started() time.Time {
	return c.started
}

// Wait blocks until the command exits and releases its output files. A
// non-zero exit status is not reported as an error.
func (c *Cmd) Wait() error {
	err := c.cmd.Wait()
	c.closeOutputs()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// ExitCode returns the exit status once the command has exited normally.
// A command ended by a signal has no exit code.
func (c *Cmd) ExitCode() (int, bool) {
	state := c.cmd.ProcessState
	if state == nil || !state.Exited() {
		return 0, false
	}
	return state.ExitCode(), true
}

// Kill forcibly stops the command
func (c *Cmd) Kill() error {
	return c.cmd.Process.Kill()
}

func (c *Cmd) closeOutputs() {
	for _, closer := range c.closers {
		closer.Close()
	}
	c.closers = nil
}
