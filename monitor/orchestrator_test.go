package monitor

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/estesp/pplot/stats"
	"github.com/estesp/pplot/utils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if testing.Short() {
		t.Skip("runs real processes")
	}
}

func runConfig(command string) Config {
	cfg := DefaultConfig()
	cfg.Command = command
	cfg.Interval = 100 * time.Millisecond
	cfg.Output = utils.OutputConfig{Mode: utils.Hide}
	return cfg
}

func TestRunQuickExit(t *testing.T) {
	skipWithoutShell(t)

	run, err := NewOrchestrator().Run(context.Background(), runConfig("sh -c 'sleep 0.05; exit 4'"))
	require.NoError(t, err)

	assert.False(t, run.TimedOut)
	require.NotNil(t, run.ExitCode)
	assert.Equal(t, 4, *run.ExitCode)
	assert.GreaterOrEqual(t, run.Ticks(), 1)
	assert.NotEmpty(t, run.RunID)
	assert.Empty(t, run.Terminated)
	assertContiguous(t, run.Samples)
	assert.False(t, run.EndedAt.Before(run.StartedAt))
}

func TestRunWithoutChildren(t *testing.T) {
	skipWithoutShell(t)

	cfg := runConfig("sh -c 'sleep 0.3 & sleep 0.3 & wait'")
	cfg.Interval = 50 * time.Millisecond
	cfg.Children = false
	run, err := NewOrchestrator().Run(context.Background(), cfg)
	require.NoError(t, err)

	for _, s := range run.Samples {
		assert.True(t, run.IsMain(s.Identity), "only the root is sampled")
	}
}

func TestRunLaunchFailure(t *testing.T) {
	reader := &fakeReader{}
	tree := &fakeTree{}
	o := NewOrchestratorWith(tree, reader)

	run, err := o.Run(context.Background(), runConfig("pplot-no-such-binary-xyz --flag"))
	require.Error(t, err)
	assert.Nil(t, run)
	assert.True(t, IsLaunchFailure(err))

	var le *LaunchError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "pplot-no-such-binary-xyz --flag", le.Command)
	assert.Zero(t, tree.calls, "no sampling before a launch failure")
	assert.Equal(t, Stopped, o.State())
}

func TestRunInterrupted(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)
	run, err := NewOrchestrator().Run(ctx, runConfig("sleep 5"))
	require.NoError(t, err)

	assert.True(t, run.Interrupted)
	assert.False(t, run.TimedOut)
	assert.Nil(t, run.ExitCode)
	assert.NotEmpty(t, run.Samples)
}

func TestRunKillsAfterGrace(t *testing.T) {
	skipWithoutShell(t)

	cfg := runConfig(`sh -c 'trap "" TERM; sleep 5'`)
	cfg.Timeout = 300 * time.Millisecond
	cfg.KillGrace = 200 * time.Millisecond
	start := time.Now()
	run, err := NewOrchestrator().Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 4*time.Second)
	assert.True(t, run.TimedOut)
	assert.Nil(t, run.ExitCode)
}

func TestOrchestratorSingleUse(t *testing.T) {
	o := NewOrchestratorWith(&fakeTree{}, &fakeReader{})
	_, err := o.Run(context.Background(), runConfig("pplot-no-such-binary-xyz"))
	require.Error(t, err)

	_, err = o.Run(context.Background(), runConfig("pplot-no-such-binary-xyz"))
	assert.True(t, errors.Is(err, ErrAlreadyStarted))
}

func TestConfigValidate(t *testing.T) {
	valid := runConfig("sleep 1")
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"empty command":     func(c *Config) { c.Command = "  " },
		"zero interval":     func(c *Config) { c.Interval = 0 },
		"negative timeout":  func(c *Config) { c.Timeout = -time.Second },
		"negative grace":    func(c *Config) { c.KillGrace = -time.Second },
		"file without base": func(c *Config) { c.Output = utils.OutputConfig{Mode: utils.File} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, utils.File, cfg.Output.Mode, "command output goes to log files")
	assert.True(t, cfg.Children)
	assert.Equal(t, time.Second, cfg.Interval)

	cfg.Command = "sleep 1"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig), "file output needs a basename")
	cfg.Output.Basename = "run"
	assert.NoError(t, cfg.Validate())
}

func TestRunUnidentifiableRoot(t *testing.T) {
	skipWithoutShell(t)

	tree := &fakeTree{}
	o := NewOrchestratorWith(tree, &fakeReader{})
	o.identify = func(ctx context.Context, pid int) (stats.Identity, error) {
		return stats.Identity{}, errors.Errorf("no create time for pid %d", pid)
	}

	start := time.Now()
	run, err := o.Run(context.Background(), runConfig("sleep 5"))
	require.Error(t, err)
	assert.Nil(t, run)
	assert.True(t, IsLaunchFailure(err))
	assert.Less(t, time.Since(start), 4*time.Second, "the launched command is killed")
	assert.Zero(t, tree.calls, "nothing is sampled")
}
