package monitor_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/estesp/pplot/monitor"
	"github.com/estesp/pplot/series"
	"github.com/estesp/pplot/stats"
	"github.com/estesp/pplot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellConfig(t *testing.T, command string, interval time.Duration) monitor.Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if testing.Short() {
		t.Skip("runs real processes")
	}
	cfg := monitor.DefaultConfig()
	cfg.Command = command
	cfg.Interval = interval
	cfg.Output = utils.OutputConfig{Mode: utils.Hide}
	return cfg
}

// lastPresent returns the index of the last row with a non-zero value
func lastPresent(values []float64) int {
	last := -1
	for i, v := range values {
		if v != 0 {
			last = i
		}
	}
	return last
}

func TestRunTimeoutTerminatesTree(t *testing.T) {
	cfg := shellConfig(t, "sh -c 'sleep 5 & sleep 5 & wait'", 100*time.Millisecond)
	cfg.Timeout = time.Second

	start := time.Now()
	run, err := monitor.NewOrchestrator().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)

	assert.True(t, run.TimedOut)
	assert.Nil(t, run.ExitCode)
	assert.GreaterOrEqual(t, run.Ticks(), 5)
	require.Len(t, run.Terminated, 3, "root and both children are signalled")
	assert.True(t, run.IsMain(run.Terminated[0]))

	ctx := context.Background()
	for _, id := range run.Terminated[1:] {
		assert.False(t, run.IsMain(id))
		assert.Eventually(t, func() bool {
			proc, err := utils.NewProcFromPID(ctx, int(id.PID))
			if err != nil {
				return true
			}
			created, err := proc.CreateTime(ctx)
			return err != nil || !created.Equal(id.CreateTime) || !proc.Alive(ctx)
		}, 3*time.Second, 50*time.Millisecond, "child %s outlived the timeout", id)
	}
}

func TestRunStackedChildrenZeroAfterExit(t *testing.T) {
	cfg := shellConfig(t, "sh -c 'sleep 0.3 & sleep 0.8 & wait'", 50*time.Millisecond)
	run, err := monitor.NewOrchestrator().Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, run.ExitCode)
	assert.Equal(t, 0, *run.ExitCode)

	table := series.Aggregate(run, true)
	require.Len(t, table.Series, 3, "root and two children")
	assert.True(t, table.Series[0].Main)

	var exits []int
	for _, s := range table.Series {
		values := table.Values(s.Key, stats.MemoryRSS)
		require.Len(t, values, len(table.Rows))
		last := lastPresent(values)
		require.GreaterOrEqual(t, last, 0, "%s was never read", s.Label)
		assert.Less(t, last, len(values)-1, "%s has zero rows after it exits", s.Label)
		for _, v := range values[last+1:] {
			assert.Zero(t, v)
		}
		if !s.Main {
			exits = append(exits, last)
		}
	}
	require.Len(t, exits, 2)
	assert.NotEqual(t, exits[0], exits[1], "children exit at different ticks")
}
