package stats

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/estesp/pplot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfIdentity(t *testing.T) Identity {
	t.Helper()
	ctx := context.Background()
	proc, err := utils.NewProcFromPID(ctx, os.Getpid())
	require.NoError(t, err)
	created, err := proc.CreateTime(ctx)
	require.NoError(t, err)
	return Identity{PID: int32(os.Getpid()), CreateTime: created}
}

func startSleep(t *testing.T) *exec.Cmd {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX sleep binary")
	}
	cmd := exec.Command("sleep", "10")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})
	return cmd
}

func TestReaderOwnProcess(t *testing.T) {
	r := NewPSUtilReader()
	m, ok := r.Read(context.Background(), selfIdentity(t))
	require.True(t, ok)
	assert.NotZero(t, m.RSS)
	assert.NotZero(t, m.VMS)
	assert.GreaterOrEqual(t, m.Threads, int32(1))
	assert.Zero(t, m.CPUPercent, "first reading has no cpu history")
}

func TestReaderReusedPID(t *testing.T) {
	id := selfIdentity(t)
	id.CreateTime = id.CreateTime.Add(-time.Hour)

	r := NewPSUtilReader()
	m, ok := r.Read(context.Background(), id)
	assert.False(t, ok)
	assert.Equal(t, ProcMetrics{}, m)
	assert.Zero(t, r.tracked())
}

func TestReaderExitedProcess(t *testing.T) {
	cmd := startSleep(t)
	ctx := context.Background()
	proc, err := utils.NewProcFromPID(ctx, cmd.Process.Pid)
	require.NoError(t, err)
	created, err := proc.CreateTime(ctx)
	require.NoError(t, err)

	id := Identity{PID: int32(cmd.Process.Pid), CreateTime: created}
	r := NewPSUtilReader()
	_, ok := r.Read(ctx, id)
	require.True(t, ok)
	assert.Equal(t, 1, r.tracked())

	require.NoError(t, cmd.Process.Kill())
	cmd.Wait()

	_, ok = r.Read(ctx, id)
	assert.False(t, ok)
	assert.Zero(t, r.tracked(), "handles of exited processes are dropped")
}

func TestReaderCPUPercent(t *testing.T) {
	r := NewPSUtilReader()
	self := selfIdentity(t)
	ctx := context.Background()

	first, ok := r.Read(ctx, self)
	require.True(t, ok)
	assert.Zero(t, first.CPUPercent, "first reading has no cpu history")

	deadline := time.Now().Add(200 * time.Millisecond)
	for n := 0; time.Now().Before(deadline); n++ {
		_ = n * n
	}

	second, ok := r.Read(ctx, self)
	require.True(t, ok)
	assert.Greater(t, second.CPUPercent, 10.0, "busy loop shows up against the previous reading")
	assert.Equal(t, 1, r.tracked())
}

func TestTrackerSnapshot(t *testing.T) {
	cmd := startSleep(t)
	self := selfIdentity(t)
	tracker := NewPSUtilTracker()
	ctx := context.Background()

	t.Run("with children", func(t *testing.T) {
		ids := tracker.Snapshot(ctx, self, true)
		require.NotEmpty(t, ids)
		assert.True(t, ids[0].Equal(self))

		var found bool
		for _, id := range ids {
			if int(id.PID) == cmd.Process.Pid {
				found = true
			}
		}
		assert.True(t, found, "child sleep process is tracked")
	})

	t.Run("root only", func(t *testing.T) {
		ids := tracker.Snapshot(ctx, self, false)
		require.Len(t, ids, 1)
		assert.True(t, ids[0].Equal(self))
	})

	t.Run("root gone", func(t *testing.T) {
		gone := self
		gone.CreateTime = gone.CreateTime.Add(-time.Hour)
		assert.Empty(t, tracker.Snapshot(ctx, gone, true))
	})
}
