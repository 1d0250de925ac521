package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/estesp/pplot/monitor"
	"github.com/estesp/pplot/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun() *monitor.RunResult {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root := stats.Identity{PID: 100, CreateTime: start.Add(-5 * time.Millisecond)}
	child := stats.Identity{PID: 101, CreateTime: start.Add(300 * time.Millisecond)}
	code := 0
	at := func(tick int) time.Time { return start.Add(time.Duration(tick) * 500 * time.Millisecond) }

	return &monitor.RunResult{
		RunID:     "3f1c2a4e-0000-4000-8000-000000000001",
		Command:   "sh -c 'sleep 1 & wait'",
		Root:      root,
		Interval:  500 * time.Millisecond,
		StartedAt: start,
		EndedAt:   at(2),
		ExitCode:  &code,
		Samples: []monitor.Sample{
			{Tick: 0, WallTime: at(0), Identity: root, Present: true,
				Metrics: stats.ProcMetrics{RSS: 4096, VMS: 8192, Threads: 1, Files: 3}},
			{Tick: 1, WallTime: at(1), Identity: root, Present: true,
				Metrics: stats.ProcMetrics{RSS: 4096, VMS: 8192, CPUPercent: 12.5, UserTime: 0.25, SysTime: 0.125, Threads: 1, Files: 3}},
			{Tick: 1, WallTime: at(1), Identity: child, Present: true,
				Metrics: stats.ProcMetrics{RSS: 1024, VMS: 2048, Threads: 2, Files: 4}},
			{Tick: 2, WallTime: at(2), Identity: root},
		},
	}
}

func assertSameSamples(t *testing.T, want, got *monitor.RunResult) {
	t.Helper()
	assert.True(t, want.Root.Equal(got.Root), "root %s != %s", want.Root, got.Root)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Samples, len(want.Samples))
	for i := range want.Samples {
		w, g := want.Samples[i], got.Samples[i]
		assert.Equal(t, w.Tick, g.Tick)
		assert.True(t, w.WallTime.Equal(g.WallTime))
		assert.True(t, w.Identity.Equal(g.Identity))
		assert.Equal(t, w.Present, g.Present)
		assert.Equal(t, w.Metrics, g.Metrics)
	}
}

func TestCSV(t *testing.T) {
	run := testRun()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, run))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "tick,wall_time,type,pid,create_time,present,elapsed_secs,cpu_time_user_secs,cpu_time_sys_secs,cpu_percent,threads_num,memory_rss_bytes,memory_vms_bytes,files_num", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "1,2024-03-01T12:00:00.5Z,child,101,"), lines[3])

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assertSameSamples(t, run, got)
	assert.True(t, got.EndedAt.Equal(run.EndedAt))
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("tick,pid\n0,1\n"))
	assert.Error(t, err, "missing columns")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testRun()))
	broken := strings.Replace(buf.String(), ",main,100,", ",main,abc,", 1)
	_, err = ReadCSV(strings.NewReader(broken))
	assert.Error(t, err, "bad pid")

	run := testRun()
	run.Samples[0], run.Samples[3] = run.Samples[3], run.Samples[0]
	buf.Reset()
	require.NoError(t, WriteCSV(&buf, run))
	_, err = ReadCSV(&buf)
	assert.Error(t, err, "ticks out of order")
}

func TestParquet(t *testing.T) {
	run := testRun()
	path := filepath.Join(t.TempDir(), "run.parquet")
	require.NoError(t, WriteParquetFile(path, run))

	got, err := ReadParquetFile(path)
	require.NoError(t, err)
	assertSameSamples(t, run, got)
}

func TestMetadata(t *testing.T) {
	run := testRun()
	run.TimedOut = true
	run.Terminated = []stats.Identity{run.Root}
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, WriteMetadataFile(path, run))

	meta, err := ReadMetadataFile(path)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, meta.RunID)
	assert.Equal(t, run.Command, meta.Command)
	assert.Equal(t, run.Interval, meta.Interval)
	assert.Equal(t, []int32{100}, meta.Terminated)
	assert.Equal(t, 3, meta.Ticks)
	assert.Equal(t, 4, meta.Samples)
	require.NotNil(t, meta.ExitCode)
	assert.Equal(t, 0, *meta.ExitCode)

	restored := &monitor.RunResult{}
	meta.Apply(restored)
	assert.True(t, restored.Root.Equal(run.Root))
	assert.True(t, restored.TimedOut)
}

func TestReadSamplesFile(t *testing.T) {
	run := testRun()
	paths := NewPaths(t.TempDir(), "20240301120000")
	assert.Equal(t, paths, SiblingPaths(paths.CSV))
	assert.Equal(t, paths, SiblingPaths(paths.Parquet))

	require.NoError(t, WriteCSVFile(paths.CSV, run))
	got, err := ReadSamplesFile(paths.CSV)
	require.NoError(t, err)
	assert.Empty(t, got.Command, "no metadata next to the samples")

	require.NoError(t, WriteParquetFile(paths.Parquet, run))
	require.NoError(t, WriteMetadataFile(paths.Metadata, run))
	got, err = ReadSamplesFile(paths.Parquet)
	require.NoError(t, err)
	assert.Equal(t, run.Command, got.Command)
	assertSameSamples(t, run, got)

	bad := filepath.Join(filepath.Dir(paths.CSV), "samples.txt")
	require.NoError(t, os.WriteFile(bad, nil, 0o644))
	_, err = ReadSamplesFile(bad)
	assert.Error(t, err)
}
