package export

import (
	"time"

	"github.com/estesp/pplot/monitor"
	"github.com/estesp/pplot/stats"
	"github.com/pkg/errors"
)

// ColumnDescription documents one raw sample column
type ColumnDescription struct {
	Name        string
	Description string
}

// SampleColumns describes the columns of the raw sample files, in order
var SampleColumns = []ColumnDescription{
	{"tick", "Index of the sampling tick, starting at 0"},
	{"wall_time", "Wall-clock time of the tick"},
	{"type", "main or child"},
	{"pid", "Process ID"},
	{"create_time", "Creation time of the process"},
	{"present", "Whether the process could be read at this tick"},
	{"elapsed_secs", "Time since the run started"},
	{string(stats.CPUTimeUser), "Time spent executing in user mode"},
	{string(stats.CPUTimeSys), "Time spent executing in kernel mode"},
	{string(stats.CPUPercent), "Percentage of one CPU used since the previous tick"},
	{string(stats.ThreadsNum), "Number of threads currently used"},
	{string(stats.MemoryRSS), "Resident Set Size; the non-swapped physical memory used"},
	{string(stats.MemoryVMS), "Virtual Memory Size: the virtual memory used"},
	{string(stats.FilesNum), "Number of file descriptors (POSIX) or handles (Windows) used"},
}

const (
	typeMain  = "main"
	typeChild = "child"
)

// sampleRecord is the flat row form of a Sample shared by every file format
type sampleRecord struct {
	Tick        int64   `parquet:"tick"`
	WallTime    int64   `parquet:"wall_time_ns"`
	Type        string  `parquet:"type"`
	PID         int32   `parquet:"pid"`
	CreateTime  int64   `parquet:"create_time_ms"`
	Present     bool    `parquet:"present"`
	ElapsedSecs float64 `parquet:"elapsed_secs"`
	CPUTimeUser float64 `parquet:"cpu_time_user_secs"`
	CPUTimeSys  float64 `parquet:"cpu_time_sys_secs"`
	CPUPercent  float64 `parquet:"cpu_percent"`
	Threads     int32   `parquet:"threads_num"`
	RSS         int64   `parquet:"memory_rss_bytes"`
	VMS         int64   `parquet:"memory_vms_bytes"`
	Files       int32   `parquet:"files_num"`
}

func toRecords(run *monitor.RunResult) []sampleRecord {
	out := make([]sampleRecord, 0, len(run.Samples))
	for _, s := range run.Samples {
		kind := typeChild
		if run.IsMain(s.Identity) {
			kind = typeMain
		}
		var elapsed float64
		if !run.StartedAt.IsZero() {
			elapsed = s.WallTime.Sub(run.StartedAt).Seconds()
		}
		out = append(out, sampleRecord{
			Tick:        int64(s.Tick),
			WallTime:    s.WallTime.UnixNano(),
			Type:        kind,
			PID:         s.Identity.PID,
			CreateTime:  s.Identity.CreateTime.UnixMilli(),
			Present:     s.Present,
			ElapsedSecs: elapsed,
			CPUTimeUser: s.Metrics.UserTime,
			CPUTimeSys:  s.Metrics.SysTime,
			CPUPercent:  s.Metrics.CPUPercent,
			Threads:     s.Metrics.Threads,
			RSS:         int64(s.Metrics.RSS),
			VMS:         int64(s.Metrics.VMS),
			Files:       s.Metrics.Files,
		})
	}
	return out
}

// fromRecords rebuilds a RunResult from raw rows. The root is the identity of
// the first main row and the start time is derived from its elapsed time.
func fromRecords(records []sampleRecord) (*monitor.RunResult, error) {
	run := &monitor.RunResult{Samples: make([]monitor.Sample, 0, len(records))}

	prevTick := int64(-1)
	for i, rec := range records {
		if rec.Tick < prevTick {
			return nil, errors.Errorf("row %d: tick %d out of order", i+1, rec.Tick)
		}
		prevTick = rec.Tick

		id := stats.Identity{PID: rec.PID, CreateTime: time.UnixMilli(rec.CreateTime)}
		wall := time.Unix(0, rec.WallTime)
		if rec.Type == typeMain && run.Root.IsZero() {
			run.Root = id
			run.StartedAt = wall.Add(-time.Duration(rec.ElapsedSecs * float64(time.Second)))
		}
		run.Samples = append(run.Samples, monitor.Sample{
			Tick:     int(rec.Tick),
			WallTime: wall,
			Identity: id,
			Present:  rec.Present,
			Metrics: stats.ProcMetrics{
				RSS:        uint64(rec.RSS),
				VMS:        uint64(rec.VMS),
				CPUPercent: rec.CPUPercent,
				UserTime:   rec.CPUTimeUser,
				SysTime:    rec.CPUTimeSys,
				Threads:    rec.Threads,
				Files:      rec.Files,
			},
		})
	}
	if len(run.Samples) > 0 {
		run.EndedAt = run.Samples[len(run.Samples)-1].WallTime
	}
	return run, nil
}
