package stats

import (
	"context"
	"fmt"
	"time"
)

// Metric names a single resource counter read for a process
type Metric string

// Metric constants; the names double as raw sample column names
const (
	MemoryRSS   Metric = "memory_rss_bytes"
	MemoryVMS   Metric = "memory_vms_bytes"
	CPUPercent  Metric = "cpu_percent"
	CPUTimeUser Metric = "cpu_time_user_secs"
	CPUTimeSys  Metric = "cpu_time_sys_secs"
	ThreadsNum  Metric = "threads_num"
	FilesNum    Metric = "files_num"
)

// AllMetrics is the fixed metric set, in column order
var AllMetrics = []Metric{
	CPUTimeUser,
	CPUTimeSys,
	CPUPercent,
	ThreadsNum,
	MemoryRSS,
	MemoryVMS,
	FilesNum,
}

// Identity uniquely identifies a process instance; the creation time
// disambiguates pid reuse during a run.
type Identity struct {
	PID        int32
	CreateTime time.Time
}

// Key returns a stable string form of the identity usable as a series key
func (id Identity) Key() string {
	return fmt.Sprintf("%d@%d", id.PID, id.CreateTime.UnixMilli())
}

func (id Identity) String() string {
	return fmt.Sprintf("pid %d (created %s)", id.PID, id.CreateTime.Format(time.RFC3339Nano))
}

// Equal reports whether both identities name the same process instance
func (id Identity) Equal(o Identity) bool {
	return id.PID == o.PID && id.CreateTime.Equal(o.CreateTime)
}

// IsZero reports whether the identity was never set
func (id Identity) IsZero() bool {
	return id.PID == 0 && id.CreateTime.IsZero()
}

// ProcMetrics represents one reading of the fixed metric set for a process.
// The zero value is what an absent process reports.
type ProcMetrics struct {
	RSS        uint64
	VMS        uint64
	CPUPercent float64
	UserTime   float64
	SysTime    float64
	Threads    int32
	Files      int32
}

// Value returns the named metric as a float64
func (m ProcMetrics) Value(metric Metric) float64 {
	switch metric {
	case MemoryRSS:
		return float64(m.RSS)
	case MemoryVMS:
		return float64(m.VMS)
	case CPUPercent:
		return m.CPUPercent
	case CPUTimeUser:
		return m.UserTime
	case CPUTimeSys:
		return m.SysTime
	case ThreadsNum:
		return float64(m.Threads)
	case FilesNum:
		return float64(m.Files)
	}
	return 0
}

// Add returns the metric-wise sum of m and o
func (m ProcMetrics) Add(o ProcMetrics) ProcMetrics {
	return ProcMetrics{
		RSS:        m.RSS + o.RSS,
		VMS:        m.VMS + o.VMS,
		CPUPercent: m.CPUPercent + o.CPUPercent,
		UserTime:   m.UserTime + o.UserTime,
		SysTime:    m.SysTime + o.SysTime,
		Threads:    m.Threads + o.Threads,
		Files:      m.Files + o.Files,
	}
}

// Tracker enumerates the live process tree below a root process
type Tracker interface {
	// Snapshot returns the root plus its live descendants (or only the root when
	// children is false). An exited root yields an empty result. Order is not defined.
	Snapshot(ctx context.Context, root Identity, children bool) []Identity
}

// Reader reads the fixed metric set for one process identity
type Reader interface {
	// Read returns the current metrics and true, or zero metrics and false when the
	// process is gone or cannot be read
	Read(ctx context.Context, id Identity) (ProcMetrics, bool)
}
