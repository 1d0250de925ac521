package utils

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"
)

// Proc wraps a gopsutil process handle for a single pid
type Proc struct {
	proc *process.Process
}

// NewProcFromPID returns a handle for a live pid
func NewProcFromPID(ctx context.Context, pid int) (*Proc, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, err
	}

	return &Proc{p}, nil
}

// IsNotRunning reports whether err means the process no longer exists
func IsNotRunning(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ESRCH)
}

// PID returns process id
func (p *Proc) PID() int {
	return int(p.proc.Pid)
}

// CreateTime returns the process creation time
func (p *Proc) CreateTime(ctx context.Context) (time.Time, error) {
	ms, err := p.proc.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Alive reports whether the process is running and not a zombie
func (p *Proc) Alive(ctx context.Context) bool {
	running, err := p.proc.IsRunningWithContext(ctx)
	if err != nil || !running {
		return false
	}
	status, err := p.proc.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// Children returns the direct children of the process. A process without
// children yields an empty slice and no error.
func (p *Proc) Children(ctx context.Context) ([]*Proc, error) {
	children, err := p.proc.ChildrenWithContext(ctx)
	if err != nil {
		if errors.Is(err, process.ErrorNoChildren) {
			return nil, nil
		}
		// fall back to a full process table scan when the platform lookup fails
		return p.childrenByScan(ctx)
	}

	out := make([]*Proc, 0, len(children))
	for _, c := range children {
		out = append(out, &Proc{c})
	}
	return out, nil
}

func (p *Proc) childrenByScan(ctx context.Context) ([]*Proc, error) {
	list, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get process list")
	}

	var out []*Proc
	for _, c := range list {
		ppid, err := c.PpidWithContext(ctx)
		if err != nil {
			continue
		}
		if ppid == p.proc.Pid {
			out = append(out, &Proc{c})
		}
	}
	return out, nil
}

// Mem returns resident and virtual memory usage in bytes
func (p *Proc) Mem(ctx context.Context) (rss, vms uint64, err error) {
	stat, err := p.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}

	return stat.RSS, stat.VMS, nil
}

// Times returns cumulative user and system CPU time in seconds
func (p *Proc) Times(ctx context.Context) (user, sys float64, err error) {
	times, err := p.proc.TimesWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return times.User, times.System, nil
}

// CPU returns the percent of one CPU the process used since the previous
// call on this handle; the first call returns 0
func (p *Proc) CPU(ctx context.Context) (float64, error) {
	return p.proc.PercentWithContext(ctx, 0)
}

// Threads returns the number of threads in use
func (p *Proc) Threads(ctx context.Context) (int32, error) {
	return p.proc.NumThreadsWithContext(ctx)
}

// Files returns the number of open file descriptors (handles on Windows)
func (p *Proc) Files(ctx context.Context) (int32, error) {
	return p.proc.NumFDsWithContext(ctx)
}

// Terminate sends SIGTERM (or the platform equivalent)
func (p *Proc) Terminate(ctx context.Context) error {
	return p.proc.TerminateWithContext(ctx)
}

// Kill sends SIGKILL (or the platform equivalent)
func (p *Proc) Kill(ctx context.Context) error {
	return p.proc.KillWithContext(ctx)
}
