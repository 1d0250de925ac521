package stats

import (
	"context"
	"sync"

	"github.com/estesp/pplot/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var errIdentityGone = errors.New("process identity no longer running")

// openIdentity returns a handle for id, failing when the pid is gone, is a
// zombie, or now belongs to a different process instance
func openIdentity(ctx context.Context, id Identity) (*utils.Proc, error) {
	proc, err := utils.NewProcFromPID(ctx, int(id.PID))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pid %d", id.PID)
	}
	created, err := proc.CreateTime(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get create time for pid %d", id.PID)
	}
	if !created.Equal(id.CreateTime) {
		return nil, errors.Wrapf(errIdentityGone, "pid %d reused", id.PID)
	}
	if !proc.Alive(ctx) {
		return nil, errors.Wrapf(errIdentityGone, "pid %d exited", id.PID)
	}
	return proc, nil
}

// PSUtilReader reads process metrics through gopsutil. It keeps one process
// handle per identity so gopsutil can compute CPU percent against the
// previous reading of the same process instance.
type PSUtilReader struct {
	mu    sync.Mutex
	procs map[string]*utils.Proc
}

// NewPSUtilReader creates a reader with no CPU history
func NewPSUtilReader() *PSUtilReader {
	return &PSUtilReader{
		procs: make(map[string]*utils.Proc),
	}
}

// Read gets the metric set for id. Exited, reused or inaccessible processes
// report zero metrics and false.
func (r *PSUtilReader) Read(ctx context.Context, id Identity) (ProcMetrics, bool) {
	logger := log.WithField("pid", id.PID)

	proc, err := r.handle(ctx, id)
	if err != nil {
		logger.WithError(err).Debug("process unavailable")
		r.forget(id)
		return ProcMetrics{}, false
	}

	rss, vms, err := proc.Mem(ctx)
	if err != nil {
		logger.WithError(err).Debug("couldn't get mem info")
		r.forget(id)
		return ProcMetrics{}, false
	}

	user, sys, err := proc.Times(ctx)
	if err != nil {
		logger.WithError(err).Debug("couldn't get cpu times")
		r.forget(id)
		return ProcMetrics{}, false
	}

	pct, err := proc.CPU(ctx)
	if err != nil {
		logger.WithError(err).Debug("couldn't get cpu percent")
		r.forget(id)
		return ProcMetrics{}, false
	}

	threads, err := proc.Threads(ctx)
	if err != nil {
		logger.WithError(err).Debug("couldn't get thread count")
		r.forget(id)
		return ProcMetrics{}, false
	}

	// descriptor listing is commonly denied for processes we do not own while
	// the other counters stay readable
	files, err := proc.Files(ctx)
	if err != nil {
		logger.WithError(err).Debug("couldn't get open files count")
		files = 0
	}

	return ProcMetrics{
		RSS:        rss,
		VMS:        vms,
		CPUPercent: pct,
		UserTime:   user,
		SysTime:    sys,
		Threads:    threads,
		Files:      files,
	}, true
}

// handle returns the cached process handle for id, opening one on first
// sight. The identity is checked against a fresh handle on every call since
// a cached handle keeps the create time it first read.
func (r *PSUtilReader) handle(ctx context.Context, id Identity) (*utils.Proc, error) {
	fresh, err := openIdentity(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if proc, ok := r.procs[id.Key()]; ok {
		return proc, nil
	}
	r.procs[id.Key()] = fresh
	return fresh, nil
}

// forget drops the handle of an identity that read as absent
func (r *PSUtilReader) forget(id Identity) {
	r.mu.Lock()
	delete(r.procs, id.Key())
	r.mu.Unlock()
}

// tracked returns the number of cached handles
func (r *PSUtilReader) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}
