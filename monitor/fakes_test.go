package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/estesp/pplot/stats"
)

// fakeTree plays back a scripted sequence of snapshots; once the script is
// exhausted the tree is empty
type fakeTree struct {
	mu        sync.Mutex
	snapshots [][]stats.Identity
	calls     int
}

func (f *fakeTree) Snapshot(ctx context.Context, root stats.Identity, children bool) []stats.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.calls++ }()
	if f.calls >= len(f.snapshots) {
		return nil
	}
	ids := f.snapshots[f.calls]
	if !children && len(ids) > 0 {
		return ids[:1]
	}
	return ids
}

// liveTree reports root alive forever
type liveTree struct{}

func (liveTree) Snapshot(ctx context.Context, root stats.Identity, children bool) []stats.Identity {
	return []stats.Identity{root}
}

// fakeReader returns fixed metrics, or absent for identities in missing
type fakeReader struct {
	metrics stats.ProcMetrics
	missing map[int32]bool
}

func (f *fakeReader) Read(ctx context.Context, id stats.Identity) (stats.ProcMetrics, bool) {
	if f.missing[id.PID] {
		return stats.ProcMetrics{}, false
	}
	return f.metrics, true
}

func testIdentity(pid int32) stats.Identity {
	return stats.Identity{PID: pid, CreateTime: time.UnixMilli(int64(pid) * 1000)}
}
