package monitor

import (
	"time"

	"github.com/estesp/pplot/stats"
)

// Sample is one metric reading of one process at one tick. An absent sample
// (Present false) carries zero metrics and keeps the tick on the time axis.
type Sample struct {
	Tick     int
	WallTime time.Time
	Identity stats.Identity
	Metrics  stats.ProcMetrics
	Present  bool
}

// RunResult is the finalized record of a single monitored command run. It is
// not modified after Orchestrator.Run returns it.
type RunResult struct {
	RunID     string
	Command   string
	Root      stats.Identity
	Interval  time.Duration
	StartedAt time.Time
	EndedAt   time.Time

	// ExitCode is nil when the command did not exit on its own
	ExitCode    *int
	TimedOut    bool
	Interrupted bool

	// Terminated lists the processes a termination signal was sent to
	Terminated        []stats.Identity
	TerminationErrors int

	Samples []Sample
}

// IsMain reports whether id is the launched root process
func (r *RunResult) IsMain(id stats.Identity) bool {
	return id.Equal(r.Root)
}

// Ticks returns the number of ticks recorded
func (r *RunResult) Ticks() int {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[len(r.Samples)-1].Tick + 1
}

// Elapsed returns the wall-clock duration of the run
func (r *RunResult) Elapsed() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
