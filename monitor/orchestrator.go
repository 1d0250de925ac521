package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/estesp/pplot/stats"
	"github.com/estesp/pplot/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Orchestrator launches one command, samples it while it runs and finalizes
// the run when the command exits, times out or the context is cancelled.
// Each instance runs at most once.
type Orchestrator struct {
	tracker  stats.Tracker
	reader   stats.Reader
	identify func(ctx context.Context, pid int) (stats.Identity, error)

	mu    sync.Mutex
	state State
}

// NewOrchestrator creates an orchestrator reading the OS through gopsutil
func NewOrchestrator() *Orchestrator {
	return NewOrchestratorWith(stats.NewPSUtilTracker(), stats.NewPSUtilReader())
}

// NewOrchestratorWith creates an orchestrator with the given tree tracker and
// metric reader
func NewOrchestratorWith(tracker stats.Tracker, reader stats.Reader) *Orchestrator {
	return &Orchestrator{
		tracker:  tracker,
		reader:   reader,
		identify: processIdentity,
		state:    Idle,
	}
}

// State returns Idle, Running, or Stopped
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the configured command and returns its finalized result.
// Only a command that cannot be launched (LaunchError), an invalid config or
// a reused orchestrator produce an error; timeouts and interrupts are
// reported in the result.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return nil, errors.Wrapf(ErrAlreadyStarted, "orchestrator is %s", o.state)
	}
	o.state = Running
	o.mu.Unlock()
	defer o.setState(Stopped)

	argv, err := utils.SplitCommand(cfg.Command)
	if err != nil {
		return nil, &LaunchError{Command: cfg.Command, Err: err}
	}
	cmd, err := utils.StartCmd(argv, cfg.Output)
	if err != nil {
		return nil, &LaunchError{Command: cfg.Command, Err: err}
	}

	// sampling and termination must outlive a cancelled caller context
	bg := context.WithoutCancel(ctx)

	// without the create time no snapshot would ever match the root
	root, err := o.identify(bg, cmd.PID())
	if err != nil {
		log.WithError(err).WithField("pid", cmd.PID()).Warn("couldn't identify launched process; killing it")
		cmd.Kill()
		cmd.Wait()
		return nil, &LaunchError{Command: cfg.Command, Err: err}
	}

	result := &RunResult{
		RunID:     uuid.New().String(),
		Command:   cfg.Command,
		Root:      root,
		Interval:  cfg.Interval,
		StartedAt: cmd.Started(),
	}
	logger := log.WithFields(log.Fields{"run": result.RunID, "pid": result.Root.PID})
	logger.Infof("Running process as PID: %d", result.Root.PID)

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	sampler := NewSampler(o.tracker, o.reader)
	if err := sampler.Start(bg, result.Root, cfg.Interval, cfg.Children); err != nil {
		// a fresh sampler always starts; don't leave the command behind if not
		cmd.Kill()
		<-waitCh
		return nil, err
	}

	var deadline <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case err := <-waitCh:
		result.Samples = sampler.Stop()
		if err != nil {
			logger.WithError(err).Warn("waiting for command failed")
		}
		if code, ok := cmd.ExitCode(); ok {
			result.ExitCode = &code
		}
	case <-deadline:
		logger.Info("Process reached timeout before terminating")
		result.TimedOut = true
		result.Samples = o.terminate(bg, sampler, result, cmd, waitCh, cfg.KillGrace)
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Info("Run interrupted")
		result.Interrupted = true
		result.Samples = o.terminate(bg, sampler, result, cmd, waitCh, cfg.KillGrace)
	}
	result.EndedAt = time.Now()

	logger.WithFields(log.Fields{
		"ticks":     result.Ticks(),
		"samples":   len(result.Samples),
		"timed_out": result.TimedOut,
	}).Debug("run finalized")
	return result, nil
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// terminate signals the root and every tracked descendant, stops sampling and
// reaps the root, killing it if it outlives grace
func (o *Orchestrator) terminate(ctx context.Context, sampler *Sampler, result *RunResult, cmd *utils.Cmd, waitCh <-chan error, grace time.Duration) []Sample {
	targets := sampler.Tracked()
	if !containsIdentity(targets, result.Root) {
		targets = append([]stats.Identity{result.Root}, targets...)
	}

	for _, id := range targets {
		result.Terminated = append(result.Terminated, id)
		if err := terminateIdentity(ctx, id); err != nil {
			result.TerminationErrors++
			log.WithError(err).WithField("pid", id.PID).Warn("could not terminate process")
		}
	}

	samples := sampler.Stop()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-waitCh:
	case <-timer.C:
		log.WithField("pid", result.Root.PID).Warnf("process still running %v after termination; killing", grace)
		if err := cmd.Kill(); err != nil {
			log.WithError(err).WithField("pid", result.Root.PID).Warn("kill failed")
		}
		<-waitCh
	}
	return samples
}

// terminateIdentity sends a termination signal to id if it is still the same
// process instance. A process that is already gone is not an error.
func terminateIdentity(ctx context.Context, id stats.Identity) error {
	proc, err := utils.NewProcFromPID(ctx, int(id.PID))
	if err != nil {
		if utils.IsNotRunning(err) {
			return nil
		}
		return err
	}
	created, err := proc.CreateTime(ctx)
	if err != nil {
		if utils.IsNotRunning(err) {
			return nil
		}
		return err
	}
	if !created.Equal(id.CreateTime) {
		return nil
	}
	if err := proc.Terminate(ctx); err != nil && !utils.IsNotRunning(err) {
		return errors.Wrapf(err, "failed to terminate pid %d", id.PID)
	}
	return nil
}

// processIdentity reads the identity of a live pid
func processIdentity(ctx context.Context, pid int) (stats.Identity, error) {
	proc, err := utils.NewProcFromPID(ctx, pid)
	if err != nil {
		return stats.Identity{}, errors.Wrapf(err, "failed to open pid %d", pid)
	}
	created, err := proc.CreateTime(ctx)
	if err != nil {
		return stats.Identity{}, errors.Wrapf(err, "failed to get create time for pid %d", pid)
	}
	return stats.Identity{PID: int32(pid), CreateTime: created}, nil
}

func containsIdentity(ids []stats.Identity, id stats.Identity) bool {
	for _, other := range ids {
		if other.Equal(id) {
			return true
		}
	}
	return false
}
