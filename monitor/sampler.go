package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/estesp/pplot/stats"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// emptyTicksToExit is the number of consecutive ticks the root must be found
// gone before the sampler stops on its own
const emptyTicksToExit = 2

// Sampler polls a process tree on a fixed schedule from its own goroutine
// and appends the readings to an internal buffer.
type Sampler struct {
	tracker stats.Tracker
	reader  stats.Reader

	mu      sync.Mutex
	state   State
	reason  StopReason
	samples []Sample
	tracked []stats.Identity

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSampler creates an idle sampler
func NewSampler(tracker stats.Tracker, reader stats.Reader) *Sampler {
	return &Sampler{
		tracker: tracker,
		reader:  reader,
		state:   Idle,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins sampling root every interval without blocking. Tick n is taken
// at start+n*interval, so slow reads do not push later ticks back.
func (s *Sampler) Start(ctx context.Context, root stats.Identity, interval time.Duration, children bool) error {
	if interval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "interval must be positive, got %v", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return errors.Wrapf(ErrAlreadyStarted, "sampler is %s", s.state)
	}
	s.state = Running

	log.WithFields(log.Fields{
		"pid":      root.PID,
		"interval": interval,
		"children": children,
	}).Debug("sampler started")

	go s.loop(ctx, root, interval, children, time.Now())
	return nil
}

func (s *Sampler) loop(ctx context.Context, root stats.Identity, interval time.Duration, children bool, start time.Time) {
	defer close(s.done)

	empty := 0
	for tick := 0; ; tick++ {
		// tick 0 is always taken so every run has at least one sample
		if tick > 0 && !s.sleepUntil(ctx, start.Add(time.Duration(tick)*interval)) {
			s.finish(StopRequested)
			return
		}

		ids := s.tracker.Snapshot(ctx, root, children)
		s.record(ctx, tick, root, ids)

		if len(ids) == 0 {
			empty++
		} else {
			empty = 0
		}
		if empty >= emptyTicksToExit {
			log.WithField("pid", root.PID).Debugf("process tree gone after %d ticks", tick+1)
			s.finish(TreeExited)
			return
		}
	}
}

// sleepUntil waits for the wake time and reports false if stopped first
func (s *Sampler) sleepUntil(ctx context.Context, wake time.Time) bool {
	d := time.Until(wake)
	if d <= 0 {
		select {
		case <-s.stop:
			return false
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// record reads every identity of a snapshot and appends the tick. An empty
// snapshot still records the root as absent to keep the tick.
func (s *Sampler) record(ctx context.Context, tick int, root stats.Identity, ids []stats.Identity) {
	now := time.Now()

	batch := make([]Sample, 0, len(ids)+1)
	if len(ids) == 0 {
		batch = append(batch, Sample{Tick: tick, WallTime: now, Identity: root})
	}
	for _, id := range ids {
		metrics, ok := s.reader.Read(ctx, id)
		if !ok {
			metrics = stats.ProcMetrics{}
		}
		batch = append(batch, Sample{
			Tick:     tick,
			WallTime: now,
			Identity: id,
			Metrics:  metrics,
			Present:  ok,
		})
	}

	s.mu.Lock()
	s.samples = append(s.samples, batch...)
	if len(ids) > 0 {
		s.tracked = ids
	}
	s.mu.Unlock()
}

func (s *Sampler) finish(reason StopReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == NotStopped {
		s.reason = reason
	}
	s.state = Stopped
}

// Stop halts sampling and returns the frozen samples. It may be called more
// than once; nothing is appended once it has returned.
func (s *Sampler) Stop() []Sample {
	s.mu.Lock()
	if s.state == Idle {
		s.state = Stopped
		s.reason = StopRequested
		close(s.done)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	return s.Samples()
}

// Done is closed once the sampling goroutine has exited
func (s *Sampler) Done() <-chan struct{} {
	return s.done
}

// Samples returns a copy of the samples recorded so far
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Tracked returns the identities of the most recent non-empty snapshot
func (s *Sampler) Tracked() []stats.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stats.Identity, len(s.tracked))
	copy(out, s.tracked)
	return out
}

// State returns Idle, Running, or Stopped
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns why the sampler stopped
func (s *Sampler) Reason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
