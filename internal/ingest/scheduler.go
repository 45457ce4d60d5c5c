package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alertd/alertd/internal/alert"
	"github.com/alertd/alertd/internal/feed"
)

// Notifier receives each accepted alert. Publish must not block the
// pipeline; failures are the sink's problem, never the engine's.
type Notifier interface {
	Publish(alert.Alert)
}

// Scheduler owns the fetch → normalize → ingest → notify cycle. One
// instance is constructed at startup and holds every collaborator
// explicitly; there is no package-level pipeline state.
type Scheduler struct {
	feed     *feed.Client
	engine   *Engine
	sink     Notifier
	log      *zap.Logger
	interval time.Duration
	sweepEvr time.Duration

	// Held for the duration of a cycle. The timer path skips when it is
	// taken; check-now waits.
	runMu sync.Mutex

	lastCycle atomic.Int64 // unix seconds of the last completed cycle
}

func NewScheduler(fc *feed.Client, engine *Engine, sink Notifier, log *zap.Logger, interval, sweepEvery time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if sweepEvery <= 0 {
		sweepEvery = 24 * time.Hour
	}
	return &Scheduler{
		feed:     fc,
		engine:   engine,
		sink:     sink,
		log:      log,
		interval: interval,
		sweepEvr: sweepEvery,
	}
}

// RunOnce executes a single cycle, waiting for any in-flight cycle to
// finish first. This is the out-of-band (check-now) entry point.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cycle(ctx)
}

// LastCycle reports when a cycle last completed, zero if never.
func (s *Scheduler) LastCycle() time.Time {
	sec := s.lastCycle.Load()
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Run drives the timer loop until ctx is cancelled. A tick that comes due
// while a cycle is still running is skipped, not queued. The retention
// sweep runs on its own schedule, once at startup and then periodically.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.engine.Sweep(time.Now()); err != nil {
		s.log.Warn("startup sweep failed", zap.Error(err))
	}
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	sweeper := time.NewTicker(s.sweepEvr)
	defer sweeper.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-sweeper.C:
			if _, err := s.engine.Sweep(time.Now()); err != nil {
				s.log.Error("retention sweep failed", zap.Error(err))
			}
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		}
	}
}

// tick runs one cycle unless a previous one is still in flight. Any
// failure, including a panic, is contained so the loop keeps scheduling.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.runMu.TryLock() {
		s.log.Warn("previous cycle still running, tick skipped")
		return
	}
	defer s.runMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("cycle panicked", zap.Any("panic", r))
		}
	}()
	if _, err := s.cycle(ctx); err != nil {
		s.log.Warn("cycle failed", zap.Error(err))
	}
}

func (s *Scheduler) cycle(ctx context.Context) (int, error) {
	raw, err := s.feed.Fetch(ctx)
	if err != nil {
		feedFailures.Inc()
		return 0, err
	}
	candidates := alert.Normalize(raw, time.Now())
	if len(candidates) == 0 {
		// Unrecognized or empty payload: nothing new this cycle.
		s.lastCycle.Store(time.Now().Unix())
		return 0, nil
	}
	accepted, err := s.engine.Ingest(candidates)
	if err != nil {
		return 0, err
	}
	for _, a := range accepted {
		if s.sink != nil {
			s.sink.Publish(a)
		}
	}
	if len(accepted) > 0 {
		s.log.Info("alerts ingested",
			zap.Int("accepted", len(accepted)),
			zap.Int("candidates", len(candidates)))
	}
	s.lastCycle.Store(time.Now().Unix())
	return len(accepted), nil
}
