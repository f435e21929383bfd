package persist

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/storage/epd"
	"github.com/yndnr/rolegate/internal/telemetry/logger"
	"github.com/yndnr/rolegate/internal/telemetry/metric"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateRunning
	StateFlushing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Store is the scheduler's view of the activity tracker.
type Store interface {
	Snapshot() []domain.ActivityRecord
	Load(records []domain.ActivityRecord) error
}

// Scheduler orchestrates the persistence lifecycle: startup load,
// periodic snapshot capture, atomic writes, and the final flush on
// shutdown. It only ever holds the record copies returned by
// Store.Snapshot for the duration of one write.
type Scheduler struct {
	store    Store
	strategy Strategy
	interval time.Duration
	log      logger.Logger
	metrics  *metric.Metrics

	state    atomic.Int32
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithMetrics attaches snapshot metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New creates a scheduler in the Idle state.
func New(store Store, strategy Strategy, interval time.Duration, log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		strategy: strategy,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Start performs the startup load and begins the periodic snapshot
// loop (Idle → Loading → Running). An unreadable snapshot file is
// logged and treated as no prior state; corruption never prevents
// startup. Start must complete before the event stream is attached.
func (s *Scheduler) Start(context.Context) error {
	if st := s.State(); st != StateIdle {
		return fmt.Errorf("persist: start in state %s", st)
	}
	s.setState(StateLoading)

	records, err := s.strategy.Load()
	switch {
	case err == nil:
		if len(records) > 0 {
			if err := s.store.Load(records); err != nil {
				// Only possible when ingestion already began: a wiring
				// bug that must fail loudly.
				return err
			}
			s.log.Info("snapshot restored", "records", len(records))
		}
	case epd.IsFormatError(err):
		s.log.Warn("snapshot unreadable, starting empty", "error", err)
	default:
		s.log.Warn("snapshot load failed, starting empty", "error", err)
	}

	s.setState(StateRunning)

	if s.strategy.Enabled() && s.interval > 0 {
		s.wg.Add(1)
		go s.loop()
		s.log.Info("periodic snapshots enabled", "interval", s.interval)
	}
	return nil
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Failures are logged and retried on the next tick; the
			// counting path is never sacrificed for durability.
			if err := s.snapshot(); err != nil {
				s.log.Error("snapshot write failed, will retry", "error", err)
			}
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) snapshot() error {
	start := time.Now()
	records := s.store.Snapshot()
	err := s.strategy.Store(records)

	if s.metrics != nil {
		s.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		s.metrics.SnapshotRecords.Set(float64(len(records)))
		if err != nil {
			s.metrics.SnapshotFailures.Inc()
		}
	}
	return err
}

// Stop drives Running → Flushing → Terminated: it cancels the
// periodic timer, waits for any in-flight write, and performs one
// final snapshot. A failure of the final flush is logged and
// swallowed so shutdown never blocks indefinitely.
func (s *Scheduler) Stop(context.Context) error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.setState(StateFlushing)
		if s.strategy.Enabled() {
			if err := s.snapshot(); err != nil {
				s.log.Error("final snapshot flush failed", "error", err)
			} else {
				s.log.Info("final snapshot flushed")
			}
		}
		s.setState(StateTerminated)
	})
	return nil
}
