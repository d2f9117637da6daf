package sched

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/daily-digest/internal/model"
)

// State represents the current state of the scheduled digest loop.
type State int

const (
	Idle State = iota
	Running
	Errored
)

// Status holds the observable state of the scheduler.
type Status struct {
	State     State
	LastRun   time.Time
	LastError error
}

// runTimeout is the maximum time allowed for a single digest run.
const runTimeout = 2 * time.Minute

// Runner executes one digest pass.
type Runner interface {
	Run(ctx context.Context) (*model.RunRecord, error)
}

// Scheduler drives the digest pipeline on a fixed interval. The first run
// happens immediately on Start; TriggerNow forces a run between ticks.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger

	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	running bool
}

// New creates a scheduler that invokes runner every interval. A non-positive
// interval falls back to once a day.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the scheduling loop in a background goroutine. Calling
// Start on a running scheduler is a no-op; after Stop, Start begins a fresh
// loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.loop(stopCh)
}

// Stop halts the scheduling loop. An in-flight run finishes normally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopCh)
	s.running = false
}

// TriggerNow requests an immediate run without waiting for the next tick.
func (s *Scheduler) TriggerNow() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// A trigger is already pending; one run covers both requests.
	}
}

// GetStatus returns a snapshot of the scheduler state.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// loop listens on the stop channel it was started with, so a loop from an
// earlier Start/Stop cycle never reacts to a later one.
func (s *Scheduler) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runOnce()
		case <-s.triggerCh:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	s.setState(Running, nil)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	run, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled digest run failed", "error", err)
		s.setState(Errored, err)
		return
	}

	s.logger.Info("scheduled digest run finished", "run_id", run.ID)
	s.setState(Idle, nil)
}

func (s *Scheduler) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	s.status.LastError = err
	if state == Idle && err == nil {
		s.status.LastRun = time.Now()
	}
}
