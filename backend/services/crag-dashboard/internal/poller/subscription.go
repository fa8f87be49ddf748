// Package poller re-runs a fetch on a fixed interval for one live view and exposes
// the latest known result.
//
// Every fetch is tagged with a generation number. Starting a fetch (tick, refresh or
// parameter change) bumps the generation, so a result is applied only if no newer fetch
// has started since: last started wins, not last resolved. Abandoned fetches are not
// aborted, their results are dropped on arrival.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is the refetch cadence for dashboard views.
const DefaultInterval = 60 * time.Second

// Status is the subscription state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// FetchFunc loads data for one parameter set.
type FetchFunc[P comparable, T any] func(ctx context.Context, params P) (T, error)

// Snapshot is what the presentation layer renders. Data and FetchedAt belong to the
// last successful fetch and survive later failures.
type Snapshot[P comparable, T any] struct {
	ID          uuid.UUID
	Params      P
	Status      Status
	Data        T
	HasData     bool
	Err         error
	FetchedAt   time.Time
	AttemptedAt time.Time
}

// Observer receives poll outcomes; metrics.Metrics implements it.
type Observer interface {
	ObservePoll(view string, err error, took time.Duration)
	ObserveSuperseded(view string)
}

// Options tune a subscription.
type Options struct {
	// View names the subscription in logs and metrics.
	View     string
	Interval time.Duration
	Logger   *zap.Logger
	Observer Observer
	// Now is the clock used for FetchedAt/AttemptedAt.
	Now func() time.Time
}

// Subscription is one parameterized polling context.
type Subscription[P comparable, T any] struct {
	id       uuid.UUID
	fetch    FetchFunc[P, T]
	opts     Options
	logger   *zap.Logger
	onUpdate func(Snapshot[P, T])

	mu         sync.Mutex
	ctx        context.Context
	params     P
	generation uint64
	timer      *time.Timer
	started    bool
	stopped    bool
	snap       Snapshot[P, T]
}

// New builds an idle subscription. onUpdate, if set, is called on every state change
// while the subscription lock is held, so updates arrive in order; it must not call
// back into the subscription.
func New[P comparable, T any](fetch FetchFunc[P, T], opts Options, onUpdate func(Snapshot[P, T])) *Subscription[P, T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	id := uuid.New()
	return &Subscription[P, T]{
		id:       id,
		fetch:    fetch,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("view", opts.View), zap.String("subscription_id", id.String())),
		onUpdate: onUpdate,
		snap:     Snapshot[P, T]{ID: id, Status: StatusIdle},
	}
}

// ID identifies the subscription.
func (s *Subscription[P, T]) ID() uuid.UUID { return s.id }

// View returns the configured view name.
func (s *Subscription[P, T]) View() string { return s.opts.View }

// Start mounts the subscription: it moves to Loading and fetches immediately.
// ctx is handed to every fetch; cancelling it aborts fetches at the transport level but
// does not stop the schedule, use Stop for that.
func (s *Subscription[P, T]) Start(ctx context.Context, params P) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.ctx = ctx
	s.params = params
	s.issueLocked()
}

// SetParams switches the subscription to a new parameter set. Any pending timer is
// cancelled, results of in-flight fetches are discarded and a fetch for the new
// parameters starts immediately. Data shown for the old parameters is dropped.
func (s *Subscription[P, T]) SetParams(params P) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	if params == s.params {
		return
	}
	s.params = params
	var zero T
	s.snap.Data = zero
	s.snap.HasData = false
	s.snap.Err = nil
	s.snap.FetchedAt = time.Time{}
	s.issueLocked()
}

// Refresh fetches now for the current parameters, superseding any in-flight fetch.
func (s *Subscription[P, T]) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.issueLocked()
}

// Stop unmounts the subscription. The timer is cleared and in-flight results are
// dropped when they arrive.
func (s *Subscription[P, T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.generation++
	s.stopTimerLocked()
}

// Snapshot returns the latest known state.
func (s *Subscription[P, T]) Snapshot() Snapshot[P, T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Subscription[P, T]) issueLocked() {
	s.stopTimerLocked()
	s.generation++
	gen := s.generation
	params := s.params

	s.snap.Params = params
	s.snap.Status = StatusLoading
	s.snap.AttemptedAt = s.opts.Now()
	s.notifyLocked()

	go s.run(gen, params)
}

func (s *Subscription[P, T]) run(gen uint64, params P) {
	began := time.Now()
	data, err := s.fetch(s.ctx, params)
	took := time.Since(began)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.stopped {
		s.logger.Debug("discarding superseded result", zap.Uint64("generation", gen), zap.Uint64("current", s.generation))
		if s.opts.Observer != nil {
			s.opts.Observer.ObserveSuperseded(s.opts.View)
		}
		return
	}
	if s.opts.Observer != nil {
		s.opts.Observer.ObservePoll(s.opts.View, err, took)
	}

	if err != nil {
		s.logger.Warn("poll failed", zap.Error(err), zap.Duration("took", took))
		s.snap.Status = StatusFailed
		s.snap.Err = err
	} else {
		s.logger.Debug("poll succeeded", zap.Duration("took", took))
		s.snap.Status = StatusReady
		s.snap.Data = data
		s.snap.HasData = true
		s.snap.Err = nil
		s.snap.FetchedAt = s.opts.Now()
	}
	s.notifyLocked()

	// Failures are retried on the same cadence, no backoff.
	s.timer = time.AfterFunc(s.opts.Interval, func() { s.tick(gen) })
}

func (s *Subscription[P, T]) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.stopped {
		return
	}
	s.issueLocked()
}

func (s *Subscription[P, T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Subscription[P, T]) notifyLocked() {
	if s.onUpdate != nil {
		s.onUpdate(s.snap)
	}
}
