package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"planpass/internal/events"
	"planpass/internal/logger"
	"planpass/internal/metrics"
)

// Sweeper periodically moves ACTIVE subscriptions whose window has elapsed
// to EXPIRED. The scheduled loop and on-demand callers share RunOnce, and
// only one run executes at a time.
type Sweeper struct {
	repo       Repository
	publisher  events.Publisher
	interval   time.Duration
	runOnStart bool
	now        func() time.Time

	runMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(repo Repository, interval time.Duration, opts ...Option) *Sweeper {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Sweeper{
		repo:       repo,
		publisher:  o.publisher,
		interval:   interval,
		runOnStart: o.runOnStart,
		now:        o.now,
	}
}

// RunOnce expires every overdue ACTIVE record. A failure on one record is
// logged and counted without stopping the rest. Records a concurrent cancel,
// upgrade or lazy expiry changed first are skipped.
func (s *Sweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := time.Now()
	now := s.now()

	due, err := s.repo.ListExpiredActive(ctx, now)
	if err != nil {
		metrics.RecordSweep("error", 0, 0, time.Since(started).Seconds())
		return nil, fmt.Errorf("expiry sweep: %w", err)
	}

	result := &SweepResult{Expired: make([]Subscription, 0, len(due))}
	for i := range due {
		if ctx.Err() != nil {
			break
		}

		sub := due[i]
		if !CanTransition(sub.Status, StatusExpired) {
			result.Skipped++
			continue
		}

		err := s.repo.Expire(ctx, sub.ID, now)
		switch {
		case err == nil:
			sub.Status = StatusExpired
			result.Expired = append(result.Expired, sub)
			logger.Info("subscription expired", "subscription_id", sub.ID, "user_id", sub.UserID, "end_date", sub.EndDate)
			metrics.RecordTransition("expire", events.TriggerSweeper)
			publish(ctx, s.publisher, now, events.TypeExpired, events.TriggerSweeper, &sub, nil)
		case errors.Is(err, ErrStaleSubscription):
			result.Skipped++
		default:
			result.Failed++
			logger.Error("failed to expire subscription", "subscription_id", sub.ID, "error", err)
		}
	}
	result.Count = len(result.Expired)

	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial"
	}
	metrics.RecordSweep(outcome, result.Count, result.Failed, time.Since(started).Seconds())
	logger.Info("expiry sweep finished",
		"expired", result.Count,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", time.Since(started),
	)

	return result, ctx.Err()
}

// Start launches the periodic loop and returns immediately. The loop stops
// when ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("expiry sweeper: interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSweeperRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	logger.Info("expiry sweeper started", "interval", s.interval, "run_on_start", s.runOnStart)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled sweep. A failed run is retried on the next tick.
func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduled expiry sweep failed", "error", err)
	}
}
