package subscription

import (
	"context"
	"errors"
	"time"

	"planpass/internal/events"
	"planpass/internal/logger"
	"planpass/internal/metrics"
	"planpass/internal/plan"

	"github.com/google/uuid"
)

// PlanCatalog resolves plans for the lifecycle engine.
type PlanCatalog interface {
	// Get resolves any plan, including retired ones, for read-time joins.
	Get(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
	// FindActive resolves a plan a new validity window may be drawn from.
	FindActive(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

type Service interface {
	Create(ctx context.Context, userID int, planID string) (*View, error)
	Get(ctx context.Context, userID int) (*View, error)
	Upgrade(ctx context.Context, userID int, planID string) (*View, error)
	Cancel(ctx context.Context, userID int) error
	History(ctx context.Context, userID int) ([]View, error)
}

type service struct {
	repo      Repository
	plans     PlanCatalog
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, plans PlanCatalog, opts ...Option) Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &service{
		repo:      repo,
		plans:     plans,
		publisher: o.publisher,
		now:       o.now,
	}
}

func (s *service) Create(ctx context.Context, userID int, planID string) (*View, error) {
	_, err := s.activeFor(ctx, userID)
	switch {
	case err == nil:
		return nil, ErrAlreadyActive
	case !errors.Is(err, ErrNoActiveSubscription):
		return nil, err
	}

	p, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start, end := p.Window(now)
	sub := &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    p.ID,
		Status:    StatusActive,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
	}

	// The store rejects a second ACTIVE record for the user, which settles
	// concurrent creates that both passed the check above.
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrAlreadyActive) {
			metrics.RecordConflict("create")
		}
		return nil, err
	}

	logger.Info("subscription created", "subscription_id", created.ID, "user_id", userID, "plan_id", p.ID)
	metrics.RecordTransition("create", events.TriggerAPI)
	s.publish(ctx, events.TypeCreated, events.TriggerAPI, created, p)

	return &View{Subscription: created, Plan: p}, nil
}

func (s *service) Get(ctx context.Context, userID int) (*View, error) {
	sub, err := s.activeFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.view(ctx, sub)
}

// Upgrade moves the active subscription to another plan. The window restarts
// at now; remaining time on the old plan is discarded.
func (s *service) Upgrade(ctx context.Context, userID int, planID string) (*View, error) {
	sub, err := s.activeFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(sub.Status, StatusActive) {
		return nil, ErrNoActiveSubscription
	}

	now := s.now()
	start, end := p.Window(now)
	updated, err := s.repo.UpdatePlan(ctx, sub.ID, p.ID, start, end, now)
	if err != nil {
		return nil, s.lostRace("upgrade", err)
	}

	logger.Info("subscription plan changed",
		"subscription_id", sub.ID,
		"user_id", userID,
		"from_plan", sub.PlanID,
		"to_plan", p.ID,
	)
	metrics.RecordTransition("upgrade", events.TriggerAPI)
	s.publish(ctx, events.TypeUpgraded, events.TriggerAPI, updated, p)

	return &View{Subscription: updated, Plan: p}, nil
}

func (s *service) Cancel(ctx context.Context, userID int) error {
	sub, err := s.activeFor(ctx, userID)
	if err != nil {
		return err
	}

	if !CanTransition(sub.Status, StatusCancelled) {
		return ErrNoActiveSubscription
	}

	if err := s.repo.Cancel(ctx, sub.ID, s.now()); err != nil {
		return s.lostRace("cancel", err)
	}

	sub.Status = StatusCancelled
	logger.Info("subscription cancelled", "subscription_id", sub.ID, "user_id", userID)
	metrics.RecordTransition("cancel", events.TriggerAPI)
	s.publish(ctx, events.TypeCancelled, events.TriggerAPI, sub, nil)

	return nil
}

// History lists every stored record of the user, newest first. Overdue
// ACTIVE records are expired before they are reported.
func (s *service) History(ctx context.Context, userID int) ([]View, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	joined := make(map[uuid.UUID]*plan.Plan)
	views := make([]View, 0, len(subs))
	for i := range subs {
		sub := &subs[i]
		if sub.Status == StatusActive && sub.ExpiredAt(now) {
			if err := s.expire(ctx, sub, now); err != nil {
				return nil, err
			}
		}

		p, ok := joined[sub.PlanID]
		if !ok {
			p, err = s.joinPlan(ctx, sub.PlanID)
			if err != nil {
				return nil, err
			}
			joined[sub.PlanID] = p
		}
		views = append(views, View{Subscription: sub, Plan: p})
	}

	return views, nil
}

// activeFor returns the user's ACTIVE record if it is still valid. An overdue
// record is expired first and then reported as missing.
func (s *service) activeFor(ctx context.Context, userID int) (*Subscription, error) {
	sub, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !sub.ExpiredAt(now) {
		return sub, nil
	}

	if err := s.expire(ctx, sub, now); err != nil {
		return nil, err
	}
	return nil, ErrNoActiveSubscription
}

// expire applies the lazy EXPIRED transition. Losing the race to the sweeper
// or another request leaves the same terminal state and is not an error.
func (s *service) expire(ctx context.Context, sub *Subscription, now time.Time) error {
	err := s.repo.Expire(ctx, sub.ID, now)
	switch {
	case err == nil:
		sub.Status = StatusExpired
		logger.Info("subscription expired on read", "subscription_id", sub.ID, "user_id", sub.UserID)
		metrics.RecordTransition("expire", events.TriggerLazy)
		s.publish(ctx, events.TypeExpired, events.TriggerLazy, sub, nil)
		return nil
	case errors.Is(err, ErrStaleSubscription):
		sub.Status = StatusExpired
		return nil
	default:
		logger.Error("failed to expire subscription", "subscription_id", sub.ID, "error", err)
		return err
	}
}

func (s *service) lostRace(operation string, err error) error {
	if errors.Is(err, ErrStaleSubscription) {
		metrics.RecordConflict(operation)
		return ErrNoActiveSubscription
	}
	logger.Error("subscription write failed", "operation", operation, "error", err)
	return err
}

func (s *service) findPlan(ctx context.Context, raw string) (*plan.Plan, error) {
	id, err := plan.ParseID(raw)
	if err != nil {
		return nil, err
	}
	return s.plans.FindActive(ctx, id)
}

func (s *service) view(ctx context.Context, sub *Subscription) (*View, error) {
	p, err := s.joinPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &View{Subscription: sub, Plan: p}, nil
}

// joinPlan tolerates a plan that can no longer be resolved; the view then
// carries planId without plan details.
func (s *service) joinPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, err := s.plans.Get(ctx, id)
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			logger.Warn("subscription references unknown plan", "plan_id", id)
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *service) publish(ctx context.Context, typ events.Type, trigger string, sub *Subscription, p *plan.Plan) {
	publish(ctx, s.publisher, s.now(), typ, trigger, sub, p)
}

func publish(ctx context.Context, pub events.Publisher, now time.Time, typ events.Type, trigger string, sub *Subscription, p *plan.Plan) {
	evt := events.Event{
		ID:             uuid.New(),
		Type:           typ,
		OccurredAt:     now,
		Trigger:        trigger,
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		Status:         string(sub.Status),
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
	}
	if p != nil {
		evt.PlanName = p.Name
	}

	if err := pub.Publish(ctx, evt); err != nil {
		logger.Warn("failed to publish lifecycle event", "type", typ, "subscription_id", sub.ID, "error", err)
		metrics.RecordEvent(string(typ), "failed")
		return
	}
	metrics.RecordEvent(string(typ), "ok")
}
