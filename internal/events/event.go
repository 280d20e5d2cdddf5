package events

import (
	"context"
	"errors"
	"time"

	"planpass/internal/logger"

	"github.com/google/uuid"
)

type Type string

const (
	TypeCreated   Type = "subscription.created"
	TypeUpgraded  Type = "subscription.upgraded"
	TypeCancelled Type = "subscription.cancelled"
	TypeExpired   Type = "subscription.expired"
)

// Trigger values name the path that produced a transition.
const (
	TriggerAPI     = "api"
	TriggerLazy    = "lazy"
	TriggerSweeper = "sweeper"
)

// Event describes one subscription lifecycle transition.
type Event struct {
	ID             uuid.UUID `json:"id"`
	Type           Type      `json:"type"`
	OccurredAt     time.Time `json:"occurredAt"`
	Trigger        string    `json:"trigger"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	UserID         int       `json:"userId"`
	PlanID         uuid.UUID `json:"planId"`
	PlanName       string    `json:"planName,omitempty"`
	Status         string    `json:"status"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Fanout hands every event to each publisher in order. A failing publisher
// does not stop the others; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, evt Event) error {
	logger.Debug("noop publish", "type", evt.Type, "subscription_id", evt.SubscriptionID)
	return nil
}
