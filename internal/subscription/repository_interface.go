package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the subscription store. Mutators are atomic conditional
// writes on the current status and return ErrStaleSubscription when the
// condition no longer holds.
type Repository interface {
	// Create inserts an ACTIVE record. ErrAlreadyActive when the user already has one.
	Create(ctx context.Context, sub *Subscription) (*Subscription, error)
	FindActiveByUser(ctx context.Context, userID int) (*Subscription, error)
	ListByUser(ctx context.Context, userID int) ([]Subscription, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]Subscription, error)
	UpdatePlan(ctx context.Context, id, planID uuid.UUID, start, end, now time.Time) (*Subscription, error)
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) error
	Expire(ctx context.Context, id uuid.UUID, now time.Time) error
}
