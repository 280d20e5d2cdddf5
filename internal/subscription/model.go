package subscription

import (
	"time"

	"planpass/internal/plan"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	// StatusInactive is accepted by the schema but no transition produces it.
	StatusInactive  Status = "INACTIVE"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

type Transition struct {
	From Status
	To   Status
}

var validTransitions = map[Transition]bool{
	{StatusActive, StatusActive}:    true, // plan change, same record
	{StatusActive, StatusCancelled}: true,
	{StatusActive, StatusExpired}:   true,
}

func CanTransition(from, to Status) bool {
	return validTransitions[Transition{from, to}]
}

type Subscription struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"userId"`
	PlanID    uuid.UUID `db:"plan_id" json:"planId"`
	Status    Status    `db:"status" json:"status"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ExpiredAt reports whether the validity window has elapsed at now.
// A subscription is only valid while now < EndDate.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return !now.Before(s.EndDate)
}

// View is a subscription with its plan joined at read time.
type View struct {
	*Subscription
	Plan *plan.Plan `json:"plan"`
}

type PlanRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

// SweepResult reports one expiry sweep.
type SweepResult struct {
	Count   int            `json:"count"`
	Expired []Subscription `json:"expired"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
}
