package subscription

import (
	"errors"

	"planpass/internal/api"
)

var (
	ErrNoActiveSubscription = api.NotFound("No active subscription found for this user")
	ErrAlreadyActive        = api.Conflict("User already has an active subscription")
	ErrInvalidUserID        = api.Validation("invalid user id")

	// ErrStaleSubscription means a conditional write matched no row: the
	// record left ACTIVE, or crossed its end date, after it was read.
	ErrStaleSubscription = errors.New("subscription changed concurrently")

	ErrSweeperRunning = errors.New("expiry sweeper already running")
)
