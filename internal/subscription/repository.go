package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"planpass/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	subscriptionColumns = `id, user_id, plan_id, status, start_date, end_date, created_at`
	oneActivePerUser    = "subscriptions_one_active_per_user"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sub *Subscription) (*Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, status, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + subscriptionColumns

	var created Subscription
	err := r.db.GetContext(ctx, &created, query,
		sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, oneActivePerUser) {
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("insert subscription: %w", err)
	}

	return &created, nil
}

func (r *repository) FindActiveByUser(ctx context.Context, userID int) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND status = 'ACTIVE'
	`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("find active subscription for user %d: %w", userID, err)
	}

	return &sub, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("list subscriptions for user %d: %w", userID, err)
	}

	return subs, nil
}

func (r *repository) ListExpiredActive(ctx context.Context, now time.Time) ([]Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'ACTIVE' AND end_date <= $1
		ORDER BY end_date ASC
	`

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, now); err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}

	return subs, nil
}

// UpdatePlan rebinds a still-valid ACTIVE record to a new plan window.
func (r *repository) UpdatePlan(ctx context.Context, id, planID uuid.UUID, start, end, now time.Time) (*Subscription, error) {
	query := `
		UPDATE subscriptions
		SET plan_id = $2, start_date = $3, end_date = $4
		WHERE id = $1 AND status = 'ACTIVE' AND end_date > $5
		RETURNING ` + subscriptionColumns

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, id, planID, start, end, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleSubscription
		}
		return nil, fmt.Errorf("update plan of subscription %s: %w", id, err)
	}

	return &sub, nil
}

func (r *repository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = 'CANCELLED'
		WHERE id = $1 AND status = 'ACTIVE' AND end_date > $2
	`
	return r.transition(ctx, query, id, now)
}

func (r *repository) Expire(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = 'EXPIRED'
		WHERE id = $1 AND status = 'ACTIVE' AND end_date <= $2
	`
	return r.transition(ctx, query, id, now)
}

func (r *repository) transition(ctx context.Context, query string, id uuid.UUID, now time.Time) error {
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("transition subscription %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrStaleSubscription
	}

	return nil
}
