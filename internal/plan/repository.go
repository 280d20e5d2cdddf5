package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"planpass/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const planColumns = `id, name, price, features, duration_days, active, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Plan) (*Plan, error) {
	query := `
		INSERT INTO plans (id, name, price, features, duration_days, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + planColumns

	var created Plan
	err := r.db.GetContext(ctx, &created, query, p.ID, p.Name, p.Price, p.Features, p.DurationDays, p.Active)
	if err != nil {
		if db.IsUniqueViolation(err, "plans_name_key") {
			return nil, ErrPlanNameTaken
		}
		return nil, fmt.Errorf("insert plan: %w", err)
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	var p Plan
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}

	return &p, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE active = TRUE ORDER BY price ASC, name ASC`

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

func (r *repository) Update(ctx context.Context, p *Plan) (*Plan, error) {
	query := `
		UPDATE plans
		SET name = $2, price = $3, features = $4, duration_days = $5, active = $6
		WHERE id = $1
		RETURNING ` + planColumns

	var updated Plan
	err := r.db.GetContext(ctx, &updated, query, p.ID, p.Name, p.Price, p.Features, p.DurationDays, p.Active)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrPlanNotFound
		case db.IsUniqueViolation(err, "plans_name_key"):
			return nil, ErrPlanNameTaken
		}
		return nil, fmt.Errorf("update plan %s: %w", p.ID, err)
	}

	return &updated, nil
}

// Deactivate soft-deletes a plan. Subscriptions keep referencing it.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE plans SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("deactivate plan %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrPlanNotFound
	}

	return nil
}
