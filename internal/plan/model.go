package plan

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Plan is a named entitlement tier with a fixed validity window in days.
type Plan struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Price        int64          `db:"price" json:"price"`
	Features     pq.StringArray `db:"features" json:"features"`
	DurationDays int            `db:"duration_days" json:"duration"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// Window returns the validity window of a subscription to this plan starting at start.
func (p *Plan) Window(start time.Time) (time.Time, time.Time) {
	return start, start.AddDate(0, 0, p.DurationDays)
}

type CreatePlanRequest struct {
	Name     string   `json:"name" binding:"required"`
	Price    *int64   `json:"price" binding:"required,min=0"`
	Features []string `json:"features"`
	Duration int      `json:"duration" binding:"required,min=1"`
}

type UpdatePlanRequest struct {
	Name     *string  `json:"name" binding:"omitempty,min=1"`
	Price    *int64   `json:"price" binding:"omitempty,min=0"`
	Features []string `json:"features"`
	Duration *int     `json:"duration" binding:"omitempty,min=1"`
	Active   *bool    `json:"active"`
}

func (r UpdatePlanRequest) apply(p *Plan) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Features != nil {
		p.Features = r.Features
	}
	if r.Duration != nil {
		p.DurationDays = *r.Duration
	}
	if r.Active != nil {
		p.Active = *r.Active
	}
}
