package plan

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Plan) (*Plan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	ListActive(ctx context.Context) ([]Plan, error)
	Update(ctx context.Context, p *Plan) (*Plan, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}
