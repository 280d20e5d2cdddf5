package plan

import (
	"context"
	"strings"

	"planpass/internal/api"

	"github.com/google/uuid"
)

var (
	ErrPlanNotFound  = api.NotFound("Plan not found")
	ErrPlanNameTaken = api.Conflict("a plan with this name already exists")
	ErrInvalidPlan   = api.Validation("plan name must not be blank")
)

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	Get(ctx context.Context, id uuid.UUID) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Update(ctx context.Context, id uuid.UUID, req UpdatePlanRequest) (*Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindActive resolves a plan that new subscription windows may be drawn from.
	FindActive(ctx context.Context, id uuid.UUID) (*Plan, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

// ParseID parses a plan id from client input. Anything unparseable cannot
// name a plan and reports ErrPlanNotFound.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrPlanNotFound
	}
	return id, nil
}

func (s *service) Create(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidPlan
	}

	features := req.Features
	if features == nil {
		features = []string{}
	}

	p := &Plan{
		ID:           uuid.New(),
		Name:         name,
		Features:     features,
		DurationDays: req.Duration,
		Active:       true,
	}
	if req.Price != nil {
		p.Price = *req.Price
	}

	return s.repo.Create(ctx, p)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]Plan, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdatePlanRequest) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.apply(p)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrInvalidPlan
	}

	return s.repo.Update(ctx, p)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *service) FindActive(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrPlanNotFound
	}
	return p, nil
}
