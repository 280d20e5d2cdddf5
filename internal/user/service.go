package user

import (
	"context"
	"errors"
	"strings"

	"planpass/internal/api"
	"planpass/internal/auth"
)

var (
	ErrEmailExists        = api.Conflict("Email already registered")
	ErrInvalidCredentials = api.Unauthorized("Invalid credentials")
	ErrUserNotFound       = api.NotFound("User not found")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	// Promote grants the admin role to the account registered under email.
	Promote(ctx context.Context, email string) (*User, error)
}

type service struct {
	repo      Repository
	jwtSecret string
}

func NewService(repo Repository, jwtSecret string) Service {
	return &service{
		repo:      repo,
		jwtSecret: jwtSecret,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, strings.TrimSpace(req.Name), email, passwordHash, auth.RoleUser)
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

func (s *service) session(user *User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) Promote(ctx context.Context, email string) (*User, error) {
	return s.repo.SetRole(ctx, normalizeEmail(email), auth.RoleAdmin)
}
