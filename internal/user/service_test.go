package user

import (
	"context"
	"errors"
	"testing"

	"planpass/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SetRole(ctx context.Context, email, role string) (*User, error) {
	args := m.Called(ctx, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name          string
		req           RegisterRequest
		setupMock     func(*MockRepository)
		expectedError error
	}{
		{
			name: "successful registration",
			req: RegisterRequest{
				Name:     "Test User",
				Email:    " Test@Example.com ",
				Password: "password123",
			},
			setupMock: func(m *MockRepository) {
				m.On("EmailExists", mock.Anything, "test@example.com").Return(false, nil)
				m.On("Create", mock.Anything, "Test User", "test@example.com", mock.Anything, auth.RoleUser).Return(&User{
					ID:    1,
					Name:  "Test User",
					Email: "test@example.com",
					Role:  auth.RoleUser,
				}, nil)
			},
		},
		{
			name: "email already exists",
			req: RegisterRequest{
				Name:     "Test User",
				Email:    "existing@example.com",
				Password: "password123",
			},
			setupMock: func(m *MockRepository) {
				m.On("EmailExists", mock.Anything, "existing@example.com").Return(true, nil)
			},
			expectedError: ErrEmailExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			service := NewService(mockRepo, "test-secret")
			session, err := service.Register(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, session)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, session.Token)
				assert.Equal(t, auth.RoleUser, session.User.Role)

				claims, err := auth.ValidateToken(session.Token, "test-secret")
				require.NoError(t, err)
				assert.Equal(t, 1, claims.UserID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	passwordHash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	tests := []struct {
		name          string
		req           LoginRequest
		setupMock     func(*MockRepository)
		expectedError error
	}{
		{
			name: "successful login",
			req:  LoginRequest{Email: "test@example.com", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: passwordHash,
					Role:         auth.RoleUser,
				}, nil)
			},
		},
		{
			name: "user not found",
			req:  LoginRequest{Email: "notfound@example.com", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, ErrUserNotFound)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			req:  LoginRequest{Email: "test@example.com", Password: "nope"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&User{ID: 1, PasswordHash: passwordHash}, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			service := NewService(mockRepo, "test-secret")
			session, err := service.Login(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, session)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, session.Token)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Login_StoreError(t *testing.T) {
	mockRepo := new(MockRepository)
	boom := errors.New("connection reset")
	mockRepo.On("FindByEmail", mock.Anything, "a@example.com").Return(nil, boom)

	_, err := NewService(mockRepo, "test-secret").Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestService_GetByID(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("FindByID", mock.Anything, 1).Return(&User{ID: 1, Name: "Test User"}, nil)

	service := NewService(mockRepo, "test-secret")
	user, err := service.GetByID(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	mockRepo.AssertExpectations(t)
}

func TestService_Promote(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("SetRole", mock.Anything, "boss@example.com", auth.RoleAdmin).Return(&User{ID: 3, Role: auth.RoleAdmin}, nil)

	user, err := NewService(mockRepo, "test-secret").Promote(context.Background(), "Boss@example.com")

	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, user.Role)
	mockRepo.AssertExpectations(t)
}
