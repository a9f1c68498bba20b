package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"capsulevault/internal/auth"
	apperrors "capsulevault/internal/errors"
	"capsulevault/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		email         string
		password      string
		confirm       string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful registration",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
			confirm:  "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:          "password confirmation mismatch",
			username:      "alice",
			email:         "alice@example.com",
			password:      "password123",
			confirm:       "password124",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrPasswordMismatch,
		},
		{
			name:     "username already exists",
			username: "taken",
			email:    "new@example.com",
			password: "password123",
			confirm:  "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "taken").Return(&model.User{Username: "taken"}, nil)
			},
			expectedError: apperrors.ErrUsernameTaken,
		},
		{
			name:     "email already exists",
			username: "fresh",
			email:    "taken@example.com",
			password: "password123",
			confirm:  "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "fresh").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{Email: "taken@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:     "concurrent registration on the same email",
			username: "fresh",
			email:    "raced@example.com",
			password: "password123",
			confirm:  "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "fresh").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "raced@example.com").Return(nil, gorm.ErrRecordNotFound).Once()
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
				m.On("FindByEmail", mock.Anything, "raced@example.com").Return(&model.User{Email: "raced@example.com"}, nil).Once()
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:     "concurrent registration on the same username",
			username: "raced",
			email:    "fresh@example.com",
			password: "password123",
			confirm:  "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "raced").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "fresh@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			jwtService := auth.NewJWTService("test-secret")
			svc := NewAuthService(mockRepo, jwtService, new(MockTokenStore), nil)

			user, err := svc.Register(context.Background(), tt.username, tt.email, tt.password, tt.confirm)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.Equal(t, tt.username, user.Username)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.password, user.PasswordHash)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcryptCost)

	tests := []struct {
		name          string
		username      string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			username: "alice",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{
					ID:           1,
					Username:     "alice",
					PasswordHash: string(hashedPassword),
				}, nil)
			},
			expectedError: nil,
		},
		{
			name:     "user not found",
			username: "ghost",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			username: "alice",
			password: "nope",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{
					ID:           1,
					Username:     "alice",
					PasswordHash: string(hashedPassword),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			jwtService := auth.NewJWTService("test-secret")
			svc := NewAuthService(mockRepo, jwtService, new(MockTokenStore), nil)

			token, err := svc.Login(context.Background(), tt.username, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)

				claims, err := jwtService.ValidateToken(token)
				assert.NoError(t, err)
				assert.Equal(t, tt.username, claims.Subject)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByUsername", mock.Anything, "alice").Return(&model.User{
		Username: "alice",
		Email:    "alice@example.com",
	}, nil)
	mockRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	svc := NewAuthService(mockRepo, auth.NewJWTService("test-secret"), new(MockTokenStore), nil)

	profile, err := svc.CurrentUser(context.Background(), "alice")
	assert.NoError(t, err)
	assert.Equal(t, &UserProfile{Username: "alice", Email: "alice@example.com"}, profile)

	_, err = svc.CurrentUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	token, err := jwtService.GenerateAccessToken("alice")
	assert.NoError(t, err)

	mockTokenStore := new(MockTokenStore)
	mockTokenStore.On("BlacklistAccessToken", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= auth.AccessTokenExpiry
	})).Return(nil)

	svc := NewAuthService(new(MockUserRepository), jwtService, mockTokenStore, nil)

	assert.NoError(t, svc.Logout(context.Background(), token))
	assert.ErrorIs(t, svc.Logout(context.Background(), "not-a-token"), apperrors.ErrInvalidToken)

	mockTokenStore.AssertExpectations(t)
}
