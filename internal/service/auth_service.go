package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"capsulevault/internal/auth"
	"capsulevault/internal/cache"
	"capsulevault/internal/clock"
	apperrors "capsulevault/internal/errors"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

const bcryptCost = 10

const profileCacheTTL = 5 * time.Minute

// UserProfile is the identity view returned to an authenticated caller.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthService handles registration, login and token lifecycle.
type AuthService interface {
	Register(ctx context.Context, username, email, password, confirm string) (*model.User, error)
	Login(ctx context.Context, username, password string) (token string, err error)
	CurrentUser(ctx context.Context, username string) (*UserProfile, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	cache      *cache.Client
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, cache *cache.Client) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		cache:      cache,
		now:        clock.Now,
	}
}

// Register creates a new user with a hashed password.
func (s *authService) Register(ctx context.Context, username, email, password, confirm string) (*model.User, error) {
	if password != confirm {
		return nil, apperrors.ErrPasswordMismatch
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, apperrors.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration on one of the unique
		// columns; look the email up again to report which one collided.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, lookupErr := s.userRepo.FindByEmail(ctx, email); lookupErr == nil {
				return nil, apperrors.ErrEmailTaken
			}
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues a 30-minute access token.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(user.Username)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return token, nil
}

// CurrentUser resolves the authenticated identity to its profile.
func (s *authService) CurrentUser(ctx context.Context, username string) (*UserProfile, error) {
	key := "user:profile:" + username
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var profile UserProfile
		if err := json.Unmarshal(data, &profile); err == nil {
			return &profile, nil
		}
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	profile := &UserProfile{Username: user.Username, Email: user.Email}
	if data, err := json.Marshal(profile); err == nil {
		_ = s.cache.Set(ctx, key, data, profileCacheTTL)
	}
	return profile, nil
}

// Logout revokes the given access token for the remainder of its lifetime.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return apperrors.ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	return s.tokenStore.BlacklistAccessToken(ctx, claims.ID, ttl)
}
