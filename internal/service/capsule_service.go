package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"gorm.io/gorm"

	"capsulevault/internal/clock"
	apperrors "capsulevault/internal/errors"
	"capsulevault/internal/lifecycle"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

const (
	unlockCodeLength   = 12
	unlockCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Attempts before giving up on a unique unlock code. The unique index is
	// the enforcement point; at 12 alphanumeric chars a collision is
	// effectively unreachable.
	unlockCodeAttempts = 3

	maxPageLimit = 100

	capsuleCacheTTL = 5 * time.Minute
)

// Cache is the subset of cache.Client the capsule service uses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// cachedCapsule carries the unlock code alongside the record, since the
// model withholds it from JSON.
type cachedCapsule struct {
	Capsule    model.Capsule `json:"capsule"`
	UnlockCode string        `json:"unlock_code"`
}

func capsuleCacheKey(id uint) string {
	return fmt.Sprintf("capsule:%d", id)
}

// CapsuleSummary is one row of an owner's capsule listing. The message and
// unlock code are withheld; the derived lifecycle state is included.
type CapsuleSummary struct {
	ID        uint            `json:"id"`
	UnlockAt  time.Time       `json:"unlock_at"`
	CreatedAt time.Time       `json:"created_at"`
	State     lifecycle.State `json:"state"`
}

// CapsulePage is one page of an owner's capsules, newest first.
type CapsulePage struct {
	Items      []CapsuleSummary `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// CapsuleService exposes the lifecycle-gated capsule operations.
type CapsuleService interface {
	Create(ctx context.Context, username, message string, unlockAt time.Time) (*model.Capsule, error)
	Get(ctx context.Context, id uint, code string) (*model.Capsule, error)
	List(ctx context.Context, username string, page, limit int) (*CapsulePage, error)
	Update(ctx context.Context, id uint, code, username string, message *string, unlockAt *time.Time) (*model.Capsule, error)
	Delete(ctx context.Context, id uint, code, username string) error
}

type capsuleService struct {
	capsuleRepo repository.CapsuleRepository
	userRepo    repository.UserRepository
	cache       Cache
	now         func() time.Time
}

// NewCapsuleService creates a new capsule service.
func NewCapsuleService(capsuleRepo repository.CapsuleRepository, userRepo repository.UserRepository, cache Cache) CapsuleService {
	return &capsuleService{
		capsuleRepo: capsuleRepo,
		userRepo:    userRepo,
		cache:       cache,
		now:         clock.Now,
	}
}

// Create seals a new capsule. The unlock time must be strictly in the future;
// the returned record carries the freshly generated unlock code, the only time
// it is ever disclosed.
func (s *capsuleService) Create(ctx context.Context, username, message string, unlockAt time.Time) (*model.Capsule, error) {
	user, err := s.requireUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanCreate(unlockAt, s.now()) {
		return nil, apperrors.ErrUnlockAtNotFuture
	}

	for attempt := 0; attempt < unlockCodeAttempts; attempt++ {
		code, err := generateUnlockCode()
		if err != nil {
			return nil, fmt.Errorf("generate unlock code: %w", err)
		}
		capsule := &model.Capsule{
			Message:    message,
			UnlockAt:   clock.Normalize(unlockAt),
			UnlockCode: code,
			UserID:     user.ID,
		}
		err = s.capsuleRepo.Create(ctx, capsule)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create capsule: %w", err)
		}
		return capsule, nil
	}
	return nil, fmt.Errorf("exhausted %d unlock code attempts", unlockCodeAttempts)
}

// Get returns the full capsule for any holder of the correct unlock code,
// provided the capsule is currently unlockable. State is always re-derived
// from the timestamps, so a cached record with a lagging expired flag still
// resolves correctly; a stale flag is flipped on the way out.
func (s *capsuleService) Get(ctx context.Context, id uint, code string) (*model.Capsule, error) {
	capsule, err := s.loadCapsule(ctx, id)
	if err != nil {
		return nil, err
	}
	if capsule.UnlockCode != code {
		return nil, apperrors.ErrInvalidUnlockCode
	}

	switch lifecycle.StateAt(capsule.UnlockAt, capsule.Expired, s.now()) {
	case lifecycle.StateLocked:
		return nil, apperrors.ErrCapsuleLocked
	case lifecycle.StateExpired:
		if !capsule.Expired {
			s.markExpired(ctx, capsule.ID)
		}
		return nil, apperrors.ErrCapsuleExpired
	}
	return capsule, nil
}

// List returns one page of the caller's capsules with derived states.
// Pagination is 1-indexed; limit is clamped to [1,100].
func (s *capsuleService) List(ctx context.Context, username string, page, limit int) (*CapsulePage, error) {
	user, err := s.requireUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	capsules, total, err := s.capsuleRepo.ListByOwner(ctx, user.ID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list capsules: %w", err)
	}

	now := s.now()
	items := make([]CapsuleSummary, 0, len(capsules))
	for _, c := range capsules {
		items = append(items, CapsuleSummary{
			ID:        c.ID,
			UnlockAt:  c.UnlockAt,
			CreatedAt: c.CreatedAt,
			State:     lifecycle.StateAt(c.UnlockAt, c.Expired, now),
		})
	}

	return &CapsulePage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Update revises the message and/or unlock time of a still-locked capsule.
// Both gates apply: the caller must own the capsule and hold its code.
func (s *capsuleService) Update(ctx context.Context, id uint, code, username string, message *string, unlockAt *time.Time) (*model.Capsule, error) {
	user, err := s.requireUser(ctx, username)
	if err != nil {
		return nil, err
	}

	var updated *model.Capsule
	var staleExpiredID uint
	err = s.capsuleRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.CapsuleRepository) error {
		capsule, err := repo.FindByID(ctx, id)
		if err != nil {
			return capsuleLookupError(err)
		}
		if err := s.gateMutation(capsule, user.ID, code, &staleExpiredID); err != nil {
			return err
		}

		if unlockAt != nil {
			if !lifecycle.CanCreate(*unlockAt, s.now()) {
				return apperrors.ErrUnlockAtNotFuture
			}
			capsule.UnlockAt = clock.Normalize(*unlockAt)
		}
		if message != nil {
			capsule.Message = *message
		}
		if err := repo.Update(ctx, capsule); err != nil {
			return fmt.Errorf("update capsule: %w", err)
		}
		updated = capsule
		return nil
	})
	// Outside the transaction: a rolled-back gate failure must not undo the flip.
	if staleExpiredID != 0 {
		s.markExpired(ctx, staleExpiredID)
	}
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(updated.ID))
	return updated, nil
}

// Delete removes a still-locked capsule. Both gates apply.
func (s *capsuleService) Delete(ctx context.Context, id uint, code, username string) error {
	user, err := s.requireUser(ctx, username)
	if err != nil {
		return err
	}

	var staleExpiredID uint
	err = s.capsuleRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.CapsuleRepository) error {
		capsule, err := repo.FindByID(ctx, id)
		if err != nil {
			return capsuleLookupError(err)
		}
		if err := s.gateMutation(capsule, user.ID, code, &staleExpiredID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, capsule.ID); err != nil {
			return fmt.Errorf("delete capsule: %w", err)
		}
		return nil
	})
	if staleExpiredID != 0 {
		s.markExpired(ctx, staleExpiredID)
	}
	if err == nil {
		_ = s.cache.Delete(ctx, capsuleCacheKey(id))
	}
	return err
}

// gateMutation runs the shared update/delete gate chain: ownership, then
// possession, then the locked-state requirement. staleExpiredID receives the
// capsule ID when the stored flag lagged the derived state.
func (s *capsuleService) gateMutation(capsule *model.Capsule, ownerID uint, code string, staleExpiredID *uint) error {
	if capsule.UserID != ownerID {
		return apperrors.ErrNotOwner
	}
	if capsule.UnlockCode != code {
		return apperrors.ErrInvalidUnlockCode
	}
	switch lifecycle.StateAt(capsule.UnlockAt, capsule.Expired, s.now()) {
	case lifecycle.StateUnlockable:
		return apperrors.ErrCapsuleUnlocked
	case lifecycle.StateExpired:
		if !capsule.Expired {
			*staleExpiredID = capsule.ID
		}
		return apperrors.ErrCapsuleExpired
	}
	return nil
}

// loadCapsule is the read-through cache over FindByID. Only the read path
// uses it; mutation paths load inside their transaction.
func (s *capsuleService) loadCapsule(ctx context.Context, id uint) (*model.Capsule, error) {
	key := capsuleCacheKey(id)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var cached cachedCapsule
		if err := json.Unmarshal(data, &cached); err == nil {
			capsule := cached.Capsule
			capsule.UnlockCode = cached.UnlockCode
			return &capsule, nil
		}
	}

	capsule, err := s.capsuleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, capsuleLookupError(err)
	}
	if data, err := json.Marshal(cachedCapsule{Capsule: *capsule, UnlockCode: capsule.UnlockCode}); err == nil {
		_ = s.cache.Set(ctx, key, data, capsuleCacheTTL)
	}
	return capsule, nil
}

func (s *capsuleService) requireUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// markExpired persists a lazily derived expiry and evicts the cached copy.
// Failures are logged, not surfaced: the caller's response is already decided
// by the derived state.
func (s *capsuleService) markExpired(ctx context.Context, id uint) {
	if _, err := s.capsuleRepo.MarkExpired(ctx, []uint{id}); err != nil {
		log.Printf("capsule %d: lazy expiry write failed: %v", id, err)
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(id))
}

func capsuleLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrCapsuleNotFound
	}
	return fmt.Errorf("find capsule: %w", err)
}

func generateUnlockCode() (string, error) {
	buf := make([]byte, unlockCodeLength)
	max := big.NewInt(int64(len(unlockCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = unlockCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
