package repository

import (
	"context"

	"gorm.io/gorm"

	"capsulevault/internal/model"
)

// CapsuleRepository defines capsule persistence operations.
type CapsuleRepository interface {
	Create(ctx context.Context, capsule *model.Capsule) error
	Update(ctx context.Context, capsule *model.Capsule) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Capsule, error)
	ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Capsule, int64, error)
	ListUnexpired(ctx context.Context) ([]model.Capsule, error)
	MarkExpired(ctx context.Context, ids []uint) (int64, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CapsuleRepository) error) error
}

type capsuleRepository struct {
	db *gorm.DB
}

// NewCapsuleRepository creates a new capsule repository.
func NewCapsuleRepository(db *gorm.DB) CapsuleRepository {
	return &capsuleRepository{db: db}
}

// Create creates a new capsule record.
func (r *capsuleRepository) Create(ctx context.Context, capsule *model.Capsule) error {
	return r.db.WithContext(ctx).Create(capsule).Error
}

// Update persists the mutable fields of an existing capsule.
func (r *capsuleRepository) Update(ctx context.Context, capsule *model.Capsule) error {
	return r.db.WithContext(ctx).Save(capsule).Error
}

// Delete removes a capsule by ID.
func (r *capsuleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Capsule{}, id).Error
}

// FindByID finds a capsule by ID.
func (r *capsuleRepository) FindByID(ctx context.Context, id uint) (*model.Capsule, error) {
	var capsule model.Capsule
	if err := r.db.WithContext(ctx).First(&capsule, id).Error; err != nil {
		return nil, err
	}
	return &capsule, nil
}

// ListByOwner returns one page of the owner's capsules, newest first, along
// with the total number of capsules the owner has.
func (r *capsuleRepository) ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Capsule, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Capsule{}).
		Where("user_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var capsules []model.Capsule
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&capsules).Error; err != nil {
		return nil, 0, err
	}
	return capsules, total, nil
}

// ListUnexpired returns every capsule whose expired flag is still false.
func (r *capsuleRepository) ListUnexpired(ctx context.Context) ([]model.Capsule, error) {
	var capsules []model.Capsule
	if err := r.db.WithContext(ctx).Where("expired = ?", false).Find(&capsules).Error; err != nil {
		return nil, err
	}
	return capsules, nil
}

// MarkExpired flips the expired flag for the given capsules. Only false rows
// are touched, so the operation is idempotent and never resets the flag.
func (r *capsuleRepository) MarkExpired(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Capsule{}).
		Where("id IN ? AND expired = ?", ids, false).
		Update("expired", true)
	return res.RowsAffected, res.Error
}

// WithTransaction executes a function within a database transaction.
func (r *capsuleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CapsuleRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &capsuleRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
