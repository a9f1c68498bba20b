package model

import (
	"time"

	"gorm.io/gorm"

	"capsulevault/internal/clock"
)

// User represents an authenticated user in the system.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`

	// Relations
	Capsules []Capsule `json:"capsules,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate pins the creation timestamp to the canonical offset.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = clock.Now()
	}
	return nil
}
