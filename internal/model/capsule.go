package model

import (
	"time"

	"gorm.io/gorm"

	"capsulevault/internal/clock"
)

// Capsule is a sealed, time-locked message. The unlock code is the
// possession proof for reads and mutations; it is generated once at creation
// and never reissued. The expired flag is monotonic: false to true only.
type Capsule struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Message    string    `json:"message" gorm:"type:text;not null"`
	UnlockAt   time.Time `json:"unlock_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	UnlockCode string    `json:"-" gorm:"uniqueIndex;size:12;not null"`
	Expired    bool      `json:"expired" gorm:"not null;default:false;index"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeSave normalizes timestamps on the way into the store so that stored
// values and a freshly derived now always carry the same offset.
func (c *Capsule) BeforeSave(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = clock.Now()
	} else {
		c.CreatedAt = clock.Normalize(c.CreatedAt)
	}
	c.UnlockAt = clock.Normalize(c.UnlockAt)
	return nil
}

// AfterFind normalizes timestamps on the way out of the store.
func (c *Capsule) AfterFind(tx *gorm.DB) error {
	c.CreatedAt = clock.Normalize(c.CreatedAt)
	c.UnlockAt = clock.Normalize(c.UnlockAt)
	return nil
}
