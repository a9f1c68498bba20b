package lifecycle

import (
	"time"

	"capsulevault/internal/clock"
)

// State is the derived lifecycle state of a capsule.
type State string

const (
	// StateLocked means the unlock moment has not arrived; content is
	// unreadable and the capsule is still mutable by its owner.
	StateLocked State = "locked"
	// StateUnlockable means the content is readable by any holder of the
	// unlock code.
	StateUnlockable State = "unlockable"
	// StateExpired means the content is permanently inaccessible.
	StateExpired State = "expired"
)

// Retention is how long a capsule stays readable after its unlock moment.
const Retention = 30 * 24 * time.Hour

// StateAt derives a capsule's state from its unlock time, its stored expired
// flag and the given now. This is the single source of truth: every read and
// mutation path must call it rather than trust the stored flag, which can lag
// reality by up to one sweep interval.
//
// Boundaries: now == unlockAt is already Unlockable; now == unlockAt+Retention
// is already Expired.
func StateAt(unlockAt time.Time, expired bool, now time.Time) State {
	if expired {
		return StateExpired
	}
	unlockAt = clock.Normalize(unlockAt)
	now = clock.Normalize(now)

	if now.Before(unlockAt) {
		return StateLocked
	}
	if now.Sub(unlockAt) >= Retention {
		return StateExpired
	}
	return StateUnlockable
}

// CanCreate reports whether a capsule may be created with the given unlock
// time: it must be strictly in the future. The same rule applies to a revised
// unlock time on update.
func CanCreate(unlockAt, now time.Time) bool {
	return clock.Normalize(unlockAt).After(clock.Normalize(now))
}
