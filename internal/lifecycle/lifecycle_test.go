package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"capsulevault/internal/clock"
)

var unlockAt = time.Date(2025, 6, 1, 12, 0, 0, 0, clock.IST)

func TestStateAt(t *testing.T) {
	tests := []struct {
		name    string
		expired bool
		now     time.Time
		want    State
	}{
		{
			name: "before unlock",
			now:  unlockAt.Add(-30 * time.Minute),
			want: StateLocked,
		},
		{
			name: "exactly at unlock moment",
			now:  unlockAt,
			want: StateUnlockable,
		},
		{
			name: "within retention window",
			now:  unlockAt.Add(29 * 24 * time.Hour),
			want: StateUnlockable,
		},
		{
			name: "one second before retention boundary",
			now:  unlockAt.Add(Retention - time.Second),
			want: StateUnlockable,
		},
		{
			name: "exactly at retention boundary",
			now:  unlockAt.Add(Retention),
			want: StateExpired,
		},
		{
			name: "one second past retention",
			now:  unlockAt.Add(Retention + time.Second),
			want: StateExpired,
		},
		{
			name:    "stored flag wins even before unlock",
			expired: true,
			now:     unlockAt.Add(-time.Hour),
			want:    StateExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateAt(unlockAt, tt.expired, tt.now))
		})
	}
}

func TestStateAtIgnoresWallClockZone(t *testing.T) {
	// Same instant presented in UTC must derive the same state as in IST.
	nowUTC := unlockAt.Add(time.Minute).UTC()
	assert.Equal(t, StateUnlockable, StateAt(unlockAt.UTC(), false, nowUTC))
}

func TestStateNeverRegresses(t *testing.T) {
	// Once a time t1 derives Expired, every t2 > t1 derives Expired too.
	start := unlockAt.Add(Retention)
	for _, delta := range []time.Duration{0, time.Second, time.Hour, 365 * 24 * time.Hour} {
		assert.Equal(t, StateExpired, StateAt(unlockAt, false, start.Add(delta)))
	}
}

func TestCanCreate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, clock.IST)

	assert.True(t, CanCreate(now.Add(time.Second), now))
	assert.False(t, CanCreate(now, now))
	assert.False(t, CanCreate(now.Add(-time.Second), now))
	// Mixed zones, same instant: still not strictly future.
	assert.False(t, CanCreate(now.UTC(), now))
}
