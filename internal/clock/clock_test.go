package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePreservesInstant(t *testing.T) {
	utc := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	normalized := Normalize(utc)

	assert.True(t, normalized.Equal(utc))
	assert.Equal(t, "IST", normalized.Location().String())
	assert.Equal(t, 17, normalized.Hour())
	assert.Equal(t, 30, normalized.Minute())
}

func TestNormalizedComparisonsAgreeAcrossZones(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	inNY := base.In(time.FixedZone("EST", -5*60*60))

	assert.True(t, Normalize(base).Equal(Normalize(inNY)))
	assert.False(t, Normalize(base).Before(Normalize(inNY)))
}
