package clock

import "time"

// IST is the canonical fixed offset (UTC+5:30) for every stored and compared
// timestamp in the system.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Now returns the current time in the canonical offset.
func Now() time.Time {
	return time.Now().In(IST)
}

// Normalize converts t to the canonical offset. Both sides of every timestamp
// comparison must pass through here; raw stored values are never compared
// against a freshly derived now.
func Normalize(t time.Time) time.Time {
	return t.In(IST)
}
