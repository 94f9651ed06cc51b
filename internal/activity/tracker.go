package activity

import "time"

// Tracker records the instant of the last user-initiated interaction.
// It is not safe for concurrent use; the owning session serialises access.
type Tracker struct {
	last time.Time
}

// NewTracker returns a Tracker whose last activity is start.
func NewTracker(start time.Time) *Tracker {
	return &Tracker{last: start}
}

// Record marks now as the last activity. Instants earlier than the current
// mark are ignored so the timestamp never moves backwards.
func (t *Tracker) Record(now time.Time) {
	if now.After(t.last) {
		t.last = now
	}
}

// Last returns the last recorded activity instant.
func (t *Tracker) Last() time.Time {
	return t.last
}

// IdleSeconds returns the seconds elapsed between the last activity and now.
func (t *Tracker) IdleSeconds(now time.Time) float64 {
	d := now.Sub(t.last)
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
