package board

import "time"

// Rotator selects the active station across ticks. Rotation is
// scroll-gated: when the interval elapses while text is still
// scrolling, the switch is deferred to a later tick rather than cutting
// the scroll short. No station is ever skipped.
type Rotator struct {
	interval time.Duration
	count    int
	active   int
	last     time.Time
}

func NewRotator(count int, interval time.Duration, now time.Time) *Rotator {
	return &Rotator{interval: interval, count: count, last: now}
}

// Active is the index of the station currently on display.
func (r *Rotator) Active() int {
	return r.active
}

// Advance moves to the next station when the rotation interval has
// elapsed and the active station's animations are scroll-complete.
// Returns true when the active station changed; the caller must then
// discard the old station's animation state. With a single station
// rotation never fires.
func (r *Rotator) Advance(now time.Time, scrollComplete bool) bool {
	if r.count <= 1 {
		return false
	}
	if now.Sub(r.last) < r.interval || !scrollComplete {
		return false
	}
	r.active = (r.active + 1) % r.count
	r.last = now
	return true
}
