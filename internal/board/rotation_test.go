package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRotatorSingleStationNeverRotates(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRotator(1, 10*time.Second, now)

	assert.False(t, r.Advance(now.Add(time.Hour), true))
	assert.Equal(t, 0, r.Active())
}

func TestRotatorWaitsForInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRotator(3, 10*time.Second, now)

	assert.False(t, r.Advance(now.Add(9*time.Second), true))
	assert.Equal(t, 0, r.Active())

	assert.True(t, r.Advance(now.Add(10*time.Second), true))
	assert.Equal(t, 1, r.Active())
}

func TestRotatorDefersWhileScrolling(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRotator(2, 10*time.Second, now)

	// Interval elapsed but text still scrolling: hold.
	due := now.Add(15 * time.Second)
	assert.False(t, r.Advance(due, false))
	assert.Equal(t, 0, r.Active())

	// Scroll finishes a few ticks later: rotate then, not before.
	later := due.Add(3 * time.Second)
	assert.True(t, r.Advance(later, true))
	assert.Equal(t, 1, r.Active())
}

func TestRotatorWrapsAround(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRotator(2, 10*time.Second, now)

	now = now.Add(10 * time.Second)
	assert.True(t, r.Advance(now, true))
	assert.Equal(t, 1, r.Active())

	now = now.Add(10 * time.Second)
	assert.True(t, r.Advance(now, true))
	assert.Equal(t, 0, r.Active())
}

func TestRotatorIntervalRestartsAfterRotation(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRotator(2, 10*time.Second, now)

	now = now.Add(10 * time.Second)
	assert.True(t, r.Advance(now, true))

	// Immediately after rotating the interval starts over.
	assert.False(t, r.Advance(now.Add(time.Second), true))
	assert.Equal(t, 1, r.Active())
}
