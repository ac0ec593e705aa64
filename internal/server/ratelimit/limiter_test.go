package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(perMinute, burst int) (*KeyedLimiter, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewPerMinute(perMinute, burst)
	l.now = func() time.Time { return now }
	l.lastEvict = now
	return l, &now
}

func TestKeyedLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(1, 3)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestKeyedLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestKeyedLimiter_Refills(t *testing.T) {
	l, now := newTestLimiter(60, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	*now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestKeyedLimiter_EvictsIdle(t *testing.T) {
	l, now := newTestLimiter(1, 1)

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	*now = now.Add(11 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}
