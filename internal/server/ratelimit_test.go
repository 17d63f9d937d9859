package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(perMinute, burst int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, burst)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl, clock := newTestLimiter(60, 3)

	for i := range 3 {
		require.NoError(t, rl.Allow("a"), "request %d", i)
	}

	err := rl.Allow("a")
	require.Error(t, err)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 60, rle.Limit)
	assert.InDelta(t, time.Second.Seconds(), rle.RetryAfter.Seconds(), 0.01)

	// A rejected request does not consume a token.
	clock.advance(time.Second)
	require.NoError(t, rl.Allow("a"))
	assert.Error(t, rl.Allow("a"))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl, _ := newTestLimiter(60, 1)

	require.NoError(t, rl.Allow("a"))
	require.Error(t, rl.Allow("a"))
	require.NoError(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	rl, clock := newTestLimiter(60, 1)

	require.NoError(t, rl.Allow("a"))
	require.NoError(t, rl.Allow("b"))
	clock.advance(11 * time.Minute)

	require.NoError(t, rl.Allow("c"))
	assert.Equal(t, 1, rl.Clients())
}

func TestRateLimiter_ZeroBurst(t *testing.T) {
	rl, _ := newTestLimiter(30, 0)
	require.NoError(t, rl.Allow("a"))
	assert.Error(t, rl.Allow("a"))
}

func TestRateLimitError_Message(t *testing.T) {
	err := &RateLimitError{Limit: 10, RetryAfter: 1500 * time.Millisecond}
	assert.Contains(t, err.Error(), "10/min")
	assert.Contains(t, err.Error(), "1.5s")
}
