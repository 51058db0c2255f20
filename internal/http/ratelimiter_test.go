package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimiterSettings{RequestsPerSecond: 3, Burst: 3, ClientTTL: time.Minute})
	t.Cleanup(rl.Close)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	key := "1.2.3.4"

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(key), "request %d", i+1)
	}
	assert.False(t, rl.Allow(key), "fourth request")
	assert.True(t, rl.Allow("5.6.7.8"), "other client has its own budget")

	current = current.Add(time.Second)
	assert.True(t, rl.Allow(key), "request after refill")
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimiterSettings{RequestsPerSecond: 1, Burst: 1, ClientTTL: time.Minute})
	t.Cleanup(rl.Close)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	rl.Allow("idle")
	current = current.Add(30 * time.Second)
	rl.Allow("busy")

	current = current.Add(45 * time.Second)
	assert.Equal(t, 1, rl.evict())
	assert.True(t, rl.Allow("idle"), "evicted client starts with a full bucket")
}
