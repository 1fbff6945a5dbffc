package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiterBurst(t *testing.T) {
	l := NewIPLimiter(0.001, 3, time.Minute)
	defer l.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per key")
}

func TestIPLimiterEvictIdle(t *testing.T) {
	l := NewIPLimiter(1, 1, time.Minute)
	defer l.Close()

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.size())

	l.evictIdle(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, l.size())
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(2, time.Minute)
	defer l.Close()

	assert.True(t, l.Allow("ip"))
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))
}

func TestPerMinuteNonPositiveStaysLimited(t *testing.T) {
	for _, n := range []int{0, -5} {
		var l *IPLimiter
		require.NotPanics(t, func() { l = PerMinute(n, time.Minute) })

		assert.True(t, l.Allow("ip"), "n=%d", n)
		assert.False(t, l.Allow("ip"), "n=%d still limits after one request", n)
		l.Close()
	}
}
