package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter hands out one token bucket per client key.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewIPLimiter(rps float64, burst int, idleTTL time.Duration) *IPLimiter {
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
}

// PerMinute builds a limiter allowing n requests per minute with a burst of n.
// n below 1 is treated as 1 so a bad setting never disables the limit.
func PerMinute(n int, idleTTL time.Duration) *IPLimiter {
	if n < 1 {
		n = 1
	}
	l := NewIPLimiter(0, n, idleTTL)
	l.limit = rate.Every(time.Minute / time.Duration(n))
	return l
}

func (l *IPLimiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// StartCleanup evicts idle buckets every interval until Close.
func (l *IPLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.evictIdle(time.Now())
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *IPLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *IPLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, key)
		}
	}
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
