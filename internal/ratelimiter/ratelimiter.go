package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a client bucket survives without requests.
const DefaultIdleTTL = 10 * time.Minute

// Limiter rate limits requests per client using one token bucket per key.
//
// Keys are opaque, the HTTP adapter uses the client address. Buckets of
// clients that stayed idle longer than the TTL are dropped lazily, so the
// map stays bounded by the number of recently active clients.
//
// A Limiter created with a zero rate allows everything.
//
// Thread safety:
// All methods are safe for concurrent use.
type Limiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu        sync.Mutex
	clients   map[string]*bucket
	lastSweep time.Time

	// now is replaceable in tests.
	now func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Limiter allowing requestsPerSecond sustained and burst
// requests at once per key. A burst below the rate is raised to the rate.
func New(requestsPerSecond, burst uint) *Limiter {
	if burst < requestsPerSecond {
		burst = requestsPerSecond
	}
	return &Limiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   int(burst),
		ttl:     DefaultIdleTTL,
		clients: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Enabled reports whether the limiter restricts anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Allow consumes a token for key and reports whether the request may
// proceed. It never blocks.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	now := l.now()
	return l.get(key, now).AllowN(now, 1)
}

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	return l.get(key, l.now()).Wait(ctx)
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.ttl {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) >= l.ttl {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b.limiter
}
