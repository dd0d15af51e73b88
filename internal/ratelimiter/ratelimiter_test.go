package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rps, burst uint) (*Limiter, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l := New(rps, burst)
	l.now = c.now
	l.lastSweep = c.t
	return l, c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		rps       uint
		burst     uint
		wantBurst int
		enabled   bool
	}{
		{"standard rate", 100, 200, 200, true},
		{"burst raised to rate", 50, 10, 50, true},
		{"unlimited", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.rps, tt.burst)
			require.NotNil(t, l)
			assert.Equal(t, tt.wantBurst, l.burst)
			assert.Equal(t, tt.enabled, l.Enabled())
		})
	}
}

func TestAllow_PerClient(t *testing.T) {
	l, c := newTestLimiter(10, 10)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")

	// Another client has its own bucket.
	assert.True(t, l.Allow("10.0.0.2"))

	// 100ms at 10 req/s refills one token.
	c.advance(100 * time.Millisecond)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestAllow_Unlimited(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow("client"))
	}
	assert.Equal(t, 0, l.Len())

	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("client"))
	assert.NoError(t, nilLimiter.Wait(context.Background(), "client"))
}

func TestIdleClientsAreEvicted(t *testing.T) {
	l, c := newTestLimiter(5, 5)

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	c.advance(DefaultIdleTTL / 2)
	l.Allow("b")

	c.advance(DefaultIdleTTL/2 + time.Second)
	l.Allow("c")

	// "a" was idle for a full TTL, "b" only for half of it.
	assert.Equal(t, 2, l.Len())
}

func TestWait(t *testing.T) {
	l := New(1, 1)
	require.NoError(t, l.Wait(context.Background(), "client"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "client"), "next token is a second away")
}
