// Package ratelimit provides per-connector outbound rate limiting using a
// token bucket, plus a shared cost budget counter. Both are shared across all
// concurrent company units so external API quotas are respected batch-wide.
package ratelimit

import (
	"sync"
	"time"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// TokenBucket allows a steady rate of calls with a burst capacity.
type TokenBucket struct {
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// allow consumes a token if one is available.
func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// ConnectorLimit configures the quota for one connector.
type ConnectorLimit struct {
	CallsPerMinute int
	Burst          int
}

// Limiter manages one token bucket per connector tag.
type Limiter struct {
	buckets  map[types.SourceTag]*TokenBucket
	mu       sync.RWMutex
	limits   map[types.SourceTag]ConnectorLimit
	fallback ConnectorLimit
}

// NewLimiter creates a Limiter with per-connector overrides. Connectors
// without an override use defaultLimit.
func NewLimiter(defaultLimit ConnectorLimit, overrides map[types.SourceTag]ConnectorLimit) *Limiter {
	if defaultLimit.CallsPerMinute <= 0 {
		defaultLimit.CallsPerMinute = 60
	}
	if defaultLimit.Burst <= 0 {
		defaultLimit.Burst = defaultLimit.CallsPerMinute
	}
	return &Limiter{
		buckets:  make(map[types.SourceTag]*TokenBucket),
		limits:   overrides,
		fallback: defaultLimit,
	}
}

// Allow reports whether a call to the given connector may proceed now.
func (l *Limiter) Allow(tag types.SourceTag) bool {
	return l.bucket(tag).allow()
}

// Wait blocks until a token is available or the deadline passes. Returns
// false on deadline expiry. Polling granularity is coarse on purpose: the
// buckets refill at per-minute rates, so millisecond precision buys nothing.
func (l *Limiter) Wait(tag types.SourceTag, deadline time.Time) bool {
	for {
		if l.bucket(tag).allow() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (l *Limiter) bucket(tag types.SourceTag) *TokenBucket {
	l.mu.RLock()
	bucket, exists := l.buckets[tag]
	l.mu.RUnlock()
	if exists {
		return bucket
	}

	limit, ok := l.limits[tag]
	if !ok {
		limit = l.fallback
	}
	if limit.Burst <= 0 {
		limit.Burst = limit.CallsPerMinute
	}
	bucket = newTokenBucket(limit.Burst, float64(limit.CallsPerMinute)/60.0)

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.buckets[tag]; ok {
		return existing
	}
	l.buckets[tag] = bucket
	return bucket
}

// BudgetCounter tracks cumulative estimated spend across all workers.
// A single shared counter, not per-unit state.
type BudgetCounter struct {
	mu    sync.Mutex
	spent float64
	limit float64 // <= 0 means unlimited
}

// NewBudgetCounter creates a counter with the given spend limit in dollars.
func NewBudgetCounter(limit float64) *BudgetCounter {
	return &BudgetCounter{limit: limit}
}

// Add records spend and reports whether the budget is still open.
func (b *BudgetCounter) Add(cost float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent += cost
	return b.limit <= 0 || b.spent < b.limit
}

// Exhausted reports whether the budget has been used up.
func (b *BudgetCounter) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit > 0 && b.spent >= b.limit
}

// Spent returns the cumulative recorded spend.
func (b *BudgetCounter) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}
