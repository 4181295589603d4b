// Package ratelimit provides an injectable per-key token bucket limiter.
// Each server owns its own Limiter instance; there is no process-global
// state, so tests and embedded uses run isolated limiters.
package ratelimit

import (
	"sync"
	"time"
)

const (
	janitorInterval = 5 * time.Minute
	staleAfter      = 15 * time.Minute
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter implements a token bucket per caller key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewLimiter builds a Limiter allowing ratePerSecond sustained requests with
// the given burst, and starts its stale-bucket janitor.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    ratePerSecond,
		burst:   float64(burst),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go l.janitor()

	return l
}

// Allow reports whether the caller identified by key may proceed. When the
// bucket is exhausted it returns false and the duration until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = minFloat(l.burst, b.tokens+elapsed*l.rate)
	b.lastRefill = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
		return false, wait
	}

	b.tokens--
	return true, 0
}

// Stop terminates the janitor goroutine. The limiter remains usable.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-staleAfter)
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
