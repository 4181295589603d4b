package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(rate float64, burst int) (*Limiter, *time.Time) {
	l := NewLimiter(rate, burst)
	now := time.Now()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_BurstThenExhaustion(t *testing.T) {
	l, _ := newTestLimiter(1, 3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("user1"); !ok {
			t.Fatalf("request %d rejected inside burst", i)
		}
	}

	ok, wait := l.Allow("user1")
	if ok {
		t.Fatal("request allowed after burst exhausted")
	}
	if wait <= 0 {
		t.Errorf("wait = %v, want positive", wait)
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l, now := newTestLimiter(2, 2)
	defer l.Stop()

	l.Allow("user1")
	l.Allow("user1")
	if ok, _ := l.Allow("user1"); ok {
		t.Fatal("bucket should be empty")
	}

	*now = now.Add(time.Second) // refills 2 tokens at rate 2/s

	if ok, _ := l.Allow("user1"); !ok {
		t.Fatal("request rejected after refill")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)
	defer l.Stop()

	if ok, _ := l.Allow("user1"); !ok {
		t.Fatal("first key rejected")
	}
	if ok, _ := l.Allow("user1"); ok {
		t.Fatal("first key should be exhausted")
	}
	if ok, _ := l.Allow("user2"); !ok {
		t.Fatal("second key must not share the first key's bucket")
	}
}

func TestLimiter_InstancesAreIsolated(t *testing.T) {
	a, _ := newTestLimiter(1, 1)
	defer a.Stop()
	b, _ := newTestLimiter(1, 1)
	defer b.Stop()

	a.Allow("shared-key")
	if ok, _ := a.Allow("shared-key"); ok {
		t.Fatal("limiter a should be exhausted")
	}
	if ok, _ := b.Allow("shared-key"); !ok {
		t.Fatal("limiter b must not see limiter a's state")
	}
}

func TestLimiter_PruneRemovesStaleBuckets(t *testing.T) {
	l, now := newTestLimiter(1, 1)
	defer l.Stop()

	l.Allow("old")
	*now = now.Add(staleAfter + time.Minute)
	l.Allow("fresh")

	l.prune()

	l.mu.Lock()
	_, oldKept := l.buckets["old"]
	_, freshKept := l.buckets["fresh"]
	l.mu.Unlock()

	if oldKept {
		t.Error("stale bucket not pruned")
	}
	if !freshKept {
		t.Error("fresh bucket pruned")
	}
}
