package main

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

type Scope string

const (
	ScopeGenerateTest  Scope = "generate_test"
	ScopeSubmitAnswers Scope = "submit_answers"
)

// Decision is the outcome of a throttle check. RetryAfter is set when denied.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds up, so a denied caller never retries too early.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	s := int(math.Ceil(d.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// ThrottleStore runs prune, count and record for one key as a single atomic step.
type ThrottleStore interface {
	Hit(ctx context.Context, key string, now time.Time, rate Rate) (Decision, error)
}

type Throttle struct {
	store ThrottleStore
	rates map[Scope]Rate
	now   func() time.Time
}

func NewThrottle(store ThrottleStore, rates map[Scope]Rate) *Throttle {
	return &Throttle{store: store, rates: rates, now: time.Now}
}

// CheckAndConsume records a request for (user, scope) if it fits the quota.
// Scopes without a configured rate are never throttled.
func (t *Throttle) CheckAndConsume(ctx context.Context, userID uint, scope Scope) (Decision, error) {
	rate, ok := t.rates[scope]
	if !ok || rate.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}
	return t.store.Hit(ctx, throttleKey(scope, userID), t.now(), rate)
}

func throttleKey(scope Scope, userID uint) string {
	return fmt.Sprintf("throttle_%s_%d", scope, userID)
}

// slide applies the sliding window to history (unix millis, oldest first):
// entries at or before now-window are dropped, then the request is recorded
// when under the limit.
func slide(history []int64, now time.Time, rate Rate) ([]int64, Decision) {
	nowMs := now.UnixMilli()
	windowMs := rate.Window.Milliseconds()

	kept := history[:0]
	for _, ts := range history {
		if ts > nowMs-windowMs {
			kept = append(kept, ts)
		}
	}
	if len(kept) < rate.Limit {
		return append(kept, nowMs), Decision{Allowed: true}
	}
	wait := time.Duration(kept[0]+windowMs-nowMs) * time.Millisecond
	return kept, Decision{RetryAfter: wait}
}

// memoryThrottleStore keeps histories in process. It is only shared between
// requests of a single instance.
type memoryThrottleStore struct {
	mu      sync.Mutex
	history map[string][]int64
}

func NewMemoryThrottleStore() ThrottleStore {
	return &memoryThrottleStore{history: map[string][]int64{}}
}

func (m *memoryThrottleStore) Hit(_ context.Context, key string, now time.Time, rate Rate) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept, d := slide(m.history[key], now, rate)
	m.history[key] = kept
	return d, nil
}
