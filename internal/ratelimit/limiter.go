// Package ratelimit throttles admin actions per account.
package ratelimit

import (
	"sort"
	"sync"
	"time"
)

type bucket struct {
	window time.Duration
	hits   []time.Time
}

// Limiter is an in-process sliding window counter keyed by caller and action.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter() *Limiter {
	return &Limiter{buckets: map[string]*bucket{}}
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allow records a hit for key unless limit hits already fall inside window.
// A non-positive limit disables the check.
func (l *Limiter) Allow(key string, limit int, window time.Duration, now time.Time) Result {
	if limit <= 0 {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.window = window
	b.trim(now)

	if len(b.hits) >= limit {
		return Result{Limit: limit, ResetAt: b.hits[0].Add(window)}
	}
	b.hits = append(b.hits, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(b.hits),
		ResetAt:   b.hits[0].Add(window),
	}
}

// Prune drops buckets with no hits left inside their window.
func (l *Limiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		b.trim(now)
		if len(b.hits) == 0 {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (b *bucket) trim(now time.Time) {
	cutoff := now.Add(-b.window)
	// hits are appended in time order
	i := sort.Search(len(b.hits), func(i int) bool { return !b.hits[i].Before(cutoff) })
	b.hits = append(b.hits[:0], b.hits[i:]...)
}
