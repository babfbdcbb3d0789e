// Package ratelimit gates actions per account on the logical block height.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter allows at most Max actions per account within any Window heights,
// refilling one action every Window/Max heights. Each height is fed to the
// underlying token bucket as one second of synthetic time.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	max      int
	window   uint64
}

// New creates a limiter. Non-positive values fall back to 5 actions per 144 heights.
func New(max int, window uint64) *Limiter {
	if max <= 0 {
		max = 5
	}
	if window == 0 {
		window = 144
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		max:      max,
		window:   window,
	}
}

// Allow reports whether account may act at height, consuming one action if so.
func (l *Limiter) Allow(account string, height uint64) bool {
	return l.get(account).AllowN(heightTime(height), 1)
}

// Peek reports whether account could act at height without consuming anything.
func (l *Limiter) Peek(account string, height uint64) bool {
	return l.get(account).TokensAt(heightTime(height)) >= 1
}

func (l *Limiter) get(account string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[account]
	if !ok {
		every := time.Duration(l.window) * time.Second / time.Duration(l.max)
		limiter = rate.NewLimiter(rate.Every(every), l.max)
		l.limiters[account] = limiter
	}
	return limiter
}

// maxHeightSeconds keeps synthetic timestamps far from the int64 edge of
// time.Time. Heights above it share one timestamp, so they no longer refill.
const maxHeightSeconds = 1 << 62

func heightTime(height uint64) time.Time {
	return time.Unix(int64(min(height, maxHeightSeconds)), 0)
}
