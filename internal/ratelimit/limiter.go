// Package ratelimit is a fixed-window limiter over an in-process go-cache.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetAt    time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter counts hits per key per window. Counters expire with their window.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, time.Minute),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	resetAt := winStart.Add(l.window)
	k := key + ":" + strconv.FormatInt(winStart.Unix(), 10)

	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// first hit in this window
		if addErr := l.c.Add(k, int64(1), resetAt.Sub(now)); addErr != nil {
			if hits, err = l.c.IncrementInt64(k, 1); err != nil {
				return Result{}, err
			}
		} else {
			hits = 1
		}
	}

	res := Result{Limit: l.max, ResetAt: resetAt}
	if hits > l.max {
		res.RetryAfter = resetAt.Sub(now)
		return res, nil
	}
	res.Allowed = true
	res.Remaining = l.max - hits
	return res, nil
}
