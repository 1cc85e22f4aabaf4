// Package limiter bounds request intake: a token bucket per client IP
// for the HTTP surface and a small in-process semaphore that caps
// concurrent conversions.
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Options tunes the per-client buckets.
type Options struct {
	RatePerSecond float64
	Burst         int
}

// Limiter hands out one token bucket per client key and a shared
// inflight semaphore for conversion jobs.
type Limiter struct {
	ratePerSec rate.Limit
	burst      int

	mu      sync.Mutex
	clients map[string]*client

	inflight chan struct{}
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// staleAfter is how long an idle client entry survives before the
// janitor drops it.
const staleAfter = 10 * time.Minute

func New(opts Options, maxInflight int) *Limiter {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if maxInflight <= 0 {
		maxInflight = 4
	}
	l := &Limiter{
		ratePerSec: rate.Limit(opts.RatePerSecond),
		burst:      opts.Burst,
		clients:    make(map[string]*client),
		inflight:   make(chan struct{}, maxInflight),
	}
	go l.janitor()
	return l
}

// Allow reports whether the client identified by key may make another
// request right now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.ratePerSec, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()
	return c.bucket.Allow()
}

// Acquire tries to reserve a conversion slot. It returns a release
// function and true on success, or nil and false when the service is at
// capacity.
func (l *Limiter) Acquire() (func(), bool) {
	select {
	case l.inflight <- struct{}{}:
		return func() { <-l.inflight }, true
	default:
		return nil, false
	}
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-staleAfter)
		l.mu.Lock()
		for key, c := range l.clients {
			if c.lastSeen.Before(cutoff) {
				delete(l.clients, key)
			}
		}
		l.mu.Unlock()
	}
}
