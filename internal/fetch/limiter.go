package fetch

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a minimum inter-request delay per target host, with a
// randomized additional delay to stay polite to publisher servers. It is a
// shared resource: every client performing outbound requests (direct or
// proxied) should wait on the same HostLimiter so concurrent fetches to the
// same host still honor the configured window.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration
	rng      *rand.Rand
}

// NewHostLimiter creates a limiter with the given politeness window.
// Requests to one host are spaced at least minDelay apart; an extra random
// delay up to maxDelay-minDelay is added per request.
func NewHostLimiter(minDelay, maxDelay time.Duration) *HostLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until a request to rawURL's host is allowed to proceed.
func (hl *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)

	hl.mu.Lock()
	lim, ok := hl.limiters[host]
	if !ok {
		interval := hl.minDelay
		if interval <= 0 {
			interval = time.Nanosecond
		}
		// First request to a host proceeds immediately (burst 1).
		lim = rate.NewLimiter(rate.Every(interval), 1)
		hl.limiters[host] = lim
	}
	jitter := hl.jitter()
	hl.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}
	if jitter > 0 {
		timer := time.NewTimer(jitter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// jitter returns a random extra delay within the configured window.
// Callers must hold hl.mu.
func (hl *HostLimiter) jitter() time.Duration {
	span := hl.maxDelay - hl.minDelay
	if span <= 0 {
		return 0
	}
	return time.Duration(hl.rng.Int63n(int64(span)))
}

// hostOf extracts the host from a URL, falling back to the raw string so an
// unparseable URL still gets rate limited (under its own key).
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
