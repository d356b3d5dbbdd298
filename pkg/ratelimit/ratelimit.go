// Package ratelimit implements the per-client-IP token bucket rate
// limiter shared by every route (spec §4.3), built on golang.org/x/time/rate.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

// Limiter enforces burst+sustained-rate token buckets keyed by client IP.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rps       rate.Limit
	burst     int
	onLimited func()
	now       func() time.Time
	idleAfter time.Duration
}

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New builds a Limiter. ratePerMinute/burst follow spec §4.3; onLimited
// is wired to MetricsRegistry.increment_rate_limited.
func New(ratePerMinute, burst int, onLimited func()) *Limiter {
	l := &Limiter{
		buckets:   make(map[string]*bucket),
		rps:       rate.Limit(float64(ratePerMinute) / 60.0),
		burst:     burst,
		onLimited: onLimited,
		now:       time.Now,
		idleAfter: 10 * refillInterval(ratePerMinute),
	}
	return l
}

func refillInterval(ratePerMinute int) time.Duration {
	if ratePerMinute <= 0 {
		return time.Minute
	}
	return time.Minute / time.Duration(ratePerMinute)
}

// Allow reports whether the client identified by key may proceed,
// consuming one token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastAccess = l.now()
	lim := b.limiter
	l.mu.Unlock()
	return lim.Allow()
}

// Reap removes buckets idle for longer than 10x their refill interval.
func (l *Limiter) Reap() {
	cutoff := l.now().Add(-l.idleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// Len reports the number of tracked buckets (test/observability helper).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Middleware returns the chi-compatible middleware enforcing the limiter
// keyed by the request's remote IP.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if l.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			if l.onLimited != nil {
				l.onLimited()
			}
			apierrors.WriteJSON(w, http.StatusTooManyRequests, apierrors.Failure(apierrors.CodeRateLimited, "rate limit exceeded", nil))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
