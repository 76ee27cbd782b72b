package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/ikcamp-web/internal/httpmw"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// visitor tracks one client's limiter and last activity
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is reset when the entry is evicted and re-created
	logged bool
}

// Limiter holds per-client token buckets.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration

	// maxVisitors caps tracked clients; new clients beyond it are denied.
	// 0 disables the cap.
	maxVisitors int

	retryAfter time.Duration

	onFirstDenied func(ip string)
	onDenied      func(ip string)
}

type Option func(*Limiter)

// WithRate sets the bucket refill rate and size. WithRate(10, 50) allows
// 50 requests at once, then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *Limiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle client stays tracked.
func WithTTL(d time.Duration) Option {
	return func(l *Limiter) { l.ttl = d }
}

func WithMaxVisitors(n int) Option {
	return func(l *Limiter) { l.maxVisitors = n }
}

// WithRetryAfter sets the Retry-After hint sent with 429 responses.
func WithRetryAfter(d time.Duration) Option {
	return func(l *Limiter) { l.retryAfter = d }
}

// WithOnFirstDenied is called once per tracked client, for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *Limiter) { l.onFirstDenied = fn }
}

// WithOnDenied is called on every denial, for metrics.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *Limiter) { l.onDenied = fn }
}

// New creates a Limiter and starts its cleanup goroutine, which stops when
// ctx is cancelled.
func New(ctx context.Context, opts ...Option) *Limiter {
	l := &Limiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 100_000,
		retryAfter:  30 * time.Second,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// Allow reports whether ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	v, exists := l.visitors[ip]
	if !exists {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			l.mu.Unlock()
			l.denied(ip, false)
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()

	first := false
	if !allowed && !v.logged {
		v.logged = true
		first = true
	}
	// hooks may do slow work, call them unlocked
	l.mu.Unlock()

	if !allowed {
		l.denied(ip, first)
	}
	return allowed
}

func (l *Limiter) denied(ip string, first bool) {
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(ip)
	}
	if l.onDenied != nil {
		l.onDenied(ip)
	}
}

// Len is the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// cleanup evicts idle visitors every ttl/2.
func (l *Limiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.ttl {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stage rejects requests over the per-client limit with a 429 error, which
// the error boundary renders. The client is identified by httpmw.ClientIP.
func (l *Limiter) Stage() web.Stage {
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		ip := httpmw.ClientIPFromContext(c.Context())
		if l.Allow(ip) {
			return next(c)
		}
		// limits and remaining budget are not disclosed
		c.Header().Set("Retry-After", strconv.Itoa(int(l.retryAfter.Seconds())))
		return xerrors.WithStatus(xerrors.New("too many requests"), http.StatusTooManyRequests)
	})
}
