package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
)

const limiterIdle = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client address.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[string]*client
}

func NewRateLimiter(cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		metrics: m,
		clients: make(map[string]*client),
	}
}

func (l *RateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Sweep drops clients idle for longer than limiterIdle, every interval,
// until ctx is done.
func (l *RateLimiter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for k, c := range l.clients {
				if now.Sub(c.lastSeen) > limiterIdle {
					delete(l.clients, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the client's rate with 429. Health
// probes are exempt.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}
		ok, wait := l.allow(clientKey(r), time.Now())
		if !ok {
			if l.metrics != nil {
				l.metrics.RateLimitedTotal.Inc()
			}
			secs := int(wait.Seconds() + 0.999)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
