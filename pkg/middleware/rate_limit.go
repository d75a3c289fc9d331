package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "geobus/pkg/errors"
	httputil "geobus/pkg/http"
	"geobus/pkg/logger"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type ClientExtractor func(r *http.Request) string

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per client. limit requests are
// allowed per window, refilled continuously.
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	extractor ClientExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewClientRateLimiter(limit int, window time.Duration, extractor ClientExtractor, log *logger.Logger) *ClientRateLimiter {
	if extractor == nil {
		extractor = ClientIP
	}

	limiter := &ClientRateLimiter{
		clients:   make(map[string]*clientLimiter),
		rate:      rate.Limit(float64(limit) / window.Seconds()),
		burst:     limit,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *ClientRateLimiter) cleanup() {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, c := range rl.clients {
				if time.Since(c.lastSeen) > limiterIdleTTL {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *ClientRateLimiter) Allow(client string) bool {
	if client == "" {
		return true
	}

	rl.mu.Lock()
	c, ok := rl.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[client] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()

	return c.limiter.Allow()
}

func RateLimit(limiter *ClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := limiter.extractor(r)

			if !limiter.Allow(client) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"client", client,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				_ = httputil.WriteError(w, apperrors.New("RATE_LIMITED", "Rate limit exceeded", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP uses the first X-Forwarded-For hop, falling back to the peer address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
