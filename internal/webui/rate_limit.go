package webui

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pebfutar.app/internal/clock"
)

const (
	// DefaultClientRate is how many guarded requests one client may make
	// per second.
	DefaultClientRate = 10
	// DefaultClientBurst is the matching burst.
	DefaultClientBurst = 20

	limiterIdle  = 10 * time.Minute
	limiterSweep = 5 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter limits requests per remote address. Idle entries are
// swept while serving, so it needs no goroutine of its own.
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	clock     clock.Clock
	lastSweep time.Time
}

// NewClientRateLimiter allows perSecond requests per client. perSecond <= 0
// disables limiting.
func NewClientRateLimiter(perSecond, burst int, clk clock.Clock) *ClientRateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ClientRateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     limit,
		burst:     burst,
		clock:     clk,
		lastSweep: clk.Now(),
	}
}

func (rl *ClientRateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	if now.Sub(rl.lastSweep) > limiterSweep {
		rl.sweep(now)
	}

	c, ok := rl.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (rl *ClientRateLimiter) sweep(now time.Time) {
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > limiterIdle {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

func (rl *ClientRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware answers 429 once a client exceeds its rate.
func (rl *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.allow(clientAddr(r)) {
			next.ServeHTTP(w, r)
			return
		}
		retryAfter := 1
		if rl.limit > 0 && rl.limit < 1 {
			retryAfter = int(1/float64(rl.limit)) + 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		w.Header().Set("X-RateLimit-Remaining", "0")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
