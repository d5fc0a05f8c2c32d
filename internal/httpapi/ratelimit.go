package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the transport-layer throttle applied to every route,
// grounded on the teacher's internal/api/middleware/ratelimit.go. This is
// unrelated to and not a substitute for the per-city policy gates — it only
// bounds abusive polling against the façade.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
}

// generalRateLimit applies a sliding-window limiter keyed by remote address.
func generalRateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limit := cfg.RequestLimit
	if limit <= 0 {
		limit = 600
	}
	window := cfg.WindowSize
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			respondError(w, r, http.StatusTooManyRequests, &APIError{
				Code:    "RATE_LIMIT_EXCEEDED",
				Message: "too many requests, slow down",
			})
		}),
	)
}

// reservationVisitor tracks one user's token bucket for the reservation
// throttle below.
type reservationVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ReservationThrottle is a per-user abuse guard on the reserve endpoint
// (spec §4's reserve operation), distinct from the general per-IP
// httprate limiter above: it is keyed by user id rather than remote
// address, since a single address (a shared NAT, a kiosk) may legitimately
// serve many users, while one user hammering /rentals is the behavior this
// throttle exists to bound. Grounded on the teacher's internal/api
// middleware.go visitor-map limiter, built directly on
// golang.org/x/time/rate rather than httprate since the key is
// application-level (user id from the request body), not a network
// address httprate's key functions can extract.
type ReservationThrottle struct {
	mu       sync.Mutex
	visitors map[string]*reservationVisitor
	rps      rate.Limit
	burst    int
}

// NewReservationThrottle builds a throttle allowing rps reservation attempts
// per second per user, with the given burst. A background janitor evicts
// idle visitors so the map never grows unbounded.
func NewReservationThrottle(rps float64, burst int) *ReservationThrottle {
	t := &ReservationThrottle{
		visitors: make(map[string]*reservationVisitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go t.janitor(10 * time.Minute)
	return t
}

func (t *ReservationThrottle) janitor(maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-maxIdle)
		t.mu.Lock()
		for userID, v := range t.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(t.visitors, userID)
			}
		}
		t.mu.Unlock()
	}
}

// Allow reports whether userID may make another reservation attempt now.
func (t *ReservationThrottle) Allow(userID string) bool {
	t.mu.Lock()
	v, ok := t.visitors[userID]
	if !ok {
		v = &reservationVisitor{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.visitors[userID] = v
	}
	v.lastSeen = time.Now()
	limiter := v.limiter
	t.mu.Unlock()
	return limiter.Allow()
}

// clientIP extracts the remote address, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
