// Package httpapi exposes the fleet coordinator's operations over HTTP as a
// peripheral demo/admin surface. The coordinator remains fully usable as a
// library with no façade running; every route here is a thin adapter onto
// an existing coordinator operation, grounded on the teacher's
// internal/api package (chi router, middleware stack, structured error
// responses) and internal/api/middleware (rate limiting, security headers,
// CORS, metrics, request id).
package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetrelay/fleetrelay/internal/log"
)

// Config configures the façade's middleware stack and listen address.
type Config struct {
	ListenAddr     string
	ServiceName    string
	AllowedOrigins []string

	RateLimitRequestLimit int
	RateLimitWindow       time.Duration

	ReservationRPS   float64
	ReservationBurst int
}

// DefaultConfig returns sane defaults for a single-process demo deployment.
func DefaultConfig() Config {
	return Config{
		ListenAddr:            ":8080",
		ServiceName:           "fleetrelay-httpapi",
		RateLimitRequestLimit: 600,
		RateLimitWindow:       time.Minute,
		ReservationRPS:        1,
		ReservationBurst:      3,
	}
}

// Server wires the coordinator and the report mirror behind the façade's
// HTTP routes.
type Server struct {
	cfg                 Config
	coord               coordinatorAPI
	report              reportAPI
	validator           *Validator
	reservationThrottle *ReservationThrottle
}

// NewServer constructs a Server. validator may be nil to skip OpenAPI
// request validation (tests that don't need it); coord and rpt are
// required.
func NewServer(cfg Config, coord coordinatorAPI, rpt reportAPI, validator *Validator) *Server {
	return &Server{
		cfg:                 cfg,
		coord:               coord,
		report:              rpt,
		validator:           validator,
		reservationThrottle: NewReservationThrottle(cfg.ReservationRPS, cfg.ReservationBurst),
	}
}

// Router builds the chi router with the canonical middleware stack applied,
// mirroring the teacher's internal/api/middleware/stack.go ordering:
// Recoverer -> RequestID -> CORS -> SecurityHeaders -> Metrics -> Tracing ->
// Logging -> RateLimit -> OpenAPI validation -> routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(cors(s.cfg.AllowedOrigins))
	r.Use(securityHeaders)
	r.Use(requestMetrics)
	r.Use(requestTracing(s.cfg.ServiceName))
	r.Use(requestLogging)
	r.Use(generalRateLimit(RateLimitConfig{
		RequestLimit: s.cfg.RateLimitRequestLimit,
		WindowSize:   s.cfg.RateLimitWindow,
	}))
	if s.validator != nil {
		r.Use(s.validator.Middleware)
	}

	r.Post("/rentals", s.handleReserve)
	r.Post("/rentals/{id}/start", s.handleStart)
	r.Post("/rentals/{id}/end", s.handleEnd)
	r.Post("/vehicles/{id}/telemetry", s.handleTelemetry)
	r.Post("/vehicles/{id}/gps-check", s.handleGPSCheck)
	r.Get("/audit/verify", s.handleAuditVerify)
	r.Get("/fleet/status", s.handleFleetStatus)

	log.WithComponent("httpapi").Info().Str("listen_addr", s.cfg.ListenAddr).Msg("façade routes registered")
	return r
}
