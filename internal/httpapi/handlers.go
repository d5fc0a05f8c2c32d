package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/report"
)

// coordinatorAPI is the subset of *coordinator.Coordinator the façade
// depends on, narrow enough that handler tests can supply a fake.
type coordinatorAPI interface {
	Reserve(ctx context.Context, userID, vehicleID string) (*model.Rental, error)
	Start(ctx context.Context, rentalID, vehicleID string) error
	End(ctx context.Context, rentalID, vehicleID string) (*model.Payment, error)
	SubmitTelemetry(ctx context.Context, vehicleID string, sample model.TelemetrySample) error
	CheckGPS(ctx context.Context, vehicleID string, gps geo.Point) bool
	VerifyAuditChain() (bool, uint64)
}

// reportAPI is the subset of *report.Store the façade depends on for the
// fleet status endpoint.
type reportAPI interface {
	VehicleReportRows(ctx context.Context) ([]report.VehicleReportRow, error)
}

type reserveRequest struct {
	UserID    string `json:"user_id"`
	VehicleID string `json:"vehicle_id"`
}

type vehicleRefRequest struct {
	VehicleID string `json:"vehicle_id"`
}

type telemetryRequest struct {
	Timestamp      time.Time `json:"timestamp"`
	GPS            gpsPoint  `json:"gps"`
	BatteryPercent int       `json:"battery_percent"`
	TemperatureC   float64   `json:"temperature_c"`
	HelmetPresent  bool      `json:"helmet_present"`
}

type gpsPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type rentalResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	VehicleID string    `json:"vehicle_id"`
	StartTime time.Time `json:"start_time"`
	Active    bool      `json:"active"`
}

type paymentResponse struct {
	ID          string  `json:"id"`
	RentalID    string  `json:"rental_id"`
	BaseAmount  float64 `json:"base_amount"`
	Surcharges  float64 `json:"surcharges"`
	Total       float64 `json:"total"`
	Description string  `json:"description"`
}

// handleReserve implements POST /rentals.
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.VehicleID == "" {
		respondError(w, r, http.StatusBadRequest, errBadInput)
		return
	}
	if s.reservationThrottle != nil && !s.reservationThrottle.Allow(req.UserID) {
		respondError(w, r, http.StatusTooManyRequests, &APIError{
			Code:    "RESERVATION_THROTTLED",
			Message: "too many reservation attempts, slow down",
		})
		return
	}

	rental, err := s.coord.Reserve(r.Context(), req.UserID, req.VehicleID)
	if err != nil {
		coordinatorError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rentalToResponse(rental))
}

// handleStart implements POST /rentals/{id}/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	rentalID := chi.URLParam(r, "id")
	var req vehicleRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VehicleID == "" {
		respondError(w, r, http.StatusBadRequest, errBadInput)
		return
	}
	if err := s.coord.Start(r.Context(), rentalID, req.VehicleID); err != nil {
		coordinatorError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// handleEnd implements POST /rentals/{id}/end.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	rentalID := chi.URLParam(r, "id")
	var req vehicleRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VehicleID == "" {
		respondError(w, r, http.StatusBadRequest, errBadInput)
		return
	}
	payment, err := s.coord.End(r.Context(), rentalID, req.VehicleID)
	if err != nil {
		coordinatorError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, paymentResponse{
		ID:          payment.ID,
		RentalID:    payment.RentalID,
		BaseAmount:  payment.BaseAmount,
		Surcharges:  payment.Surcharges,
		Total:       payment.Total,
		Description: payment.Description,
	})
}

// handleTelemetry implements POST /vehicles/{id}/telemetry.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")
	var req telemetryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	sample := model.TelemetrySample{
		Timestamp:      ts,
		GPS:            geo.Point{Lat: req.GPS.Lat, Lon: req.GPS.Lon},
		BatteryPercent: req.BatteryPercent,
		TemperatureC:   req.TemperatureC,
		HelmetPresent:  req.HelmetPresent,
	}
	if err := s.coord.SubmitTelemetry(r.Context(), vehicleID, sample); err != nil {
		coordinatorError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleGPSCheck implements POST /vehicles/{id}/gps-check.
func (s *Server) handleGPSCheck(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")
	var req gpsPoint
	if !decodeJSON(w, r, &req) {
		return
	}
	allowed := s.coord.CheckGPS(r.Context(), vehicleID, geo.Point{Lat: req.Lat, Lon: req.Lon})
	respondJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

// handleAuditVerify implements GET /audit/verify.
func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	ok, brokenSeqID := s.coord.VerifyAuditChain()
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":            ok,
		"broken_seq_id": brokenSeqID,
	})
}

// handleFleetStatus implements GET /fleet/status, backed by the SQLite
// read-model mirror (internal/report) rather than the coordinator's own
// maps so a reporting burst never competes with the transactional path
// for the coordinator's lock.
func (s *Server) handleFleetStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.report.VehicleReportRows(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, errBadInput)
		return false
	}
	return true
}

func rentalToResponse(r *model.Rental) rentalResponse {
	return rentalResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		VehicleID: r.VehicleID,
		StartTime: r.StartTime,
		Active:    r.Active,
	}
}
