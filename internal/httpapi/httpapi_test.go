package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/coordinator"
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/httpapi"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/policy"
	"github.com/fleetrelay/fleetrelay/internal/report"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
	"github.com/fleetrelay/fleetrelay/internal/store"
)

// newTestServer builds a real coordinator and SQLite report mirror over a
// temp dir, seeded with one vehicle and one user, and returns a Server
// wired with production-shaped (but lenient) rate limits so tests don't
// trip them by accident.
func newTestServer(t *testing.T) (*httpapi.Server, *coordinator.Coordinator) {
	t.Helper()
	dir := t.TempDir()

	vehicleStore := store.NewVehicleStore(filepath.Join(dir, "vehicles.csv"))
	vehicle := model.NewVehicle("LON-ES001", model.KindScooter, "London", geo.Point{Lat: 51.5074, Lon: -0.1278}, 90, 20, statemachine.Available)
	require.NoError(t, vehicleStore.SaveAll([]*model.Vehicle{vehicle}))

	rentalStore := store.NewRentalStore(filepath.Join(dir, "rentals.csv"))
	require.NoError(t, rentalStore.SaveAll(nil))

	userStore := store.NewUserStore(filepath.Join(dir, "users.csv"))
	require.NoError(t, userStore.SaveAll([]model.User{{ID: "U001", Name: "Ada"}}))

	paymentStore := store.NewPaymentStore(filepath.Join(dir, "payments.csv"))
	auditLog, err := audit.Open(store.NewAuditStore(filepath.Join(dir, "audit_log.csv")))
	require.NoError(t, err)

	reg := policy.NewRegistry(map[string]policy.Gate{"London": policy.London{}})

	c, err := coordinator.New(coordinator.Deps{
		Vehicles:               vehicleStore,
		Rentals:                rentalStore,
		Payments:               paymentStore,
		Users:                  userStore,
		Audit:                  auditLog,
		Policies:               reg,
		TelemetryQueueCapacity: 16,
	})
	require.NoError(t, err)
	go c.Run()
	t.Cleanup(c.StopTelemetryMonitor)

	db, err := report.Open(filepath.Join(dir, "report.db"), report.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	rpt := report.NewStore(db)
	require.NoError(t, rpt.RefreshVehicles(context.Background(), c.Vehicles()))

	cfg := httpapi.DefaultConfig()
	cfg.ReservationRPS = 1000
	cfg.ReservationBurst = 1000
	cfg.RateLimitRequestLimit = 10000

	srv := httpapi.NewServer(cfg, c, rpt, nil)
	return srv, c
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_ReserveStartEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/rentals", map[string]string{
		"user_id": "U001", "vehicle_id": "LON-ES001",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var rental struct {
		ID        string `json:"id"`
		VehicleID string `json:"vehicle_id"`
		Active    bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rental))
	require.True(t, rental.Active)
	require.Equal(t, "LON-ES001", rental.VehicleID)

	rec = doJSON(t, router, http.MethodPost, "/rentals/"+rental.ID+"/start", map[string]string{
		"vehicle_id": "LON-ES001",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/rentals/"+rental.ID+"/end", map[string]string{
		"vehicle_id": "LON-ES001",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payment struct {
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payment))
	require.Greater(t, payment.Total, 0.0)
}

func TestServer_ReserveUnknownVehicleReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/rentals", map[string]string{
		"user_id": "U001", "vehicle_id": "NOPE",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr struct {
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	require.Equal(t, "NOT_FOUND", apiErr.Code)
	require.NotEmpty(t, apiErr.RequestID)
}

func TestServer_ReserveMissingFieldsReturnsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/rentals", map[string]string{"user_id": "U001"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GPSCheck(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/vehicles/LON-ES001/gps-check", map[string]float64{
		"lat": 51.5074, "lon": -0.1278,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Allowed bool `json:"allowed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Allowed)
}

func TestServer_AuditVerify(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/audit/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.OK)
}

func TestServer_FleetStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/fleet/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		VehicleID string `json:"vehicle_id"`
		City      string `json:"city"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "LON-ES001", rows[0].VehicleID)
}

func TestServer_ResponseCarriesRequestID(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/audit/verify", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
