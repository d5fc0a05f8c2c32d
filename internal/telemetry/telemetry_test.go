package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
	"github.com/fleetrelay/fleetrelay/internal/telemetry"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (h *recordingHandler) HandleTelemetryEvent(ev telemetry.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) snapshot() []telemetry.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]telemetry.Event, len(h.events))
	copy(out, h.events)
	return out
}

func waitForEvents(t *testing.T, h *recordingHandler, n int) []telemetry.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := h.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", n, len(h.snapshot()))
	return nil
}

func TestWorker_CriticalTemperatureIsTerminal(t *testing.T) {
	h := &recordingHandler{}
	w := telemetry.NewWorker(10, h)
	go w.Run()
	defer w.Stop()

	v := model.NewVehicle("LON-ES002", model.KindScooter, "London", geo.Point{}, 90, 20, statemachine.InUse)
	w.Submit(v, model.TelemetrySample{TemperatureC: 75.0, BatteryPercent: 90, GPS: geo.Point{}})

	events := waitForEvents(t, h, 1)
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.CriticalTemperature, events[0].Type)
}

func TestWorker_HighTemperatureWarningContinuesToBattery(t *testing.T) {
	h := &recordingHandler{}
	w := telemetry.NewWorker(10, h)
	go w.Run()
	defer w.Stop()

	v := model.NewVehicle("V1", model.KindScooter, "London", geo.Point{}, 90, 20, statemachine.Maintenance)
	w.Submit(v, model.TelemetrySample{TemperatureC: 55.0, BatteryPercent: 10, GPS: geo.Point{}})

	events := waitForEvents(t, h, 2)
	require.Len(t, events, 2)
	assert.Equal(t, telemetry.HighTemperatureWarning, events[0].Type)
	assert.Equal(t, telemetry.LowBatteryWarning, events[1].Type)
}

func TestWorker_TheftAlarmOnlyWhenAvailableOrReserved(t *testing.T) {
	h := &recordingHandler{}
	w := telemetry.NewWorker(10, h)
	go w.Run()
	defer w.Stop()

	v := model.NewVehicle("MIL-B001", model.KindBicycle, "Milan", geo.Point{Lat: 45.4642, Lon: 9.1900}, 90, 20, statemachine.Available)
	w.Submit(v, model.TelemetrySample{TemperatureC: 20, BatteryPercent: 90, GPS: geo.Point{Lat: 45.4700, Lon: 9.1950}})

	events := waitForEvents(t, h, 1)
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.TheftAlarm, events[0].Type)
	assert.Greater(t, events[0].DistanceMeters, 500.0)
}

func TestWorker_NoTheftAlarmWhileInUse(t *testing.T) {
	h := &recordingHandler{}
	w := telemetry.NewWorker(10, h)
	go w.Run()

	v := model.NewVehicle("V2", model.KindBicycle, "Milan", geo.Point{Lat: 45.4642, Lon: 9.1900}, 90, 20, statemachine.InUse)
	w.Submit(v, model.TelemetrySample{TemperatureC: 20, BatteryPercent: 90, GPS: geo.Point{Lat: 45.4700, Lon: 9.1950}})

	// Stop drains the queue before returning, so the sample has been
	// classified by now; assert nothing was recorded for the in-use vehicle.
	w.Stop()
	assert.Empty(t, h.snapshot())
}

func TestWorker_StopDrainsRemainingItems(t *testing.T) {
	h := &recordingHandler{}
	w := telemetry.NewWorker(10, h)

	v := model.NewVehicle("V3", model.KindScooter, "Rome", geo.Point{}, 3, 20, statemachine.Maintenance)
	w.Submit(v, model.TelemetrySample{TemperatureC: 20, BatteryPercent: 3, GPS: geo.Point{}})

	go w.Run()
	w.Stop()

	events := h.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.CriticalBattery, events[0].Type)
}
