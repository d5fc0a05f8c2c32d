// Package telemetry implements the coordinator's asynchronous telemetry
// pipeline: a bounded ingress queue, a single-consumer worker that applies
// samples to vehicles and classifies them, and a typed event handed back to
// the coordinator for reaction (spec §4.5). The reference implementation
// this is modelled on dispatches classification results through a closure
// callback wired back into the consuming object, which creates a cyclic
// reference; here the worker instead calls a small EventHandler interface
// supplied at construction, same effect without the cycle.
package telemetry

import (
	"sync"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// DefaultQueueCapacity is the bounded ingress queue size (spec §4.5).
const DefaultQueueCapacity = 50000

// Thresholds used by classify, named so they read at the call site.
const (
	criticalTemperatureC = 60.0
	highTemperatureC     = 50.0
	criticalBatteryPct   = 5
	lowBatteryPct        = 15
	theftAlarmMeters     = 10.0
)

// EventType is the stable vocabulary of telemetry classification outcomes.
type EventType string

const (
	CriticalTemperature    EventType = "CRITICAL_TEMPERATURE"
	HighTemperatureWarning EventType = "HIGH_TEMPERATURE_WARNING"
	CriticalBattery        EventType = "CRITICAL_BATTERY"
	LowBatteryWarning      EventType = "LOW_BATTERY_WARNING"
	TheftAlarm             EventType = "THEFT_ALARM"
)

// Event is a single classification outcome for one vehicle/sample pair.
type Event struct {
	Type           EventType
	Vehicle        *model.Vehicle
	Sample         model.TelemetrySample
	DistanceMeters float64 // meaningful only for TheftAlarm
}

// EventHandler reacts to classified events. Implementations are expected to
// take the affected vehicle's own mutex before mutating it further (spec
// §4.6 — "executed under the affected vehicle's mutex").
type EventHandler interface {
	HandleTelemetryEvent(ev Event)
}

// QueueItem is what producers enqueue: a vehicle, the new sample, and the
// vehicle's location snapshot taken at submission time. Capturing the
// previous location here rather than at classification time keeps
// classification deterministic even if a caller inspects the vehicle again
// before the worker gets to it.
type QueueItem struct {
	Vehicle          *model.Vehicle
	Sample           model.TelemetrySample
	PreviousLocation geo.Point
}

// Worker is the single consumer draining the bounded queue.
type Worker struct {
	queue   chan QueueItem
	handler EventHandler

	stop     chan struct{}
	done     chan struct{}
	startOne sync.Once
}

// NewWorker constructs a worker with the given queue capacity and handler.
func NewWorker(capacity int, handler EventHandler) *Worker {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Worker{
		queue:   make(chan QueueItem, capacity),
		handler: handler,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Submit enqueues a sample for vehicle, blocking if the queue is full
// (spec §5 backpressure). The vehicle's current location is captured here
// as the "previous location" for the eventual classification.
func (w *Worker) Submit(v *model.Vehicle, sample model.TelemetrySample) {
	w.queue <- QueueItem{Vehicle: v, Sample: sample, PreviousLocation: v.Location()}
}

// Run drains the queue until Stop is called. It is meant to run in its own
// goroutine; NewWorker's caller owns that goroutine's lifecycle.
func (w *Worker) Run() {
	defer close(w.done)
	for {
		select {
		case item := <-w.queue:
			w.process(item)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain empties whatever remains in the queue without blocking, so a
// shutdown never silently discards already-accepted telemetry.
func (w *Worker) drain() {
	for {
		select {
		case item := <-w.queue:
			w.process(item)
		default:
			return
		}
	}
}

// Stop signals Run to stop and blocks until the worker has finished
// draining (spec §4.5 shutdown discipline). Safe to call once.
func (w *Worker) Stop() {
	w.startOne.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Worker) process(item QueueItem) {
	item.Vehicle.ApplyTelemetry(item.Sample)

	for _, ev := range classify(item.Vehicle, item.Sample, item.PreviousLocation) {
		ev.Vehicle = item.Vehicle
		log.WithVehicle(item.Vehicle.ID).Debug().Str("event_type", string(ev.Type)).Msg("telemetry classified")
		if w.handler != nil {
			w.handler.HandleTelemetryEvent(ev)
		}
	}
}

// classify implements spec §4.5 step 3: first match wins within each
// category, and the function stops appending once a terminal event fires.
func classify(v *model.Vehicle, sample model.TelemetrySample, previous geo.Point) []Event {
	var events []Event

	if sample.TemperatureC > criticalTemperatureC {
		return append(events, Event{Type: CriticalTemperature, Sample: sample})
	}
	if sample.TemperatureC > highTemperatureC {
		events = append(events, Event{Type: HighTemperatureWarning, Sample: sample})
	}

	if sample.BatteryPercent <= criticalBatteryPct {
		return append(events, Event{Type: CriticalBattery, Sample: sample})
	}
	if sample.BatteryPercent <= lowBatteryPct {
		events = append(events, Event{Type: LowBatteryWarning, Sample: sample})
	}

	switch v.State() {
	case statemachine.Available, statemachine.Reserved:
		if d := geo.DistanceMeters(previous, sample.GPS); d > theftAlarmMeters {
			events = append(events, Event{Type: TheftAlarm, Sample: sample, DistanceMeters: d})
		}
	}

	return events
}
