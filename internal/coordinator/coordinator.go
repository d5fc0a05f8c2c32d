// Package coordinator implements the transactional core described in the
// fleet mobility system: the interlock between per-vehicle state, pluggable
// city policy gates, the asynchronous telemetry pipeline, and the
// checksum-chained audit log (spec §4). A Coordinator is a long-lived
// service object, constructed once and shut down explicitly — it owns the
// authoritative in-memory maps and the background telemetry worker.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/eventbus"
	"github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/metrics"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/policy"
	"github.com/fleetrelay/fleetrelay/internal/telemetry"
	"github.com/fleetrelay/fleetrelay/internal/tracing"
)

// baseFareAmount is the fixed demo rate approximating a 20-minute trip at
// the reference tariff (spec §4.4 step 3, an explicit open question the
// spec resolves by treating the constant as authoritative).
const baseFareAmount = 6.00

// VehicleStore, RentalStore, PaymentStore and UserStore are the narrow
// persistence interfaces the coordinator depends on; internal/store's CSV
// adapters satisfy them, and tests can supply in-memory fakes.
type VehicleStore interface {
	LoadAll() ([]*model.Vehicle, error)
	SaveAll([]*model.Vehicle) error
}

type RentalStore interface {
	LoadAll() ([]*model.Rental, error)
	SaveAll([]*model.Rental) error
}

type PaymentStore interface {
	LoadAll() ([]model.Payment, error)
	Append(model.Payment) error
}

type UserStore interface {
	LoadAll() ([]model.User, error)
}

// Deps bundles everything a Coordinator needs to construct. Stores, the
// audit log, and the policy registry are required; Events and AuditIndexer
// may be nil, and a non-positive TelemetryQueueCapacity falls back to
// telemetry.DefaultQueueCapacity.
type Deps struct {
	Vehicles VehicleStore
	Rentals  RentalStore
	Payments PaymentStore
	Users    UserStore
	Audit    *audit.Log
	Policies *policy.Registry

	// Events fans out telemetry/audit events externally. Defaults to
	// eventbus.NoopPublisher when left nil, so most callers can omit it.
	Events eventbus.Publisher

	// AuditIndexer keeps the badger seq/checksum index (internal/auditindex)
	// in lockstep with every newly appended entry. Left nil, the coordinator
	// still runs fine — the index is only ever consulted through its own
	// lookup API, rebuildable at any time from the CSV log.
	AuditIndexer AuditIndexer

	TelemetryQueueCapacity int
}

// AuditIndexer is the narrow write surface of *auditindex.Index the
// coordinator depends on, so it can index every newly appended entry
// without importing auditindex directly.
type AuditIndexer interface {
	Put(e audit.Entry, position int) error
}

// Coordinator is the authoritative, process-wide owner of fleet state.
type Coordinator struct {
	vehicleStore VehicleStore
	rentalStore  RentalStore
	paymentStore PaymentStore
	userStore    UserStore

	auditLog   *audit.Log
	auditIndex AuditIndexer
	policies   *policy.Registry

	mu       sync.RWMutex
	vehicles map[string]*model.Vehicle
	rentals  map[string]*model.Rental
	users    map[string]model.User

	locks vehicleLocks

	snapMu    sync.Mutex
	snapshots map[string]model.Snapshot

	telemetry *telemetry.Worker
	tracer    trace.Tracer
	events    eventbus.Publisher
}

// vehicleLocks is the lazily-populated concurrent map from vehicle id to
// its dedicated mutex (spec §5, §9's "natural expression" note).
type vehicleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *vehicleLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// New constructs a Coordinator, loading vehicles, rentals, and users from
// their stores. The telemetry worker is created but not started; call Run
// to start draining telemetry in the background.
func New(deps Deps) (*Coordinator, error) {
	vehicles, err := deps.Vehicles.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading vehicles: %w", err)
	}
	rentals, err := deps.Rentals.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading rentals: %w", err)
	}
	users, err := deps.Users.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	events := deps.Events
	if events == nil {
		events = eventbus.NoopPublisher{}
	}

	c := &Coordinator{
		vehicleStore: deps.Vehicles,
		rentalStore:  deps.Rentals,
		paymentStore: deps.Payments,
		auditLog:     deps.Audit,
		auditIndex:   deps.AuditIndexer,
		policies:     deps.Policies,
		userStore:    deps.Users,
		vehicles:     make(map[string]*model.Vehicle, len(vehicles)),
		rentals:      make(map[string]*model.Rental, len(rentals)),
		users:        make(map[string]model.User, len(users)),
		snapshots:    make(map[string]model.Snapshot),
		tracer:       tracing.Tracer("fleetrelay/coordinator"),
		events:       events,
	}
	for _, v := range vehicles {
		c.vehicles[v.ID] = v
	}
	for _, r := range rentals {
		c.rentals[r.ID] = r
	}
	for _, u := range users {
		c.users[u.ID] = u
	}
	c.telemetry = telemetry.NewWorker(deps.TelemetryQueueCapacity, c)
	return c, nil
}

// Run starts the background telemetry worker. Call in its own goroutine.
func (c *Coordinator) Run() {
	c.telemetry.Run()
}

func (c *Coordinator) lookupVehicle(id string) (*model.Vehicle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vehicles[id]
	return v, ok
}

func (c *Coordinator) lookupRental(id string) (*model.Rental, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rentals[id]
	return r, ok
}

func (c *Coordinator) lookupUser(id string) (model.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

func (c *Coordinator) addRental(r *model.Rental) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rentals[r.ID] = r
}

func (c *Coordinator) activeRentalForVehicle(vehicleID string) (*model.Rental, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rentals {
		if r.VehicleID == vehicleID && r.Active {
			return r, true
		}
	}
	return nil, false
}

func (c *Coordinator) snapshotVehicles() []*model.Vehicle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Vehicle, 0, len(c.vehicles))
	for _, v := range c.vehicles {
		out = append(out, v)
	}
	return out
}

func (c *Coordinator) snapshotRentals() []*model.Rental {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Rental, 0, len(c.rentals))
	for _, r := range c.rentals {
		out = append(out, r)
	}
	return out
}

func (c *Coordinator) persistVehicles() error {
	return c.vehicleStore.SaveAll(c.snapshotVehicles())
}

func (c *Coordinator) persistRentals() error {
	return c.rentalStore.SaveAll(c.snapshotRentals())
}

// setSnapshot and clearSnapshot manage the rollback snapshot table (spec
// §4.8). Callers already hold the affected vehicle's mutex.
func (c *Coordinator) setSnapshot(vehicleID string, snap model.Snapshot) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.snapshots[vehicleID] = snap
}

func (c *Coordinator) clearSnapshot(vehicleID string) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	delete(c.snapshots, vehicleID)
}

// rollback forces vehicleID's vehicle back to its snapshot state, clears
// the snapshot, and wraps cause in RolledBack. It never itself appends an
// audit entry (spec §4.8 — avoid cascading failure on a failing subsystem).
func (c *Coordinator) rollback(v *model.Vehicle, cause error) error {
	c.snapMu.Lock()
	snap, ok := c.snapshots[v.ID]
	delete(c.snapshots, v.ID)
	c.snapMu.Unlock()

	if ok {
		v.ForceState(snap.State)
	}
	log.WithVehicle(v.ID).Warn().Err(cause).Msg("operation rolled back")
	return &errs.RolledBack{Cause: cause}
}

// RecoverFromAuditFailure implements the audit-failure rollback scope (spec
// §4.8): every vehicle with a live snapshot whose current state differs
// from it is forced back, and the table is cleared. Intended for operator
// recovery after the audit subsystem itself failed, not called by any
// regular operation.
func (c *Coordinator) RecoverFromAuditFailure() {
	c.snapMu.Lock()
	toRestore := make(map[string]model.Snapshot, len(c.snapshots))
	for id, snap := range c.snapshots {
		toRestore[id] = snap
	}
	c.snapshots = make(map[string]model.Snapshot)
	c.snapMu.Unlock()

	for id, snap := range toRestore {
		v, ok := c.lookupVehicle(id)
		if !ok {
			continue
		}
		lock := c.locks.get(id)
		lock.Lock()
		if v.State() != snap.State {
			v.ForceState(snap.State)
		}
		lock.Unlock()
	}
}

// appendAudit appends an audit entry, classifies the result for metrics,
// and fans it out to external subscribers (spec §4.3's audit log plus the
// domain-stack eventbus wiring). Publish failures are logged, never
// propagated — a subscriber outage must not block the audit chain itself.
func (c *Coordinator) appendAudit(eventType, payload string) (audit.Entry, error) {
	entry, err := c.auditLog.CreateEntry(eventType, payload)
	if err != nil {
		metrics.IncAuditWriteFailure()
		return audit.Entry{}, err
	}
	chainLen := c.auditLog.Len()
	metrics.SetAuditChainLength(chainLen)
	if c.auditIndex != nil {
		if err := c.auditIndex.Put(entry, chainLen-1); err != nil {
			log.WithComponent("coordinator").Warn().Err(err).Uint64("seq_id", entry.SeqID).Msg("audit index update failed; index will lag until next rebuild")
		}
	}
	if err := c.events.PublishAuditEntry(context.Background(), eventbus.AuditMessageFromEntry(entry)); err != nil {
		log.WithComponent("coordinator").Warn().Err(err).Str("event_type", eventType).Msg("audit event publish failed")
	}
	return entry, nil
}

func traceSpan(ctx context.Context, tracer trace.Tracer, operation string) (context.Context, func(outcome string)) {
	start := time.Now()
	spanCtx, span := tracer.Start(ctx, operation)
	return spanCtx, func(outcome string) {
		span.End()
		metrics.ObserveOperation(operation, outcome, time.Since(start).Seconds())
	}
}
