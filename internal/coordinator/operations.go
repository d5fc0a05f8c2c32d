package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// Reserve implements spec §4.4's reserve operation.
func (c *Coordinator) Reserve(ctx context.Context, userID, vehicleID string) (*model.Rental, error) {
	_, finish := traceSpan(ctx, c.tracer, "reserve")

	if _, ok := c.lookupUser(userID); !ok {
		finish("not_found")
		return nil, errs.ErrNotFound
	}
	v, ok := c.lookupVehicle(vehicleID)
	if !ok {
		finish("not_found")
		return nil, errs.ErrNotFound
	}

	lock := c.locks.get(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	if v.State() != statemachine.Available {
		finish("not_available")
		return nil, &errs.NotAvailable{State: v.State()}
	}

	snap := v.ToSnapshot()
	c.setSnapshot(vehicleID, snap)

	if !v.TransitionTo(statemachine.Reserved) {
		finish("rolled_back")
		return nil, c.rollback(v, errs.ErrInvalidTransition)
	}

	rental := &model.Rental{
		ID:        uuid.NewString(),
		UserID:    userID,
		VehicleID: vehicleID,
		StartTime: time.Now().UTC(),
		Active:    true,
	}

	if err := c.persistVehicles(); err != nil {
		finish("rolled_back")
		return nil, c.rollback(v, err)
	}
	c.addRental(rental)
	if err := c.persistRentals(); err != nil {
		finish("rolled_back")
		return nil, c.rollback(v, err)
	}

	payload := audit.FormatPayload("vehicle", vehicleID, "user", userID, "rental", rental.ID)
	if _, err := c.appendAudit("VEHICLE_RESERVED", payload); err != nil {
		finish("rolled_back")
		return nil, c.rollback(v, err)
	}

	c.clearSnapshot(vehicleID)
	finish("success")
	return rental, nil
}

// Start implements spec §4.4's start operation.
func (c *Coordinator) Start(ctx context.Context, rentalID, vehicleID string) error {
	_, finish := traceSpan(ctx, c.tracer, "start")

	rental, ok := c.lookupRental(rentalID)
	if !ok {
		finish("not_found")
		return errs.ErrNotFound
	}
	v, ok := c.lookupVehicle(vehicleID)
	if !ok {
		finish("not_found")
		return errs.ErrNotFound
	}

	lock := c.locks.get(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	if v.State() != statemachine.Reserved {
		finish("not_available")
		return &errs.NotAvailable{State: v.State()}
	}

	sample := v.BuildTelemetrySample(time.Now().UTC())
	gate := c.policies.For(v.City)

	if err := gate.BeforeUnlock(v, sample, rental); err != nil {
		finish("policy_violation")
		return err
	}
	if err := gate.ValidateTransition(v, statemachine.InUse); err != nil {
		finish("policy_violation")
		return err
	}

	snap := v.ToSnapshot()
	c.setSnapshot(vehicleID, snap)

	if !v.TransitionTo(statemachine.InUse) {
		finish("rolled_back")
		return c.rollback(v, errs.ErrInvalidTransition)
	}

	if err := c.persistVehicles(); err != nil {
		finish("rolled_back")
		return c.rollback(v, err)
	}

	payload := audit.FormatPayload("vehicle", vehicleID, "rental", rentalID)
	if _, err := c.appendAudit("RENTAL_STARTED", payload); err != nil {
		finish("rolled_back")
		return c.rollback(v, err)
	}

	c.clearSnapshot(vehicleID)
	finish("success")
	return nil
}

// End implements spec §4.4's end operation.
func (c *Coordinator) End(ctx context.Context, rentalID, vehicleID string) (*model.Payment, error) {
	_, finish := traceSpan(ctx, c.tracer, "end")

	rental, ok := c.lookupRental(rentalID)
	if !ok {
		finish("not_found")
		return nil, errs.ErrNotFound
	}
	v, ok := c.lookupVehicle(vehicleID)
	if !ok {
		finish("not_found")
		return nil, errs.ErrNotFound
	}
	if !rental.Active {
		finish("already_ended")
		return nil, errs.ErrAlreadyEnded
	}

	lock := c.locks.get(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	if v.State() != statemachine.InUse {
		finish("not_available")
		return nil, &errs.NotAvailable{State: v.State()}
	}

	snap := v.ToSnapshot()
	c.setSnapshot(vehicleID, snap)

	payment, err := c.completeRental(v, rental)
	if err != nil {
		finish("rolled_back")
		return nil, c.rollback(v, err)
	}

	payload := audit.FormatPayload("vehicle", vehicleID, "rental", rentalID)
	if _, err := c.appendAudit("RENTAL_ENDED", payload); err != nil {
		finish("rolled_back")
		return nil, c.rollback(v, err)
	}
	paymentPayload := audit.FormatPayload("vehicle", vehicleID, "rental", rentalID, "payment", payment.ID, "total", fmt.Sprintf("%.2f", payment.Total))
	if _, err := c.appendAudit("PAYMENT_PROCESSED", paymentPayload); err != nil {
		finish("rolled_back")
		return nil, c.rollback(v, err)
	}

	c.clearSnapshot(vehicleID)
	finish("success")
	return &payment, nil
}

// completeRental performs the shared, non-audit mutation steps of ending a
// rental (spec §4.4 end steps 2-5): mark the rental ended, compute the
// fare, transition the vehicle, and persist. The caller decides which
// audit entries to append afterwards, since the regular end path and the
// critical-battery auto-end path (spec §4.6) use different vocabularies.
func (c *Coordinator) completeRental(v *model.Vehicle, rental *model.Rental) (model.Payment, error) {
	now := time.Now().UTC()
	rental.End(now)

	gate := c.policies.For(v.City)
	surcharge := gate.AfterTrip(rental, baseFareAmount)

	description := fmt.Sprintf("%s trip", v.City)
	if surcharge > 0 {
		description += fmt.Sprintf(" with surcharge %s", model.FormatAmount(surcharge))
	}
	payment := model.NewPayment(uuid.NewString(), rental.ID, baseFareAmount, surcharge, description)

	if !v.TransitionTo(statemachine.Available) {
		return model.Payment{}, errs.ErrInvalidTransition
	}

	if err := c.persistRentals(); err != nil {
		return model.Payment{}, err
	}
	if err := c.paymentStore.Append(payment); err != nil {
		return model.Payment{}, err
	}
	if err := c.persistVehicles(); err != nil {
		return model.Payment{}, err
	}

	return payment, nil
}

// CheckGPS implements spec §4.4's check_gps operation.
func (c *Coordinator) CheckGPS(ctx context.Context, vehicleID string, gps geo.Point) bool {
	_, finish := traceSpan(ctx, c.tracer, "check_gps")

	v, ok := c.lookupVehicle(vehicleID)
	if !ok {
		finish("not_found")
		return false
	}

	lock := c.locks.get(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	gate := c.policies.For(v.City)
	if err := gate.IsAllowed(v, gps); err != nil {
		c.emergencyLockLocked(v, err.Error())
		finish("policy_violation")
		return false
	}
	finish("success")
	return true
}

// SubmitTelemetry implements spec §4.4's submit_telemetry ingress. It
// enqueues the sample for asynchronous processing and returns once the
// bounded queue has accepted it (blocking if full, per spec §5 backpressure).
func (c *Coordinator) SubmitTelemetry(ctx context.Context, vehicleID string, sample model.TelemetrySample) error {
	_, finish := traceSpan(ctx, c.tracer, "submit_telemetry")

	v, ok := c.lookupVehicle(vehicleID)
	if !ok {
		finish("not_found")
		return errs.ErrNotFound
	}
	c.telemetry.Submit(v, sample)
	finish("success")
	return nil
}

// VerifyAuditChain implements spec §4.4's verify_audit_chain operation.
func (c *Coordinator) VerifyAuditChain() (ok bool, brokenSeqID uint64) {
	return c.auditLog.VerifyChain()
}

// AuditEntries returns a copy of the full audit chain, oldest first. Used
// by reporting and tests; not one of the stable coordinator operations.
func (c *Coordinator) AuditEntries() []audit.Entry {
	return c.auditLog.Entries()
}

// Vehicles returns a snapshot slice of every known vehicle, for the fleet
// status report and the HTTP façade — not one of the stable coordinator
// operations, and never used by the transactional path itself.
func (c *Coordinator) Vehicles() []*model.Vehicle {
	return c.snapshotVehicles()
}

// Rentals returns a snapshot slice of every known rental, for the fleet
// status report.
func (c *Coordinator) Rentals() []*model.Rental {
	return c.snapshotRentals()
}

// LookupRental returns the rental for id, if known.
func (c *Coordinator) LookupRental(id string) (*model.Rental, bool) {
	return c.lookupRental(id)
}

// StopTelemetryMonitor implements spec §4.4's stop_telemetry_monitor
// operation: it signals the telemetry worker to stop and blocks until the
// queue has fully drained (spec §4.5 shutdown discipline).
func (c *Coordinator) StopTelemetryMonitor() {
	c.telemetry.Stop()
}

// emergencyLockLocked implements the emergency-lock procedure (spec §4.7).
// Callers must already hold the affected vehicle's mutex.
func (c *Coordinator) emergencyLockLocked(v *model.Vehicle, reason string) {
	if !v.TransitionTo(statemachine.EmergencyLock) {
		return
	}
	if err := c.persistVehicles(); err != nil {
		log.WithVehicle(v.ID).Error().Err(err).Msg("failed to persist vehicle during emergency lock")
	}
	payload := audit.FormatPayload("vehicle", v.ID, "reason", reason)
	if _, err := c.appendAudit("EMERGENCY_LOCK", payload); err != nil {
		log.WithVehicle(v.ID).Error().Err(err).Msg("failed to append emergency lock audit entry")
	}
}
