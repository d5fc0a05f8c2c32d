// Package errs defines the coordinator's error taxonomy (spec §7). Kinds
// that carry no data are plain sentinels; kinds that carry data (the
// offending state, a policy's reason, a rollback cause) are small typed
// errors, matching the mix the teacher uses across its daemon and config
// packages (sentinel errors.New values alongside ad-hoc structs satisfying
// error).
package errs

import (
	"errors"
	"fmt"

	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// ErrNotFound is returned when a user, vehicle, or rental id is unknown.
var ErrNotFound = errors.New("not found")

// ErrAlreadyEnded is returned when end is requested on an inactive rental.
var ErrAlreadyEnded = errors.New("rental already ended")

// ErrAuditWriteFailure is returned when the audit log rejects an append.
var ErrAuditWriteFailure = errors.New("audit write failure")

// ErrInvalidTransition is the internal signal for an illegal state machine
// transition; callers never see it directly — the coordinator always
// converts it into RolledBack before returning (spec §7).
var ErrInvalidTransition = errors.New("invalid state transition")

// NotAvailable reports that a vehicle's state precludes the requested operation.
type NotAvailable struct {
	State statemachine.State
}

func (e *NotAvailable) Error() string {
	return fmt.Sprintf("vehicle not available: state=%s", e.State)
}

// PolicyViolation carries the reason a city policy gate refused an operation.
type PolicyViolation struct {
	Reason string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("policy violation: %s", e.Reason)
}

// RolledBack reports that an operation failed mid-commit and in-memory
// state was restored to the pre-operation snapshot.
type RolledBack struct {
	Cause error
}

func (e *RolledBack) Error() string {
	return fmt.Sprintf("rolled back: %v", e.Cause)
}

func (e *RolledBack) Unwrap() error {
	return e.Cause
}

// AsNotAvailable reports whether err is a *NotAvailable and returns it.
func AsNotAvailable(err error) (*NotAvailable, bool) {
	var na *NotAvailable
	if errors.As(err, &na) {
		return na, true
	}
	return nil, false
}

// AsPolicyViolation reports whether err is a *PolicyViolation and returns it.
func AsPolicyViolation(err error) (*PolicyViolation, bool) {
	var pv *PolicyViolation
	if errors.As(err, &pv) {
		return pv, true
	}
	return nil, false
}
