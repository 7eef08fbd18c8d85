package services

import (
	"context"
	"errors"
	"trip-console/internal/domain"
	"trip-console/internal/ports"
)

// Slot holds the last known result of one remote call.
//
// Value keeps the last successful result and is only ever replaced whole.
// Err is the failure of the most recent current-generation response, if any.
// Revision increases on every successful replacement.
type Slot[T any] struct {
	Value    T
	Err      error
	Loading  bool
	Revision uint64
}

// State is a consistent snapshot of the console session.
// The three slots are independent: any subset may be empty, loading or failed.
type State struct {
	Form       domain.TripForm
	InputErr   *domain.ValidationError
	Generation uint64
	Plan       Slot[*domain.RoutePlan]
	Simulation Slot[*domain.SimulationResult]
	Alerts     Slot[[]domain.Alert]
}

// Failure kinds reported by FailureKind.
const (
	FailureTimeout   = "timeout"
	FailureStatus    = "status"
	FailureMalformed = "malformed"
	FailureCancelled = "cancelled"
	FailureTransport = "transport"
)

// FailureKind classifies a slot error for display.
func FailureKind(err error) string {
	var se *ports.StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.As(err, &se):
		return FailureStatus
	case errors.Is(err, ports.ErrMalformedResponse):
		return FailureMalformed
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	default:
		return FailureTransport
	}
}
