package domain

import "errors"

var (
	ErrResourceNotFound       = errors.New("resource not found")
	ErrResourceInactive       = errors.New("resource inactive")
	ErrOutOfSchedule          = errors.New("interval outside operating hours")
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrHoldAlreadyTerminal    = errors.New("hold already terminal")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidInterval        = errors.New("invalid interval")
	ErrInvalidSchedule        = errors.New("invalid schedule")
	ErrInvalidResourceKind    = errors.New("invalid resource kind")
	ErrInvalidUnitCount       = errors.New("invalid unit count")
	ErrResourceNameRequired   = errors.New("resource name required")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrInvalidID              = errors.New("invalid id")
)
