package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusPromoted HoldStatus = "promoted"
	HoldStatusExpired  HoldStatus = "expired"
	HoldStatusReleased HoldStatus = "released"
)

// IsTerminal reports whether the status admits no further transitions.
// Transitions are one-way: active -> {promoted, expired, released}.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldStatusPromoted || s == HoldStatusExpired || s == HoldStatusReleased
}

// Hold is an ephemeral claim on resource capacity created when an item
// enters a cart. It counts against capacity exactly like a booking until
// it expires or reaches another terminal state.
type Hold struct {
	ID             string
	ResourceID     string
	Interval       Interval
	Quantity       int
	Status         HoldStatus
	ExpiresAt      time.Time
	IdempotencyKey string
	CreatedAt      time.Time
}

// CountsAt reports whether the hold consumes capacity at instant now.
// Expiry is judged lazily here so capacity math never depends on the
// background sweep having run.
func (h Hold) CountsAt(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
