package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a durable reservation created by promoting a hold at checkout.
type Booking struct {
	ID             string
	ResourceID     string
	HoldID         string
	Interval       Interval
	Quantity       int
	Status         BookingStatus
	IdempotencyKey string
	CreatedAt      time.Time
}

// CountsAgainstCapacity reports whether the booking consumes units.
// Cancelled bookings stop counting the moment they are cancelled.
func (b Booking) CountsAgainstCapacity() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Slot is a candidate bookable interval surfaced to customers, with the
// number of units still available over its whole span.
type Slot struct {
	Interval       Interval
	AvailableUnits int
}
