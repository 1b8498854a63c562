package app

import (
	"context"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/clock"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	GetBookingByHoldID(ctx context.Context, holdID string) (*domain.Booking, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error
	GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
}

// BookingService promotes holds into durable bookings at checkout completion
// and handles the cancellation hook used by refund workflows.
type BookingService struct {
	repo  BookingRepository
	clock clock.Clock
}

func NewBookingService(repo BookingRepository, clk clock.Clock) *BookingService {
	return &BookingService{
		repo:  repo,
		clock: clk,
	}
}

type PromoteInput struct {
	HoldID         string
	IdempotencyKey string
}

type PromoteResult struct {
	Booking domain.Booking
	Created bool
}

// Promote atomically creates a booking with the hold's resource, interval
// and quantity, and flips the hold to promoted. The booking starts counting
// against capacity in the same transaction the hold stops, so capacity
// accounting stays continuous with no double count and no gap.
func (s *BookingService) Promote(ctx context.Context, in PromoteInput) (PromoteResult, error) {
	if in.IdempotencyKey == "" {
		return PromoteResult{}, domain.ErrIdempotencyKeyRequired
	}

	now := s.clock.Now()
	var result PromoteResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, in.HoldID)
		if err != nil {
			return err
		}

		existing, err := s.repo.GetBookingByHoldID(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IdempotencyKey == in.IdempotencyKey {
				result = PromoteResult{Booking: *existing, Created: false}
				return nil
			}
			return domain.ErrHoldAlreadyTerminal
		}

		if hold.Status.IsTerminal() {
			return domain.ErrHoldAlreadyTerminal
		}
		if !hold.ExpiresAt.After(now) {
			// Overdue but not yet swept: record the expiry while we hold the lock.
			if err := s.repo.UpdateHoldStatus(txCtx, in.HoldID, domain.HoldStatusExpired); err != nil {
				return err
			}
			return domain.ErrHoldAlreadyTerminal
		}

		booking := domain.Booking{
			ID:             newID(),
			ResourceID:     hold.ResourceID,
			HoldID:         hold.ID,
			Interval:       hold.Interval,
			Quantity:       hold.Quantity,
			Status:         domain.BookingStatusConfirmed,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
		}

		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			// Re-check for the same idempotency key when a concurrent promote wins the race.
			if err == domain.ErrHoldAlreadyTerminal {
				existing, err := s.repo.GetBookingByHoldID(txCtx, in.HoldID)
				if err != nil {
					return err
				}
				if existing != nil && existing.IdempotencyKey == in.IdempotencyKey {
					result = PromoteResult{Booking: *existing, Created: false}
					return nil
				}
			}
			return err
		}
		if err := s.repo.UpdateHoldStatus(txCtx, in.HoldID, domain.HoldStatusPromoted); err != nil {
			return err
		}

		result = PromoteResult{Booking: booking, Created: true}
		return nil
	})
	if err != nil {
		return PromoteResult{}, err
	}
	return result, nil
}

// CancelBooking flips a booking to cancelled, after which it immediately
// stops counting against capacity. Cancelling an already-cancelled booking
// is a no-op.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == domain.BookingStatusCancelled {
			return nil
		}
		return s.repo.UpdateBookingStatus(txCtx, bookingID, domain.BookingStatusCancelled)
	})
}
