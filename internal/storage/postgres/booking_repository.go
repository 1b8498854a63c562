package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT id, resource_id, starts_at, ends_at, quantity, status, expires_at, idempotency_key, created_at
FROM holds
WHERE id = $1
FOR UPDATE`

	var h domain.Hold
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.ResourceID, &h.Interval.Start, &h.Interval.End, &h.Quantity, &h.Status, &h.ExpiresAt, &h.IdempotencyKey, &h.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *BookingRepository) GetBookingByHoldID(ctx context.Context, holdID string) (*domain.Booking, error) {
	const query = `
SELECT id, resource_id, hold_id, starts_at, ends_at, quantity, status, idempotency_key, created_at
FROM bookings
WHERE hold_id = $1`

	var b domain.Booking
	err := r.queryRow(ctx, query, holdID).
		Scan(&b.ID, &b.ResourceID, &b.HoldID, &b.Interval.Start, &b.Interval.End, &b.Quantity, &b.Status, &b.IdempotencyKey, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by hold: %w", err)
	}
	return &b, nil
}

// CreateBooking inserts the booking. When a concurrent promote already
// produced a booking for the same hold, ON CONFLICT DO NOTHING reports it as
// ErrHoldAlreadyTerminal without aborting the transaction, so the caller can
// still re-read the existing booking.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, resource_id, hold_id, starts_at, ends_at, quantity, status, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (hold_id) DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		booking.ID,
		booking.ResourceID,
		booking.HoldID,
		booking.Interval.Start,
		booking.Interval.End,
		booking.Quantity,
		booking.Status,
		booking.IdempotencyKey,
		booking.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldAlreadyTerminal
	}
	return nil
}

func (r *BookingRepository) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, holdID, status)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	const query = `
SELECT id, resource_id, hold_id, starts_at, ends_at, quantity, status, idempotency_key, created_at
FROM bookings
WHERE id = $1
FOR UPDATE`

	var b domain.Booking
	err := r.queryRow(ctx, query, bookingID).
		Scan(&b.ID, &b.ResourceID, &b.HoldID, &b.Interval.Start, &b.Interval.End, &b.Quantity, &b.Status, &b.IdempotencyKey, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	const stmt = `UPDATE bookings SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, bookingID, status)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
