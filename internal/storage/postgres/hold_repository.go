package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetResourceForUpdate locks the resource row for the duration of the
// transaction. This lock is what serializes concurrent acquires against the
// same resource.
func (r *HoldRepository) GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, name, kind, unit_count, active, created_at
FROM resources
WHERE id = $1
FOR UPDATE`

	var res domain.Resource
	err := r.queryRow(ctx, query, resourceID).
		Scan(&res.ID, &res.Name, &res.Kind, &res.UnitCount, &res.Active, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (r *HoldRepository) FindHoldByIdempotencyKey(ctx context.Context, resourceID, key string) (*domain.Hold, error) {
	const query = `
SELECT id, resource_id, starts_at, ends_at, quantity, status, expires_at, idempotency_key, created_at
FROM holds
WHERE resource_id = $1 AND idempotency_key = $2`

	var h domain.Hold
	err := r.queryRow(ctx, query, resourceID, key).
		Scan(&h.ID, &h.ResourceID, &h.Interval.Start, &h.Interval.End, &h.Quantity, &h.Status, &h.ExpiresAt, &h.IdempotencyKey, &h.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by idempotency key: %w", err)
	}
	return &h, nil
}

// SumOverlappingHolds sums the quantities of active, non-expired holds whose
// interval overlaps [start, end). Overdue holds are excluded here regardless
// of whether the sweep has run.
func (r *HoldRepository) SumOverlappingHolds(ctx context.Context, resourceID string, iv domain.Interval, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM holds
WHERE resource_id = $1 AND status = 'active' AND expires_at > $2
  AND starts_at < $4 AND ends_at > $3`

	var total int
	if err := r.queryRow(ctx, query, resourceID, now, iv.Start, iv.End).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum overlapping holds: %w", err)
	}
	return total, nil
}

// SumOverlappingBookings sums the quantities of pending/confirmed bookings
// overlapping [start, end). Cancelled bookings never count.
func (r *HoldRepository) SumOverlappingBookings(ctx context.Context, resourceID string, iv domain.Interval) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM bookings
WHERE resource_id = $1 AND status IN ('pending', 'confirmed')
  AND starts_at < $3 AND ends_at > $2`

	var total int
	if err := r.queryRow(ctx, query, resourceID, iv.Start, iv.End).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum overlapping bookings: %w", err)
	}
	return total, nil
}

// CreateHold inserts the hold. A duplicate idempotency key reports
// ErrIdempotencyConflict via ON CONFLICT DO NOTHING rather than a unique
// violation, so the surrounding transaction stays usable and the caller can
// re-read the winning row.
func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, resource_id, starts_at, ends_at, quantity, status, expires_at, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (resource_id, idempotency_key) DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		hold.ID,
		hold.ResourceID,
		hold.Interval.Start,
		hold.Interval.End,
		hold.Quantity,
		hold.Status,
		hold.ExpiresAt,
		hold.IdempotencyKey,
		hold.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdempotencyConflict
	}
	return nil
}

func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
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

func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error {
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

// ExpireDue flips every overdue active hold to expired. A single statement,
// safe to run concurrently with in-flight acquires and promotes: it only
// performs the one-way active -> expired transition.
func (r *HoldRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `
UPDATE holds SET status = 'expired'
WHERE status = 'active' AND expires_at <= $1`

	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("expire due holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
