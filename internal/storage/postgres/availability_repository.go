package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

// AvailabilityRepository serves the read-only queries behind freeSlots and
// isFree. No locks are taken; writes are arbitrated by the hold transaction.
type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) GetResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, name, kind, unit_count, active, created_at
FROM resources
WHERE id = $1`

	var res domain.Resource
	err := r.pool.QueryRow(ctx, query, resourceID).
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

// ListClaims returns every capacity-consuming claim overlapping [start, end):
// active non-expired holds plus pending/confirmed bookings. One statement,
// so every returned claim reflects the same snapshot.
func (r *AvailabilityRepository) ListClaims(ctx context.Context, resourceID string, iv domain.Interval, now time.Time) ([]domain.Claim, error) {
	const query = `
SELECT starts_at, ends_at, quantity
FROM holds
WHERE resource_id = $1 AND status = 'active' AND expires_at > $2
  AND starts_at < $4 AND ends_at > $3
UNION ALL
SELECT starts_at, ends_at, quantity
FROM bookings
WHERE resource_id = $1 AND status IN ('pending', 'confirmed')
  AND starts_at < $4 AND ends_at > $3`

	rows, err := r.pool.Query(ctx, query, resourceID, now, iv.Start, iv.End)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.Interval.Start, &c.Interval.End, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}
