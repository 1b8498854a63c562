package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateResource(ctx context.Context, resource domain.Resource) error {
	const stmt = `
INSERT INTO resources (id, name, kind, unit_count, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, stmt,
		resource.ID,
		resource.Name,
		resource.Kind,
		resource.UnitCount,
		resource.Active,
		resource.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListResources(ctx context.Context) ([]domain.Resource, error) {
	const query = `
SELECT id, name, kind, unit_count, active, created_at
FROM resources
ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Kind, &res.UnitCount, &res.Active, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

func (r *CatalogRepository) GetResource(ctx context.Context, resourceID string) (domain.Resource, error) {
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

// SetWeeklySchedule replaces the resource's schedule atomically.
func (r *CatalogRepository) SetWeeklySchedule(ctx context.Context, resourceID string, entries []domain.ScheduleEntry) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		tx := txFromContext(txCtx)

		if _, err := tx.Exec(txCtx, `DELETE FROM weekly_schedules WHERE resource_id = $1`, resourceID); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("clear schedule: %w", err)
		}

		const stmt = `
INSERT INTO weekly_schedules (resource_id, weekday, open_minutes, close_minutes)
VALUES ($1, $2, $3, $4)`

		for _, e := range entries {
			if _, err := tx.Exec(txCtx, stmt, resourceID, int(e.Weekday), int(e.Open), int(e.Close)); err != nil {
				return fmt.Errorf("insert schedule entry: %w", err)
			}
		}
		return nil
	})
}

func (r *CatalogRepository) GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error) {
	const query = `
SELECT weekday, open_minutes, close_minutes
FROM weekly_schedules
WHERE resource_id = $1
ORDER BY weekday`

	rows, err := r.pool.Query(ctx, query, resourceID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("get weekly schedule: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		var weekday, open, closeAt int
		if err := rows.Scan(&weekday, &open, &closeAt); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		entries = append(entries, domain.ScheduleEntry{
			Weekday: time.Weekday(weekday),
			Open:    domain.TimeOfDay(open),
			Close:   domain.TimeOfDay(closeAt),
		})
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("get weekly schedule: %w", err)
	}
	return entries, nil
}

func (r *CatalogRepository) SetResourceActive(ctx context.Context, resourceID string, active bool) error {
	const stmt = `UPDATE resources SET active = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, stmt, resourceID, active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set resource active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}
