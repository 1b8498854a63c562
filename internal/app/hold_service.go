package app

import (
	"context"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/clock"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error)
	FindHoldByIdempotencyKey(ctx context.Context, resourceID, key string) (*domain.Hold, error)
	SumOverlappingHolds(ctx context.Context, resourceID string, iv domain.Interval, now time.Time) (int, error)
	SumOverlappingBookings(ctx context.Context, resourceID string, iv domain.Interval) (int, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// ScheduleChecker answers whether an interval lies inside a resource's
// operating hours.
type ScheduleChecker interface {
	IsWithinSchedule(ctx context.Context, resourceID string, iv domain.Interval) (bool, error)
}

// HoldService owns the hold lifecycle: acquire, release, expire. Promotion
// lives in BookingService because it creates the durable booking record.
type HoldService struct {
	repo           HoldRepository
	schedule       ScheduleChecker
	clock          clock.Clock
	roomTTL        time.Duration
	equipmentTTL   time.Duration
	acquireTimeout time.Duration
}

const (
	defaultRoomHoldTTL      = 15 * time.Minute
	defaultEquipmentHoldTTL = 30 * time.Minute
	defaultAcquireTimeout   = 5 * time.Second
)

func NewHoldService(repo HoldRepository, schedule ScheduleChecker, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:           repo,
		schedule:       schedule,
		clock:          clk,
		roomTTL:        defaultRoomHoldTTL,
		equipmentTTL:   defaultEquipmentHoldTTL,
		acquireTimeout: defaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds of one resource kind.
func WithHoldTTL(kind domain.ResourceKind, d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d <= 0 {
			return
		}
		switch kind {
		case domain.ResourceKindRoom:
			s.roomTTL = d
		case domain.ResourceKindEquipment:
			s.equipmentTTL = d
		}
	}
}

// WithAcquireTimeout bounds how long a single Acquire may wait on the store.
// This is independent of the hold's TTL: a slow store must not leave the
// caller uncertain longer than this, and the idempotency key makes the
// retry safe.
func WithAcquireTimeout(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.acquireTimeout = d
		}
	}
}

func (s *HoldService) ttlFor(kind domain.ResourceKind) time.Duration {
	if kind == domain.ResourceKindEquipment {
		return s.equipmentTTL
	}
	return s.roomTTL
}

type AcquireInput struct {
	ResourceID     string
	Start          time.Time
	End            time.Time
	Quantity       int
	IdempotencyKey string
}

// Acquire places a time-boxed exclusive hold on resource capacity. The
// capacity check, the schedule check and the hold insertion run as one
// transaction with the resource row locked, so concurrent acquires against
// the same resource serialize and can never jointly overbook it. It never
// partially reserves: on any rejection no hold exists.
func (s *HoldService) Acquire(ctx context.Context, in AcquireInput) (domain.Hold, error) {
	if in.Quantity <= 0 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}
	if in.IdempotencyKey == "" {
		return domain.Hold{}, domain.ErrIdempotencyKeyRequired
	}
	iv, err := domain.NewInterval(in.Start, in.End)
	if err != nil {
		return domain.Hold{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	now := s.clock.Now()
	var result domain.Hold

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.FindHoldByIdempotencyKey(txCtx, in.ResourceID, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			if existing.Quantity != in.Quantity || !existing.Interval.Start.Equal(iv.Start) || !existing.Interval.End.Equal(iv.End) {
				return domain.ErrIdempotencyConflict
			}
			result = *existing
			return nil
		}

		resource, err := s.repo.GetResourceForUpdate(txCtx, in.ResourceID)
		if err != nil {
			return err
		}
		if !resource.Active {
			return domain.ErrResourceInactive
		}

		within, err := s.schedule.IsWithinSchedule(txCtx, in.ResourceID, iv)
		if err != nil {
			return err
		}
		if !within {
			return domain.ErrOutOfSchedule
		}

		heldQty, err := s.repo.SumOverlappingHolds(txCtx, in.ResourceID, iv, now)
		if err != nil {
			return err
		}
		bookedQty, err := s.repo.SumOverlappingBookings(txCtx, in.ResourceID, iv)
		if err != nil {
			return err
		}

		if heldQty+bookedQty+in.Quantity > resource.UnitCount {
			return domain.ErrCapacityExceeded
		}

		hold := domain.Hold{
			ID:             newID(),
			ResourceID:     in.ResourceID,
			Interval:       iv,
			Quantity:       in.Quantity,
			Status:         domain.HoldStatusActive,
			ExpiresAt:      now.Add(s.ttlFor(resource.Kind)),
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
		}

		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			// A concurrent acquire with the same key won the insert race:
			// re-read its hold and replay it under the same rules as above.
			if err == domain.ErrIdempotencyConflict {
				existing, err := s.repo.FindHoldByIdempotencyKey(txCtx, in.ResourceID, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					if existing.Quantity != in.Quantity || !existing.Interval.Start.Equal(iv.Start) || !existing.Interval.End.Equal(iv.End) {
						return domain.ErrIdempotencyConflict
					}
					result = *existing
					return nil
				}
			}
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	return result, nil
}

// Release transitions an active hold to released. Releasing a hold that has
// already reached a terminal state is a no-op, not an error: concurrent
// terminal transitions are expected and all of them are one-way.
func (s *HoldService) Release(ctx context.Context, holdID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.Status.IsTerminal() {
			return nil
		}
		return s.repo.UpdateHoldStatus(txCtx, holdID, domain.HoldStatusReleased)
	})
}

// ExpireDueHolds transitions every active hold whose deadline has passed to
// expired and returns how many were swept. This is a cleanup optimization:
// every capacity query already disregards overdue holds on its own.
func (s *HoldService) ExpireDueHolds(ctx context.Context) (int64, error) {
	return s.repo.ExpireDue(ctx, s.clock.Now())
}
