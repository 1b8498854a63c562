package app

import (
	"context"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/clock"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type AvailabilityRepository interface {
	GetResource(ctx context.Context, resourceID string) (domain.Resource, error)
	// ListClaims returns every capacity-consuming claim (active non-expired
	// holds plus pending/confirmed bookings) overlapping iv, from a single
	// statement so all claims reflect one snapshot.
	ListClaims(ctx context.Context, resourceID string, iv domain.Interval, now time.Time) ([]domain.Claim, error)
}

// WindowSource resolves operating windows for a calendar date.
type WindowSource interface {
	WindowsFor(ctx context.Context, resourceID string, date time.Time) ([]domain.Interval, error)
	IsWithinSchedule(ctx context.Context, resourceID string, iv domain.Interval) (bool, error)
}

// AvailabilityService is the read-only facade booking UIs use: which slots
// are free on a date, and is this exact interval free right now.
type AvailabilityService struct {
	repo        AvailabilityRepository
	schedule    WindowSource
	clock       clock.Clock
	granularity time.Duration
}

const defaultSlotGranularity = 30 * time.Minute

func NewAvailabilityService(repo AvailabilityRepository, schedule WindowSource, clk clock.Clock, opts ...AvailabilityOption) *AvailabilityService {
	svc := &AvailabilityService{
		repo:        repo,
		schedule:    schedule,
		clock:       clk,
		granularity: defaultSlotGranularity,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AvailabilityOption func(*AvailabilityService)

// WithSlotGranularity overrides the default slot step for FreeSlots.
func WithSlotGranularity(d time.Duration) AvailabilityOption {
	return func(s *AvailabilityService) {
		if d > 0 {
			s.granularity = d
		}
	}
}

type FreeSlotsInput struct {
	ResourceID  string
	Date        time.Time
	Granularity time.Duration
	Quantity    int
}

// FreeSlots enumerates candidate slots inside the date's operating windows
// and keeps those that can still accommodate the requested quantity for the
// whole slot. Slots that have already started are not offered.
func (s *AvailabilityService) FreeSlots(ctx context.Context, in FreeSlotsInput) ([]domain.Slot, error) {
	granularity := in.Granularity
	if granularity <= 0 {
		granularity = s.granularity
	}
	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	resource, err := s.repo.GetResource(ctx, in.ResourceID)
	if err != nil {
		return nil, err
	}
	if !resource.Active {
		return nil, domain.ErrResourceInactive
	}

	windows, err := s.schedule.WindowsFor(ctx, in.ResourceID, in.Date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	day := domain.Interval{Start: windows[0].Start, End: windows[len(windows)-1].End}
	claims, err := s.repo.ListClaims(ctx, in.ResourceID, day, now)
	if err != nil {
		return nil, err
	}

	var slots []domain.Slot
	for _, w := range windows {
		for t := w.Start; !t.Add(granularity).After(w.End); t = t.Add(granularity) {
			if t.Before(now) {
				continue
			}
			iv := domain.Interval{Start: t, End: t.Add(granularity)}
			available := resource.UnitCount - domain.QuantityOverlapping(claims, iv)
			if available >= quantity {
				slots = append(slots, domain.Slot{Interval: iv, AvailableUnits: available})
			}
		}
	}
	return slots, nil
}

// IsFree reports whether the exact interval can accommodate the requested
// quantity right now. Out-of-schedule intervals are simply not free.
func (s *AvailabilityService) IsFree(ctx context.Context, resourceID string, iv domain.Interval, quantity int) (bool, error) {
	if quantity <= 0 {
		quantity = 1
	}

	resource, err := s.repo.GetResource(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if !resource.Active {
		return false, domain.ErrResourceInactive
	}

	within, err := s.schedule.IsWithinSchedule(ctx, resourceID, iv)
	if err != nil {
		return false, err
	}
	if !within {
		return false, nil
	}

	claims, err := s.repo.ListClaims(ctx, resourceID, iv, s.clock.Now())
	if err != nil {
		return false, err
	}
	return domain.QuantityOverlapping(claims, iv)+quantity <= resource.UnitCount, nil
}
