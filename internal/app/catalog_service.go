package app

import (
	"context"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/clock"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

type CatalogRepository interface {
	CreateResource(ctx context.Context, resource domain.Resource) error
	ListResources(ctx context.Context) ([]domain.Resource, error)
	GetResource(ctx context.Context, resourceID string) (domain.Resource, error)
	SetWeeklySchedule(ctx context.Context, resourceID string, entries []domain.ScheduleEntry) error
	GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error)
	SetResourceActive(ctx context.Context, resourceID string, active bool) error
}

// ScheduleInvalidator drops cached schedule state after catalog writes.
type ScheduleInvalidator interface {
	Invalidate(ctx context.Context, resourceID string)
}

// CatalogService is the admin back-office surface: resources and their
// weekly operating hours.
type CatalogService struct {
	repo        CatalogRepository
	clock       clock.Clock
	invalidator ScheduleInvalidator
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock, opts ...CatalogServiceOption) *CatalogService {
	svc := &CatalogService{
		repo:  repo,
		clock: clk,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CatalogServiceOption func(*CatalogService)

// WithScheduleInvalidator wires cache invalidation into schedule writes.
func WithScheduleInvalidator(inv ScheduleInvalidator) CatalogServiceOption {
	return func(s *CatalogService) {
		s.invalidator = inv
	}
}

type CreateResourceInput struct {
	Name      string
	Kind      domain.ResourceKind
	UnitCount int
}

func (s *CatalogService) CreateResource(ctx context.Context, in CreateResourceInput) (domain.Resource, error) {
	if in.Name == "" {
		return domain.Resource{}, domain.ErrResourceNameRequired
	}
	if !in.Kind.Valid() {
		return domain.Resource{}, domain.ErrInvalidResourceKind
	}

	unitCount := in.UnitCount
	switch in.Kind {
	case domain.ResourceKindRoom:
		// Rooms are single-occupancy; the capacity check degenerates to
		// mutual exclusion through the same code path as equipment.
		if unitCount > 1 {
			return domain.Resource{}, domain.ErrInvalidUnitCount
		}
		unitCount = 1
	case domain.ResourceKindEquipment:
		if unitCount < 1 {
			return domain.Resource{}, domain.ErrInvalidUnitCount
		}
	}

	resource := domain.Resource{
		ID:        newID(),
		Name:      in.Name,
		Kind:      in.Kind,
		UnitCount: unitCount,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.CreateResource(ctx, resource); err != nil {
		return domain.Resource{}, err
	}
	return resource, nil
}

func (s *CatalogService) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return s.repo.ListResources(ctx)
}

type ScheduleEntryInput struct {
	Weekday int
	Open    string
	Close   string
}

// SetWeeklySchedule replaces the resource's whole weekly schedule. At most
// one window per weekday; days without an entry are closed.
func (s *CatalogService) SetWeeklySchedule(ctx context.Context, resourceID string, in []ScheduleEntryInput) ([]domain.ScheduleEntry, error) {
	if resourceID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.repo.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(in))
	entries := make([]domain.ScheduleEntry, 0, len(in))
	for _, e := range in {
		if _, dup := seen[e.Weekday]; dup {
			return nil, domain.ErrInvalidSchedule
		}
		seen[e.Weekday] = struct{}{}

		open, err := domain.ParseTimeOfDay(e.Open)
		if err != nil {
			return nil, err
		}
		closeAt, err := domain.ParseTimeOfDay(e.Close)
		if err != nil {
			return nil, err
		}
		entry := domain.ScheduleEntry{
			Weekday: time.Weekday(e.Weekday),
			Open:    open,
			Close:   closeAt,
		}
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := s.repo.SetWeeklySchedule(ctx, resourceID, entries); err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, resourceID)
	}
	return entries, nil
}

func (s *CatalogService) GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error) {
	if resourceID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.repo.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.repo.GetWeeklySchedule(ctx, resourceID)
}

// DeactivateResource disables future acquires for the resource. Existing
// holds are left to age out and bookings are untouched.
func (s *CatalogService) DeactivateResource(ctx context.Context, resourceID string) error {
	if resourceID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SetResourceActive(ctx, resourceID, false)
}
