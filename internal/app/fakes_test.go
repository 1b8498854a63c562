package app

import (
	"context"
	"sync"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

// fakeRepo is an in-memory stand-in for the Postgres repositories. WithTx
// serializes transactions with a mutex, which mirrors the resource-row lock
// closely enough for the service-level tests.
type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	resources map[string]domain.Resource
	holds     map[string]*domain.Hold
	bookings  map[string]*domain.Booking
	schedules map[string][]domain.ScheduleEntry

	failWith error

	// beforeCreateHold runs once at the start of the next CreateHold. Tests
	// use it to slip in a competing write between the replay check and the
	// insert, simulating a lost race on the idempotency key.
	beforeCreateHold func(f *fakeRepo)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		resources: make(map[string]domain.Resource),
		holds:     make(map[string]*domain.Hold),
		bookings:  make(map[string]*domain.Booking),
		schedules: make(map[string][]domain.ScheduleEntry),
	}
}

func (f *fakeRepo) addResource(r domain.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[r.ID] = r
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.txMu.Lock()
	defer f.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (f *fakeRepo) GetResourceForUpdate(_ context.Context, resourceID string) (domain.Resource, error) {
	return f.GetResource(context.Background(), resourceID)
}

func (f *fakeRepo) GetResource(_ context.Context, resourceID string) (domain.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[resourceID]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return r, nil
}

func (f *fakeRepo) FindHoldByIdempotencyKey(_ context.Context, resourceID, key string) (*domain.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.ResourceID == resourceID && h.IdempotencyKey == key {
			copied := *h
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) SumOverlappingHolds(_ context.Context, resourceID string, iv domain.Interval, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, h := range f.holds {
		if h.ResourceID == resourceID && h.CountsAt(now) && h.Interval.Overlaps(iv) {
			total += h.Quantity
		}
	}
	return total, nil
}

func (f *fakeRepo) SumOverlappingBookings(_ context.Context, resourceID string, iv domain.Interval) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, b := range f.bookings {
		if b.ResourceID == resourceID && b.CountsAgainstCapacity() && b.Interval.Overlaps(iv) {
			total += b.Quantity
		}
	}
	return total, nil
}

func (f *fakeRepo) CreateHold(_ context.Context, hold domain.Hold) error {
	if hook := f.beforeCreateHold; hook != nil {
		f.beforeCreateHold = nil
		hook(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.ResourceID == hold.ResourceID && h.IdempotencyKey == hold.IdempotencyKey {
			return domain.ErrIdempotencyConflict
		}
	}
	copied := hold
	f.holds[hold.ID] = &copied
	return nil
}

func (f *fakeRepo) GetHoldForUpdate(_ context.Context, holdID string) (domain.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return *h, nil
}

func (f *fakeRepo) UpdateHoldStatus(_ context.Context, holdID string, status domain.HoldStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	h.Status = status
	return nil
}

func (f *fakeRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired int64
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusActive && !h.ExpiresAt.After(now) {
			h.Status = domain.HoldStatusExpired
			expired++
		}
	}
	return expired, nil
}

func (f *fakeRepo) GetBookingByHoldID(_ context.Context, holdID string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.HoldID == holdID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateBooking(_ context.Context, booking domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.HoldID == booking.HoldID {
			return domain.ErrHoldAlreadyTerminal
		}
	}
	copied := booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeRepo) GetBookingForUpdate(_ context.Context, bookingID string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return *b, nil
}

func (f *fakeRepo) UpdateBookingStatus(_ context.Context, bookingID string, status domain.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeRepo) ListClaims(_ context.Context, resourceID string, iv domain.Interval, now time.Time) ([]domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claims []domain.Claim
	for _, h := range f.holds {
		if h.ResourceID == resourceID && h.CountsAt(now) && h.Interval.Overlaps(iv) {
			claims = append(claims, domain.Claim{Interval: h.Interval, Quantity: h.Quantity})
		}
	}
	for _, b := range f.bookings {
		if b.ResourceID == resourceID && b.CountsAgainstCapacity() && b.Interval.Overlaps(iv) {
			claims = append(claims, domain.Claim{Interval: b.Interval, Quantity: b.Quantity})
		}
	}
	return claims, nil
}

func (f *fakeRepo) CreateResource(_ context.Context, resource domain.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[resource.ID] = resource
	return nil
}

func (f *fakeRepo) ListResources(_ context.Context) ([]domain.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Resource, 0, len(f.resources))
	for _, r := range f.resources {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) SetWeeklySchedule(_ context.Context, resourceID string, entries []domain.ScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[resourceID] = append([]domain.ScheduleEntry(nil), entries...)
	return nil
}

func (f *fakeRepo) GetWeeklySchedule(_ context.Context, resourceID string) ([]domain.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ScheduleEntry(nil), f.schedules[resourceID]...), nil
}

func (f *fakeRepo) SetResourceActive(_ context.Context, resourceID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[resourceID]
	if !ok {
		return domain.ErrResourceNotFound
	}
	r.Active = active
	f.resources[resourceID] = r
	return nil
}

// fakeSchedule serves fixed operating windows keyed by resource id.
type fakeSchedule struct {
	windows map[string][]domain.Interval
}

func (f *fakeSchedule) IsWithinSchedule(_ context.Context, resourceID string, iv domain.Interval) (bool, error) {
	for _, w := range f.windows[resourceID] {
		if w.Contains(iv) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSchedule) WindowsFor(_ context.Context, resourceID string, date time.Time) ([]domain.Interval, error) {
	y, m, d := date.UTC().Date()
	var out []domain.Interval
	for _, w := range f.windows[resourceID] {
		wy, wm, wd := w.Start.UTC().Date()
		if wy == y && wm == m && wd == d {
			out = append(out, w)
		}
	}
	return out, nil
}
