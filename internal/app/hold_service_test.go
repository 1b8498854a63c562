package app

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/clock"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC) // Monday

func openAllDay(resourceID string, day time.Time) *fakeSchedule {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return &fakeSchedule{windows: map[string][]domain.Interval{
		resourceID: {{Start: start, End: start.Add(24 * time.Hour)}},
	}}
}

func newTestHoldService(t *testing.T, resource domain.Resource, opts ...HoldServiceOption) (*HoldService, *fakeRepo, *clock.Manual) {
	t.Helper()
	repo := newFakeRepo()
	repo.addResource(resource)
	clk := clock.NewManual(testNow)
	svc := NewHoldService(repo, openAllDay(resource.ID, testNow), clk, opts...)
	return svc, repo, clk
}

func room(id string) domain.Resource {
	return domain.Resource{ID: id, Name: "Sala " + id, Kind: domain.ResourceKindRoom, UnitCount: 1, Active: true}
}

func equipment(id string, units int) domain.Resource {
	return domain.Resource{ID: id, Name: "Projetor " + id, Kind: domain.ResourceKindEquipment, UnitCount: units, Active: true}
}

func acquire(resourceID string, fromH, toH int, qty int, key string) AcquireInput {
	return AcquireInput{
		ResourceID:     resourceID,
		Start:          testNow.Truncate(24 * time.Hour).Add(time.Duration(fromH) * time.Hour),
		End:            testNow.Truncate(24 * time.Hour).Add(time.Duration(toH) * time.Hour),
		Quantity:       qty,
		IdempotencyKey: key,
	}
}

func TestHoldService_Acquire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates an active hold with the room TTL", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))

		hold, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.ID == "" {
			t.Fatalf("expected generated hold id")
		}
		if hold.Status != domain.HoldStatusActive {
			t.Fatalf("expected active hold, got %s", hold.Status)
		}
		if want := testNow.Add(defaultRoomHoldTTL); !hold.ExpiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, hold.ExpiresAt)
		}
	})

	t.Run("equipment kind uses its own TTL", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, equipment("e1", 3),
			WithHoldTTL(domain.ResourceKindEquipment, time.Hour))

		hold, err := svc.Acquire(ctx, acquire("e1", 12, 13, 1, "key-1"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if want := testNow.Add(time.Hour); !hold.ExpiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, hold.ExpiresAt)
		}
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))
		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 0, "key-1")); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("rejects missing idempotency key", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))
		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "")); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
			t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
		}
	})

	t.Run("rejects inverted interval", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))
		if _, err := svc.Acquire(ctx, acquire("r1", 13, 12, 1, "key-1")); !errors.Is(err, domain.ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval, got %v", err)
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))
		if _, err := svc.Acquire(ctx, acquire("missing", 12, 13, 1, "key-1")); !errors.Is(err, domain.ErrResourceNotFound) {
			t.Fatalf("expected ErrResourceNotFound, got %v", err)
		}
	})

	t.Run("inactive resource", func(t *testing.T) {
		inactive := room("r1")
		inactive.Active = false
		svc, _, _ := newTestHoldService(t, inactive)
		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1")); !errors.Is(err, domain.ErrResourceInactive) {
			t.Fatalf("expected ErrResourceInactive, got %v", err)
		}
	})

	t.Run("out of schedule", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addResource(room("r1"))
		day := testNow.Truncate(24 * time.Hour)
		sched := &fakeSchedule{windows: map[string][]domain.Interval{
			"r1": {{Start: day.Add(9 * time.Hour), End: day.Add(18 * time.Hour)}},
		}}
		svc := NewHoldService(repo, sched, clock.NewManual(testNow))

		if _, err := svc.Acquire(ctx, acquire("r1", 19, 20, 1, "key-1")); !errors.Is(err, domain.ErrOutOfSchedule) {
			t.Fatalf("expected ErrOutOfSchedule, got %v", err)
		}
		if len(repo.holds) != 0 {
			t.Fatalf("rejected acquire must not leave a hold behind")
		}
	})
}

func TestHoldService_Acquire_Capacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("room rejects any overlap", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))

		if _, err := svc.Acquire(ctx, acquire("r1", 12, 14, 1, "key-1")); err != nil {
			t.Fatalf("first acquire: %v", err)
		}
		if _, err := svc.Acquire(ctx, acquire("r1", 13, 15, 1, "key-2")); !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
	})

	t.Run("adjacent intervals never conflict", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))

		if _, err := svc.Acquire(ctx, acquire("r1", 12, 14, 1, "key-1")); err != nil {
			t.Fatalf("first acquire: %v", err)
		}
		if _, err := svc.Acquire(ctx, acquire("r1", 14, 16, 1, "key-2")); err != nil {
			t.Fatalf("back-to-back acquire must succeed, got %v", err)
		}
	})

	t.Run("equipment sums quantities over overlapping claims", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, equipment("e1", 5))

		if _, err := svc.Acquire(ctx, acquire("e1", 12, 14, 2, "key-1")); err != nil {
			t.Fatalf("first acquire: %v", err)
		}
		if _, err := svc.Acquire(ctx, acquire("e1", 13, 15, 2, "key-2")); err != nil {
			t.Fatalf("second acquire: %v", err)
		}
		// 2 + 2 held over 13:00-14:00, only 1 unit left there.
		if _, err := svc.Acquire(ctx, acquire("e1", 13, 14, 2, "key-3")); !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
		if _, err := svc.Acquire(ctx, acquire("e1", 13, 14, 1, "key-4")); err != nil {
			t.Fatalf("last unit must still be grantable, got %v", err)
		}
	})

	t.Run("confirmed bookings count against capacity", func(t *testing.T) {
		svc, repo, _ := newTestHoldService(t, equipment("e1", 2))
		repo.bookings["b1"] = &domain.Booking{
			ID:         "b1",
			ResourceID: "e1",
			Interval:   domain.Interval{Start: testNow.Add(2 * time.Hour), End: testNow.Add(4 * time.Hour)},
			Quantity:   2,
			Status:     domain.BookingStatusConfirmed,
		}

		if _, err := svc.Acquire(ctx, acquire("e1", 12, 13, 1, "key-1")); !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
	})

	t.Run("cancelled bookings free capacity", func(t *testing.T) {
		svc, repo, _ := newTestHoldService(t, room("r1"))
		repo.bookings["b1"] = &domain.Booking{
			ID:         "b1",
			ResourceID: "r1",
			Interval:   domain.Interval{Start: testNow.Add(2 * time.Hour), End: testNow.Add(4 * time.Hour)},
			Quantity:   1,
			Status:     domain.BookingStatusCancelled,
		}

		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1")); err != nil {
			t.Fatalf("expected acquire to succeed over cancelled booking, got %v", err)
		}
	})

	t.Run("expired holds free capacity without a sweep", func(t *testing.T) {
		svc, _, clk := newTestHoldService(t, room("r1"))

		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1")); err != nil {
			t.Fatalf("first acquire: %v", err)
		}
		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-2")); !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded while hold alive, got %v", err)
		}

		clk.Advance(defaultRoomHoldTTL)

		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-2")); err != nil {
			t.Fatalf("expected acquire to succeed after hold expiry, got %v", err)
		}
	})

	t.Run("released holds free capacity", func(t *testing.T) {
		svc, _, _ := newTestHoldService(t, room("r1"))

		hold, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1"))
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if err := svc.Release(ctx, hold.ID); err != nil {
			t.Fatalf("release: %v", err)
		}
		if _, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-2")); err != nil {
			t.Fatalf("expected acquire to succeed after release, got %v", err)
		}
	})
}

func TestHoldService_Acquire_Idempotency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestHoldService(t, room("r1"))

	first, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	t.Run("same key replays the existing hold", func(t *testing.T) {
		replay, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1"))
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if replay.ID != first.ID {
			t.Fatalf("expected the original hold back, got %s vs %s", replay.ID, first.ID)
		}
	})

	t.Run("same key with different parameters conflicts", func(t *testing.T) {
		if _, err := svc.Acquire(ctx, acquire("r1", 12, 14, 1, "key-1")); !errors.Is(err, domain.ErrIdempotencyConflict) {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
	})

	t.Run("losing the insert race replays the winning hold", func(t *testing.T) {
		svc, repo, _ := newTestHoldService(t, equipment("e1", 5))
		day := testNow.Truncate(24 * time.Hour)

		rival := domain.Hold{
			ID:         "h-rival",
			ResourceID: "e1",
			Interval:   domain.Interval{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)},
			Quantity:   2, Status: domain.HoldStatusActive,
			ExpiresAt: testNow.Add(defaultEquipmentHoldTTL), IdempotencyKey: "key-race", CreatedAt: testNow,
		}
		repo.beforeCreateHold = func(f *fakeRepo) {
			f.mu.Lock()
			f.holds[rival.ID] = &rival
			f.mu.Unlock()
		}

		hold, err := svc.Acquire(ctx, acquire("e1", 12, 13, 2, "key-race"))
		if err != nil {
			t.Fatalf("expected the winning hold replayed, got %v", err)
		}
		if hold.ID != rival.ID {
			t.Fatalf("expected hold %s, got %s", rival.ID, hold.ID)
		}
	})

	t.Run("losing the insert race to a different interval conflicts", func(t *testing.T) {
		svc, repo, _ := newTestHoldService(t, equipment("e1", 5))
		day := testNow.Truncate(24 * time.Hour)

		rival := domain.Hold{
			ID:         "h-rival",
			ResourceID: "e1",
			Interval:   domain.Interval{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)},
			Quantity:   2, Status: domain.HoldStatusActive,
			ExpiresAt: testNow.Add(defaultEquipmentHoldTTL), IdempotencyKey: "key-race", CreatedAt: testNow,
		}
		repo.beforeCreateHold = func(f *fakeRepo) {
			f.mu.Lock()
			f.holds[rival.ID] = &rival
			f.mu.Unlock()
		}

		if _, err := svc.Acquire(ctx, acquire("e1", 12, 14, 2, "key-race")); !errors.Is(err, domain.ErrIdempotencyConflict) {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
	})
}

func TestHoldService_Release(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestHoldService(t, room("r1"))

	hold, err := svc.Acquire(ctx, acquire("r1", 12, 13, 1, "key-1"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := svc.Release(ctx, hold.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := repo.holds[hold.ID].Status; got != domain.HoldStatusReleased {
		t.Fatalf("expected released, got %s", got)
	}

	// Releasing again, or after any other terminal transition, is a no-op.
	if err := svc.Release(ctx, hold.ID); err != nil {
		t.Fatalf("second release must be a no-op, got %v", err)
	}

	repo.holds[hold.ID].Status = domain.HoldStatusPromoted
	if err := svc.Release(ctx, hold.ID); err != nil {
		t.Fatalf("release of promoted hold must be a no-op, got %v", err)
	}
	if got := repo.holds[hold.ID].Status; got != domain.HoldStatusPromoted {
		t.Fatalf("release must not undo a promote, got %s", got)
	}

	if err := svc.Release(ctx, "missing"); !errors.Is(err, domain.ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}
}

func TestHoldService_ExpireDueHolds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, clk := newTestHoldService(t, equipment("e1", 10))

	for i, key := range []string{"key-1", "key-2", "key-3"} {
		if _, err := svc.Acquire(ctx, acquire("e1", 12+i, 13+i, 1, key)); err != nil {
			t.Fatalf("acquire %s: %v", key, err)
		}
	}

	expired, err := svc.ExpireDueHolds(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("nothing is due yet, got %d", expired)
	}

	clk.Advance(defaultEquipmentHoldTTL)

	expired, err = svc.ExpireDueHolds(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 3 {
		t.Fatalf("expected 3 expired holds, got %d", expired)
	}
	for id, h := range repo.holds {
		if h.Status != domain.HoldStatusExpired {
			t.Fatalf("hold %s not expired: %s", id, h.Status)
		}
	}

	// Second sweep finds nothing left to do.
	expired, err = svc.ExpireDueHolds(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected idempotent sweep, got %d", expired)
	}
}

// Concurrent acquires on the same window must never jointly exceed the unit
// count, and exactly unitCount of them may win.
func TestHoldService_Acquire_ConcurrentNeverOverbooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const unitCount = 3
	const attempts = 20

	svc, repo, _ := newTestHoldService(t, equipment("e1", unitCount))

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Acquire(ctx, AcquireInput{
				ResourceID:     "e1",
				Start:          testNow.Add(2 * time.Hour),
				End:            testNow.Add(3 * time.Hour),
				Quantity:       1,
				IdempotencyKey: "key-" + string(rune('a'+i)),
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrCapacityExceeded):
		default:
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if won != unitCount {
		t.Fatalf("expected exactly %d winners, got %d", unitCount, won)
	}

	total := 0
	for _, h := range repo.holds {
		if h.Status == domain.HoldStatusActive {
			total += h.Quantity
		}
	}
	if total != unitCount {
		t.Fatalf("active holds sum to %d, want %d", total, unitCount)
	}
}

// Randomized walk over the whole hold lifecycle. After every single step the
// claimed quantity on any hour of the day must stay within the unit count,
// no matter how acquires, releases, promotes, expiries and sweeps interleave.
func TestHoldService_RandomizedLifecycleNeverOverbooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const unitCount = 4
	const steps = 2000

	repo := newFakeRepo()
	repo.addResource(equipment("e1", unitCount))
	clk := clock.NewManual(testNow)
	svc := NewHoldService(repo, openAllDay("e1", testNow), clk)
	bookings := NewBookingService(repo, clk)

	rng := rand.New(rand.NewSource(1))
	day := testNow.Truncate(24 * time.Hour)

	assertWithinCapacity := func(step int) {
		t.Helper()
		now := clk.Now()
		for h := 0; h < 24; h++ {
			bucket := domain.Interval{
				Start: day.Add(time.Duration(h) * time.Hour),
				End:   day.Add(time.Duration(h+1) * time.Hour),
			}
			held, err := repo.SumOverlappingHolds(ctx, "e1", bucket, now)
			if err != nil {
				t.Fatalf("step %d: sum holds: %v", step, err)
			}
			booked, err := repo.SumOverlappingBookings(ctx, "e1", bucket)
			if err != nil {
				t.Fatalf("step %d: sum bookings: %v", step, err)
			}
			if held+booked > unitCount {
				t.Fatalf("step %d: hour %d overbooked: held %d + booked %d > %d",
					step, h, held, booked, unitCount)
			}
		}
	}

	var holdIDs []string
	for step := 0; step < steps; step++ {
		switch rng.Intn(10) {
		case 0, 1, 2, 3, 4:
			from := rng.Intn(23)
			to := from + 1 + rng.Intn(3)
			if to > 24 {
				to = 24
			}
			hold, err := svc.Acquire(ctx, AcquireInput{
				ResourceID:     "e1",
				Start:          day.Add(time.Duration(from) * time.Hour),
				End:            day.Add(time.Duration(to) * time.Hour),
				Quantity:       1 + rng.Intn(unitCount),
				IdempotencyKey: "key-" + strconv.Itoa(step),
			})
			switch {
			case err == nil:
				holdIDs = append(holdIDs, hold.ID)
			case errors.Is(err, domain.ErrCapacityExceeded):
			default:
				t.Fatalf("step %d: acquire: %v", step, err)
			}
		case 5, 6:
			if len(holdIDs) == 0 {
				continue
			}
			if err := svc.Release(ctx, holdIDs[rng.Intn(len(holdIDs))]); err != nil {
				t.Fatalf("step %d: release: %v", step, err)
			}
		case 7:
			if len(holdIDs) == 0 {
				continue
			}
			id := holdIDs[rng.Intn(len(holdIDs))]
			_, err := bookings.Promote(ctx, PromoteInput{HoldID: id, IdempotencyKey: "promo-" + id})
			if err != nil && !errors.Is(err, domain.ErrHoldAlreadyTerminal) {
				t.Fatalf("step %d: promote: %v", step, err)
			}
		case 8:
			clk.Advance(time.Duration(rng.Intn(10)) * time.Minute)
		case 9:
			if _, err := svc.ExpireDueHolds(ctx); err != nil {
				t.Fatalf("step %d: sweep: %v", step, err)
			}
		}
		assertWithinCapacity(step)
	}
}
