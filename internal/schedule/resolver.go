// Package schedule resolves a resource's weekly operating hours into
// concrete instant windows for a calendar date.
package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

// Source supplies the catalog's weekly schedule for a resource. The catalog
// owns this data; the resolver only reads it.
type Source interface {
	GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error)
}

// Resolver answers "which operating windows apply on date D" and "is this
// interval inside operating hours". It is a pure function of catalog state;
// all windows are built in the canonical location and compared as instants.
type Resolver struct {
	src Source
	loc *time.Location
}

func NewResolver(src Source, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{src: src, loc: loc}
}

// WindowsFor returns the operating windows for the calendar date containing
// the given instant, interpreted in the canonical location. Contiguous or
// overlapping entries for the same weekday are merged. Normally a resource
// has zero or one window per weekday.
func (r *Resolver) WindowsFor(ctx context.Context, resourceID string, date time.Time) ([]domain.Interval, error) {
	entries, err := r.src.GetWeeklySchedule(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	local := date.In(r.loc)
	year, month, day := local.Date()
	weekday := local.Weekday()

	var windows []domain.Interval
	for _, e := range entries {
		if e.Weekday != weekday {
			continue
		}
		start := time.Date(year, month, day, e.Open.Hour(), e.Open.Minute(), 0, 0, r.loc)
		end := time.Date(year, month, day, e.Close.Hour(), e.Close.Minute(), 0, 0, r.loc)
		windows = append(windows, domain.Interval{Start: start.UTC(), End: end.UTC()})
	}

	return mergeWindows(windows), nil
}

// IsWithinSchedule reports whether the interval is fully contained in one of
// the operating windows of its start date. Intervals straddling the local
// midnight boundary are never within schedule.
func (r *Resolver) IsWithinSchedule(ctx context.Context, resourceID string, iv domain.Interval) (bool, error) {
	windows, err := r.WindowsFor(ctx, resourceID, iv.Start)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Contains(iv) {
			return true, nil
		}
	}
	return false, nil
}

func mergeWindows(windows []domain.Interval) []domain.Interval {
	if len(windows) < 2 {
		return windows
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.Before(windows[j].Start)
	})

	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
