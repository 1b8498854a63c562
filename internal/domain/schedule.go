package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is minutes since local midnight, 0..1440.
type TimeOfDay int

const MinutesPerDay = 24 * 60

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ParseTimeOfDay parses "HH:MM" wall-clock times as used by the schedule
// admin ("09:00", "18:30"). "24:00" is accepted as end-of-day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, ErrInvalidSchedule
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, ErrInvalidSchedule
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, ErrInvalidSchedule
	}
	if m < 0 || m > 59 {
		return 0, ErrInvalidSchedule
	}
	t := TimeOfDay(h*60 + m)
	if !t.Valid() {
		return 0, ErrInvalidSchedule
	}
	return t, nil
}

// ScheduleEntry is one weekday's operating window [Open, Close).
// Weekday follows Go's time.Weekday convention, Sunday=0..Saturday=6,
// which matches the schedule table's keys. Absence of an entry means
// the resource is closed that day.
type ScheduleEntry struct {
	Weekday time.Weekday
	Open    TimeOfDay
	Close   TimeOfDay
}

func (e ScheduleEntry) Validate() error {
	if e.Weekday < time.Sunday || e.Weekday > time.Saturday {
		return ErrInvalidSchedule
	}
	if !e.Open.Valid() || !e.Close.Valid() || e.Close <= e.Open {
		return ErrInvalidSchedule
	}
	return nil
}
