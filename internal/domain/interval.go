package domain

import "time"

// Interval is a half-open time range [Start, End) on canonical instants.
// All engine comparisons happen on instants; conversion to wall-clock time
// is a transport concern.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates start < end and normalizes both instants to UTC.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether two half-open intervals intersect.
// Touching intervals (a.End == b.Start) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Claim is a quantity-bearing occupation of a resource over an interval,
// regardless of whether it comes from an active hold or a counted booking.
type Claim struct {
	Interval Interval
	Quantity int
}

// QuantityOverlapping sums the quantities of all claims whose interval
// overlaps iv. Claims overlapping iv at disjoint instants both count; the
// check is deliberately conservative for multi-claim slots.
func QuantityOverlapping(claims []Claim, iv Interval) int {
	total := 0
	for _, c := range claims {
		if c.Interval.Overlaps(iv) {
			total += c.Quantity
		}
	}
	return total
}
