package domain

import "time"

type ResourceKind string

const (
	ResourceKindRoom      ResourceKind = "room"
	ResourceKindEquipment ResourceKind = "equipment"
)

func (k ResourceKind) Valid() bool {
	return k == ResourceKindRoom || k == ResourceKindEquipment
}

// Resource is a bookable room or equipment line. Rooms are single-occupancy
// (UnitCount pinned to 1 by the catalog); equipment carries N identical units
// that may be claimed concurrently up to UnitCount.
type Resource struct {
	ID        string
	Name      string
	Kind      ResourceKind
	UnitCount int
	Active    bool
	CreatedAt time.Time
}
