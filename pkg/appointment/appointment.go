// Package appointment defines the system-agnostic surface shared by records
// in both calendar systems: the scheduling window, the record status, and
// the key/value side-channel that carries link metadata. The concrete event
// models in internal/workcal and internal/carecal implement Record.
package appointment

import (
	"time"

	"github.com/agentstation/utc"
)

// Status is the lifecycle state of an appointment record.
type Status string

// Appointment statuses. Records are retired by cancellation, never deleted.
const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Record is a calendar appointment as seen by the reconciliation engine.
// Implementations are in-memory representations; mutations made through
// SetWindow are persisted by the caller, not by the record itself.
type Record interface {
	// RecordID returns the record's id, unique within its owning system.
	RecordID() string

	// System returns the name of the owning system ("workcal" or "carecal").
	System() string

	// Window returns the scheduled interval.
	Window() Window

	// SetWindow replaces the scheduled interval in memory.
	SetWindow(w Window)

	// LastModifiedAt returns the record's authoritative modification
	// instant, or nil when the owning system reported none. A nil value
	// means "treat as always stale" during conflict resolution.
	LastModifiedAt() *utc.Time

	// Metadata returns the record's link-metadata side-channel. The map is
	// live; writes through it mutate the record.
	Metadata() Metadata
}

// Window is the scheduled interval of an appointment. AllDay changes the
// interpretation of Start and End from instant granularity to day
// granularity.
type Window struct {
	Start  utc.Time
	End    utc.Time
	AllDay bool
}

// Normalized returns the window with instants in UTC. An all-day window
// widens to [midnight of the start day, midnight of the next day); timed
// windows pass through unchanged.
func (w Window) Normalized() Window {
	if !w.AllDay {
		return w
	}
	day := midnight(w.Start)
	return Window{
		Start:  day,
		End:    day.Add(24 * time.Hour),
		AllDay: true,
	}
}

// Day returns the calendar day of the window's start, at midnight UTC.
func (w Window) Day() utc.Time {
	return midnight(w.Start)
}

// Equal reports whether two windows describe the same interval and
// granularity.
func (w Window) Equal(other Window) bool {
	return w.AllDay == other.AllDay &&
		w.Start.Time.Equal(other.Start.Time) &&
		w.End.Time.Equal(other.End.Time)
}

func midnight(t utc.Time) utc.Time {
	y, m, d := t.UTC().Date()
	return utc.New(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
