// Package reconcile implements conflict resolution for a linked pair of
// appointment records. Resolution is a single deterministic last-writer-wins
// rule over the records' modification instants; fields are copied wholesale
// in the winning direction, never merged.
package reconcile

import (
	"github.com/caremesh/calsync/pkg/appointment"
)

// Records decides which side of a linked pair is authoritative and copies
// the scheduling window in that direction. It returns true when the
// counterpart was mutated and needs to be persisted by the caller, false
// when the source was mutated in memory instead.
//
// The source wins when the counterpart carries no modification instant, or
// when the source's own instant is strictly later. Everything else,
// exact ties included, goes to the counterpart. The strict inequality is
// load-bearing: changing it would flip which side gets rewritten on
// simultaneous edits.
func Records(source, counterpart appointment.Record) bool {
	if sourceWins(source, counterpart) {
		counterpart.SetWindow(source.Window().Normalized())
		return true
	}

	source.SetWindow(counterpart.Window().Normalized())
	return false
}

// sourceWins applies the last-writer-wins test. A nil modification instant
// reads as "always stale": a source without one never wins, a counterpart
// without one always loses.
func sourceWins(source, counterpart appointment.Record) bool {
	counterpartAt := counterpart.LastModifiedAt()
	if counterpartAt == nil {
		return true
	}

	sourceAt := source.LastModifiedAt()
	if sourceAt == nil {
		return false
	}

	return sourceAt.Time.After(counterpartAt.Time)
}
