// Package link implements the association protocol between an appointment
// record and its counterpart on the other system.
//
// A link is not a stored entity of its own. It exists when a record's
// LinkedId metadata resolves to a fetchable counterpart, and it is
// bidirectional only when both sides point at each other. The protocol here
// covers the two operations the reconciler needs: an idempotent one-sided
// "create if missing", and a two-phase establishment of both sides with
// rollback of the first leg when the second cannot be completed.
package link

import (
	"context"

	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/logging"
)

// Store persists link metadata for records belonging to one system.
// Implementations wrap that system's client and must echo back the record
// as the system stored it, so callers can verify the write landed.
type Store interface {
	// SaveLink writes linkedID into the record's link metadata on the
	// remote system and returns the record as persisted.
	SaveLink(ctx context.Context, rec appointment.Record, linkedID string) (appointment.Record, error)

	// ClearLink removes the record's link metadata on the remote system.
	ClearLink(ctx context.Context, rec appointment.Record) error

	// Delete removes the record from the remote system entirely. Only ever
	// invoked for records this engine created itself.
	Delete(ctx context.Context, rec appointment.Record) error
}

// CreateIfMissing links source to target unless source already carries a
// link. It returns true only when a new link was written and the system
// echoed back the intended target id. A failed write or a mismatched echo
// returns false without an error; the caller treats both as "link not
// established" and the source record's in-memory metadata is left unlinked.
func CreateIfMissing(ctx context.Context, store Store, source, target appointment.Record) bool {
	if source.Metadata().LinkedID() != "" {
		return false
	}

	source.Metadata().SetLinkedID(target.RecordID())

	echoed, err := store.SaveLink(ctx, source, target.RecordID())
	if err != nil {
		source.Metadata().ClearLinkedID()
		logging.Warn().
			Str("system", source.System()).
			Str("record_id", source.RecordID()).
			Str("target_id", target.RecordID()).
			Err(err).
			Msg("Link write failed")
		return false
	}
	if echoed == nil || echoed.Metadata().LinkedID() != target.RecordID() {
		source.Metadata().ClearLinkedID()
		logging.Warn().
			Str("system", source.System()).
			Str("record_id", source.RecordID()).
			Str("target_id", target.RecordID()).
			Msg("Link write not verified by system echo")
		return false
	}
	return true
}

// Established reports whether source currently points at target.
func Established(source, target appointment.Record) bool {
	return source.Metadata().LinkedID() == target.RecordID()
}

// Pair performs two-phase link establishment between two records. First is
// the record that triggered the sync; Second is its counterpart, which may
// have been freshly created this run (SecondCreated).
type Pair struct {
	First  appointment.Record
	Second appointment.Record

	FirstStore  Store
	SecondStore Store

	// SecondCreated marks Second as synthesized during this run. Rollback
	// deletes it rather than merely unlinking it, so no record is ever left
	// pointing at an abandoned placeholder.
	SecondCreated bool
}

// Establish links First to Second and then Second back to First. If the
// second leg cannot be completed the first leg is rolled back and an
// ErrLinkIncomplete-classified error is returned; the caller fails just its
// own task, never the whole run.
func (p *Pair) Establish(ctx context.Context) error {
	CreateIfMissing(ctx, p.FirstStore, p.First, p.Second)
	if !Established(p.First, p.Second) {
		p.rollbackSecond(ctx)
		return &errors.LinkError{
			SourceID: p.First.RecordID(),
			TargetID: p.Second.RecordID(),
			Message:  "could not link " + p.First.System() + " record to counterpart",
		}
	}

	CreateIfMissing(ctx, p.SecondStore, p.Second, p.First)
	if !Established(p.Second, p.First) {
		p.rollbackFirst(ctx)
		p.rollbackSecond(ctx)
		return &errors.LinkError{
			SourceID: p.Second.RecordID(),
			TargetID: p.First.RecordID(),
			Message:  "could not link counterpart back, first leg rolled back",
		}
	}
	return nil
}

// rollbackFirst undoes the First->Second leg. First always pre-exists, so
// the rollback is a metadata clear, not a delete.
func (p *Pair) rollbackFirst(ctx context.Context) {
	p.First.Metadata().ClearLinkedID()
	if err := p.FirstStore.ClearLink(ctx, p.First); err != nil {
		logging.Error().
			Str("system", p.First.System()).
			Str("record_id", p.First.RecordID()).
			Err(err).
			Msg("Rollback could not clear link metadata")
	}
}

// rollbackSecond removes a counterpart that was synthesized during this run
// and never successfully tied back to its source.
func (p *Pair) rollbackSecond(ctx context.Context) {
	if !p.SecondCreated {
		return
	}
	if err := p.SecondStore.Delete(ctx, p.Second); err != nil {
		logging.Error().
			Str("system", p.Second.System()).
			Str("record_id", p.Second.RecordID()).
			Err(err).
			Msg("Rollback could not delete freshly created counterpart")
	}
}
