package sync

import (
	"context"

	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/internal/workcal"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/link"
	"github.com/caremesh/calsync/pkg/logging"
	"github.com/caremesh/calsync/pkg/reconcile"
)

// CareTask reconciles one changed carecal event against its workcal
// counterpart, creating and linking a counterpart placeholder when none
// exists yet.
type CareTask struct {
	env   *taskEnv
	event *carecal.Event
	state State
}

func newCareTask(env *taskEnv, event *carecal.Event) *CareTask {
	return &CareTask{env: env, event: event, state: StateNotStarted}
}

// State implements Task.
func (t *CareTask) State() State { return t.state }

// RecordID implements Task.
func (t *CareTask) RecordID() string { return t.event.ID }

// System implements Task.
func (t *CareTask) System() string { return carecal.SystemName }

// Run implements Task.
func (t *CareTask) Run(ctx context.Context) error {
	t.state = StateEvaluating

	clinician, err := t.env.deps.Care.Clinician(ctx, t.event.HostID)
	if err != nil {
		return t.fail(err)
	}
	if !t.env.allow.Allows(clinician.Email) {
		t.skip("Owner not on allow-list", clinician.Email)
		return nil
	}

	if linkedID := t.event.Metadata().LinkedID(); linkedID != "" {
		if err := t.resolveLinked(ctx, linkedID); err != nil {
			return err
		}
	} else {
		done, err := t.createAndLink(ctx, clinician)
		if err != nil || !done {
			return err
		}
	}

	t.event.Metadata().SetLastSyncAt(t.env.stampTime())
	if _, err := t.env.deps.Care.UpdateEvent(ctx, t.event); err != nil {
		return t.fail(err)
	}
	return nil
}

// resolveLinked runs conflict resolution against the already linked
// counterpart and persists whichever side lost.
func (t *CareTask) resolveLinked(ctx context.Context, linkedID string) error {
	counterpart, err := t.env.deps.Work.Event(ctx, linkedID)
	if err != nil {
		return t.fail(err)
	}

	if reconcile.Records(t.event, counterpart) {
		if _, err := t.env.deps.Work.UpdateEvent(ctx, counterpart); err != nil {
			return t.fail(err)
		}
	} else {
		if _, err := t.env.deps.Care.UpdateEvent(ctx, t.event); err != nil {
			return t.fail(err)
		}
	}
	t.state = StateResolved
	return nil
}

// createAndLink finds or synthesizes the workcal counterpart and
// establishes the link both ways. A false return with nil error means the
// task skipped.
func (t *CareTask) createAndLink(ctx context.Context, clinician *carecal.Clinician) (bool, error) {
	target, err := t.env.deps.WorkResolver.Resolve(ctx, clinician)
	if err != nil {
		return false, t.fail(err)
	}
	if target == nil {
		t.skip("No counterpart identity", clinician.Email)
		return false, nil
	}

	// A counterpart may already point at this event from an earlier,
	// half-finished run. Adopt it instead of creating a duplicate.
	counterpart, err := t.env.deps.Work.EventByExternalKey(ctx, t.event.ID)
	created := false
	switch {
	case errors.IsNotFound(err):
		counterpart, err = t.createCounterpart(ctx, target)
		if err != nil {
			return false, t.fail(err)
		}
		created = true
	case err != nil:
		return false, t.fail(err)
	}

	pair := &link.Pair{
		First:         t.event,
		Second:        counterpart,
		FirstStore:    t.env.deps.CareStore,
		SecondStore:   t.env.deps.WorkStore,
		SecondCreated: created,
	}
	if err := pair.Establish(ctx); err != nil {
		return false, t.fail(err)
	}
	t.state = StateCreated
	return true, nil
}

func (t *CareTask) createCounterpart(ctx context.Context, target *Target) (*workcal.Event, error) {
	var patientName string
	if patient := t.event.Patient(); patient != nil {
		patientName = patient.DisplayName
	}
	placeholder := workcal.NewPlaceholder(t.event.Window(), workcal.PlaceholderSubject(patientName), target.User)

	if target.CalendarID != "" {
		return t.env.deps.Work.CreateCalendarEvent(ctx, target.CalendarID, placeholder)
	}
	return t.env.deps.Work.CreateEventFor(ctx, target.User, placeholder)
}

func (t *CareTask) skip(reason, owner string) {
	t.state = StateSkipped
	logging.Debug().
		Str("system", carecal.SystemName).
		Str("record_id", t.event.ID).
		Str("owner", owner).
		Msg(reason)
}

func (t *CareTask) fail(err error) error {
	t.state = StateFailed
	return errors.NewSyncError(carecal.SystemName, t.event.ID, t.event.Metadata().LinkedID(), err)
}
