package sync

import (
	"context"

	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/internal/workcal"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/identity"
	"github.com/caremesh/calsync/pkg/link"
	"github.com/caremesh/calsync/pkg/logging"
	"github.com/caremesh/calsync/pkg/reconcile"
)

// WorkTask reconciles one changed workcal event against its carecal
// counterpart, creating and linking a counterpart placeholder when none
// exists yet.
type WorkTask struct {
	env   *taskEnv
	event *workcal.Event
	state State
}

func newWorkTask(env *taskEnv, event *workcal.Event) *WorkTask {
	return &WorkTask{env: env, event: event, state: StateNotStarted}
}

// State implements Task.
func (t *WorkTask) State() State { return t.state }

// RecordID implements Task.
func (t *WorkTask) RecordID() string { return t.event.ID }

// System implements Task.
func (t *WorkTask) System() string { return workcal.SystemName }

// Run implements Task.
func (t *WorkTask) Run(ctx context.Context) error {
	t.state = StateEvaluating

	owner := t.event.OwnerAddress()
	if !t.env.allow.Allows(owner) {
		t.skip("Owner not on allow-list", owner)
		return nil
	}

	if linkedID := t.event.Metadata().LinkedID(); linkedID != "" {
		if err := t.resolveLinked(ctx, linkedID); err != nil {
			return err
		}
	} else {
		done, err := t.createAndLink(ctx, owner)
		if err != nil || !done {
			return err
		}
	}

	t.event.Metadata().SetLastSyncAt(t.env.stampTime())
	if _, err := t.env.deps.Work.SetLinkMetadata(ctx, t.event); err != nil {
		return t.fail(err)
	}
	return nil
}

// resolveLinked runs conflict resolution against the already linked
// counterpart and persists whichever side lost.
func (t *WorkTask) resolveLinked(ctx context.Context, linkedID string) error {
	counterpart, err := t.env.deps.Care.Event(ctx, linkedID)
	if err != nil {
		return t.fail(err)
	}

	if reconcile.Records(t.event, counterpart) {
		if _, err := t.env.deps.Care.UpdateEvent(ctx, counterpart); err != nil {
			return t.fail(err)
		}
	} else {
		if _, err := t.env.deps.Work.UpdateEvent(ctx, t.event); err != nil {
			return t.fail(err)
		}
	}
	t.state = StateResolved
	return nil
}

// createAndLink resolves the owner's carecal identity, synthesizes a
// placeholder on their schedule, and establishes the link both ways. A
// false return with nil error means the task skipped.
func (t *WorkTask) createAndLink(ctx context.Context, owner string) (bool, error) {
	id, err := t.env.deps.CareMatcher.Match(ctx, identity.Owner{Username: owner, Email: owner})
	if err != nil {
		return false, t.fail(err)
	}
	if id == nil {
		t.skip("No counterpart identity", owner)
		return false, nil
	}

	// The placeholder blocks the whole day on the clinician's schedule;
	// all-day widening snaps it to the source event's day.
	window := t.event.Window()
	window.AllDay = true
	placeholder := carecal.NewPlaceholder(
		window,
		id.ID,
		t.env.deps.Care.PlaceholderPatientID(),
		carecal.PlaceholderTitle(t.event.Subject),
	)
	counterpart, err := t.env.deps.Care.CreateEvent(ctx, placeholder)
	if err != nil {
		return false, t.fail(err)
	}

	pair := &link.Pair{
		First:         t.event,
		Second:        counterpart,
		FirstStore:    t.env.deps.WorkStore,
		SecondStore:   t.env.deps.CareStore,
		SecondCreated: true,
	}
	if err := pair.Establish(ctx); err != nil {
		return false, t.fail(err)
	}
	t.state = StateCreated
	return true, nil
}

func (t *WorkTask) skip(reason, owner string) {
	t.state = StateSkipped
	logging.Debug().
		Str("system", workcal.SystemName).
		Str("record_id", t.event.ID).
		Str("owner", owner).
		Msg(reason)
}

func (t *WorkTask) fail(err error) error {
	t.state = StateFailed
	return errors.NewSyncError(workcal.SystemName, t.event.ID, t.event.Metadata().LinkedID(), err)
}
