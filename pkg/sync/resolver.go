package sync

import (
	"context"

	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/pkg/identity"
)

// Target names where on workcal a counterpart placeholder should live:
// a user's default calendar, or one specific calendar of the configured
// principal.
type Target struct {
	User       string
	CalendarID string
}

// CounterpartResolver decides the workcal destination for a carecal event's
// counterpart. A (nil, nil) return means no destination exists and the task
// should skip, not fail.
type CounterpartResolver interface {
	Resolve(ctx context.Context, clinician *carecal.Clinician) (*Target, error)
}

// MatcherResolver resolves per-clinician: candidate addresses derived from
// the clinician's username and email are probed against the workcal tenant.
type MatcherResolver struct {
	Matcher *identity.Matcher
}

// Resolve implements CounterpartResolver.
func (r *MatcherResolver) Resolve(ctx context.Context, clinician *carecal.Clinician) (*Target, error) {
	owner := identity.Owner{Username: clinician.Username, Email: clinician.Email}
	id, err := r.Matcher.Match(ctx, owner)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}
	return &Target{User: id.Address}, nil
}

// SharedCalendarResolver pins every counterpart to one pre-configured
// calendar, ignoring the clinician. Same state machine, fixed identity.
type SharedCalendarResolver struct {
	Work         WorkClient
	User         string
	CalendarName string
}

// Resolve implements CounterpartResolver.
func (r *SharedCalendarResolver) Resolve(ctx context.Context, _ *carecal.Clinician) (*Target, error) {
	cal, err := r.Work.CalendarByName(ctx, r.CalendarName)
	if err != nil {
		return nil, err
	}
	return &Target{User: r.User, CalendarID: cal.ID}, nil
}
