package sync

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/internal/workcal"
	"github.com/caremesh/calsync/pkg/identity"
	"github.com/caremesh/calsync/pkg/link"
)

// WorkClient is the surface of the workcal client the run depends on.
type WorkClient interface {
	EventsChangedSince(ctx context.Context, since utc.Time) ([]*workcal.Event, error)
	EventsBetween(ctx context.Context, from, to utc.Time) ([]*workcal.Event, error)
	Event(ctx context.Context, id string) (*workcal.Event, error)
	EventByExternalKey(ctx context.Context, key string) (*workcal.Event, error)
	CreateEventFor(ctx context.Context, user string, event *workcal.Event) (*workcal.Event, error)
	CreateCalendarEvent(ctx context.Context, calendarID string, event *workcal.Event) (*workcal.Event, error)
	UpdateEvent(ctx context.Context, event *workcal.Event) (*workcal.Event, error)
	SetLinkMetadata(ctx context.Context, event *workcal.Event) (*workcal.Event, error)
	CancelEvent(ctx context.Context, event *workcal.Event) error
	CalendarByName(ctx context.Context, name string) (*workcal.Calendar, error)
}

// CareClient is the surface of the carecal client the run depends on.
type CareClient interface {
	EventsOccurring(ctx context.Context, from, to utc.Time) ([]*carecal.Event, error)
	Event(ctx context.Context, id string) (*carecal.Event, error)
	CreateEvent(ctx context.Context, event *carecal.Event) (*carecal.Event, error)
	UpdateEvent(ctx context.Context, event *carecal.Event) (*carecal.Event, error)
	CancelEvent(ctx context.Context, event *carecal.Event) error
	Clinician(ctx context.Context, id string) (*carecal.Clinician, error)
	PlaceholderPatientID() string
}

// Deps bundles the collaborators every task shares. All of them are
// injected; the engine holds no process-wide singletons.
type Deps struct {
	Work WorkClient
	Care CareClient

	// Link persistence for each side, normally the clients' own adapters.
	WorkStore link.Store
	CareStore link.Store

	// CareMatcher resolves a workcal owner to a carecal clinician;
	// WorkResolver decides where on workcal a carecal event's counterpart
	// belongs.
	CareMatcher  *identity.Matcher
	WorkResolver CounterpartResolver
}
