package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/internal/cache"
	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/internal/workcal"
	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/identity"
)

// fakeWork is an in-memory WorkClient that records every write.
type fakeWork struct {
	changed   []*workcal.Event
	between   []*workcal.Event
	events    map[string]*workcal.Event
	calendars []*workcal.Calendar

	eventErr map[string]error

	created       []*workcal.Event
	createTargets []string
	updated       []string
	metaWrites    []string
	cancelled     []string

	nextID int
}

func newFakeWork() *fakeWork {
	return &fakeWork{events: map[string]*workcal.Event{}, eventErr: map[string]error{}}
}

func (f *fakeWork) EventsChangedSince(context.Context, utc.Time) ([]*workcal.Event, error) {
	return f.changed, nil
}

func (f *fakeWork) EventsBetween(context.Context, utc.Time, utc.Time) ([]*workcal.Event, error) {
	return f.between, nil
}

func (f *fakeWork) Event(_ context.Context, id string) (*workcal.Event, error) {
	if err := f.eventErr[id]; err != nil {
		return nil, err
	}
	if event, ok := f.events[id]; ok {
		return event, nil
	}
	return nil, &errors.NotFoundError{System: workcal.SystemName, Resource: "event", ID: id}
}

func (f *fakeWork) EventByExternalKey(_ context.Context, key string) (*workcal.Event, error) {
	for _, event := range f.events {
		if event.Metadata().LinkedID() == key {
			return event, nil
		}
	}
	return nil, &errors.NotFoundError{System: workcal.SystemName, Resource: "event", ID: key}
}

func (f *fakeWork) CreateEventFor(_ context.Context, user string, event *workcal.Event) (*workcal.Event, error) {
	f.createTargets = append(f.createTargets, "user:"+user)
	return f.create(event), nil
}

func (f *fakeWork) CreateCalendarEvent(_ context.Context, calendarID string, event *workcal.Event) (*workcal.Event, error) {
	f.createTargets = append(f.createTargets, "calendar:"+calendarID)
	return f.create(event), nil
}

func (f *fakeWork) create(event *workcal.Event) *workcal.Event {
	f.nextID++
	event.ID = fmt.Sprintf("w-new-%d", f.nextID)
	f.events[event.ID] = event
	f.created = append(f.created, event)
	return event
}

func (f *fakeWork) UpdateEvent(_ context.Context, event *workcal.Event) (*workcal.Event, error) {
	f.updated = append(f.updated, event.ID)
	return event, nil
}

func (f *fakeWork) SetLinkMetadata(_ context.Context, event *workcal.Event) (*workcal.Event, error) {
	f.metaWrites = append(f.metaWrites, event.ID)
	return event, nil
}

func (f *fakeWork) CancelEvent(_ context.Context, event *workcal.Event) error {
	f.cancelled = append(f.cancelled, event.ID)
	event.IsCancelled = true
	return nil
}

func (f *fakeWork) CalendarByName(_ context.Context, name string) (*workcal.Calendar, error) {
	for _, cal := range f.calendars {
		if cal.Name == name {
			return cal, nil
		}
	}
	return nil, &errors.NotFoundError{System: workcal.SystemName, Resource: "calendar", ID: name}
}

// fakeCare is an in-memory CareClient that records every write.
type fakeCare struct {
	occurring  []*carecal.Event
	events     map[string]*carecal.Event
	clinicians map[string]*carecal.Clinician

	eventErr map[string]error

	created   []*carecal.Event
	updated   []string
	cancelled []string
}

func newFakeCare() *fakeCare {
	return &fakeCare{
		events:     map[string]*carecal.Event{},
		clinicians: map[string]*carecal.Clinician{},
		eventErr:   map[string]error{},
	}
}

func (f *fakeCare) EventsOccurring(context.Context, utc.Time, utc.Time) ([]*carecal.Event, error) {
	return f.occurring, nil
}

func (f *fakeCare) Event(_ context.Context, id string) (*carecal.Event, error) {
	if err := f.eventErr[id]; err != nil {
		return nil, err
	}
	if event, ok := f.events[id]; ok {
		return event, nil
	}
	return nil, &errors.NotFoundError{System: carecal.SystemName, Resource: "event", ID: id}
}

func (f *fakeCare) CreateEvent(_ context.Context, event *carecal.Event) (*carecal.Event, error) {
	f.events[event.ID] = event
	f.created = append(f.created, event)
	return event, nil
}

func (f *fakeCare) UpdateEvent(_ context.Context, event *carecal.Event) (*carecal.Event, error) {
	f.updated = append(f.updated, event.ID)
	return event, nil
}

func (f *fakeCare) CancelEvent(_ context.Context, event *carecal.Event) error {
	f.cancelled = append(f.cancelled, event.ID)
	event.EventStatus = carecal.EventStatusCancelled
	return nil
}

func (f *fakeCare) Clinician(_ context.Context, id string) (*carecal.Clinician, error) {
	if clinician, ok := f.clinicians[id]; ok {
		return clinician, nil
	}
	return nil, &errors.NotFoundError{System: carecal.SystemName, Resource: "clinician", ID: id}
}

func (f *fakeCare) PlaceholderPatientID() string { return "pat-0" }

// fakeStore is an in-memory link.Store whose echo always matches the
// write, unless told to fail.
type fakeStore struct {
	saveErr error

	saves   int
	clears  int
	deleted []string
}

func (s *fakeStore) SaveLink(_ context.Context, rec appointment.Record, linkedID string) (appointment.Record, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.saves++
	rec.Metadata().SetLinkedID(linkedID)
	return rec, nil
}

func (s *fakeStore) ClearLink(_ context.Context, rec appointment.Record) error {
	s.clears++
	rec.Metadata().ClearLinkedID()
	return nil
}

func (s *fakeStore) Delete(_ context.Context, rec appointment.Record) error {
	s.deleted = append(s.deleted, rec.RecordID())
	return nil
}

// fakeResolver returns a fixed workcal target.
type fakeResolver struct {
	target *Target
	err    error
}

func (r *fakeResolver) Resolve(context.Context, *carecal.Clinician) (*Target, error) {
	return r.target, r.err
}

// fakeDirectory backs the care-side identity matcher.
type fakeDirectory struct {
	domains    []string
	identities map[string]*identity.Identity
}

func (d *fakeDirectory) Domains(context.Context) ([]string, error) {
	return d.domains, nil
}

func (d *fakeDirectory) FindByAddress(_ context.Context, address string) (*identity.Identity, error) {
	if id, ok := d.identities[address]; ok {
		return id, nil
	}
	return nil, &errors.NotFoundError{Resource: "identity", ID: address}
}

// harness bundles a runner with its fakes for the end-to-end tests.
type harness struct {
	work      *fakeWork
	care      *fakeCare
	workStore *fakeStore
	careStore *fakeStore
	directory *fakeDirectory
	runner    *Runner
}

var t0 = utc.New(time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC))

func newHarness(opts ...Option) *harness {
	h := &harness{
		work:      newFakeWork(),
		care:      newFakeCare(),
		workStore: &fakeStore{},
		careStore: &fakeStore{},
		directory: &fakeDirectory{domains: []string{"clinic.example"}, identities: map[string]*identity.Identity{}},
	}
	matcher := identity.NewMatcher(h.directory, cache.New(time.Minute, 64))

	deps := Deps{
		Work:         h.work,
		Care:         h.care,
		WorkStore:    h.workStore,
		CareStore:    h.careStore,
		CareMatcher:  matcher,
		WorkResolver: &fakeResolver{target: &Target{User: "jdoe@corp.example"}},
	}
	opts = append([]Option{WithClock(func() utc.Time { return t0 })}, opts...)

	runner, err := NewRunner(deps, opts...)
	if err != nil {
		panic(err)
	}
	h.runner = runner
	return h
}

func timedWindow(start, end time.Time) appointment.Window {
	return appointment.Window{Start: utc.New(start), End: utc.New(end)}
}

func workEvent(id, owner string, lastModified *utc.Time) *workcal.Event {
	event := &workcal.Event{
		ID:           id,
		Subject:      "Checkup",
		LastModified: lastModified,
		Organizer:    &workcal.Recipient{EmailAddress: workcal.EmailAddress{Address: owner}},
	}
	event.SetWindow(timedWindow(
		time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 5, 9, 30, 0, 0, time.UTC),
	))
	return event
}

func careEvent(id, hostID string, updatedAt *utc.Time) *carecal.Event {
	event := &carecal.Event{
		ID:          id,
		Title:       "Visit",
		EventStatus: carecal.EventStatusScheduled,
		UpdatedAt:   updatedAt,
		HostID:      hostID,
		Participants: []carecal.Participant{
			{ParticipantRole: "patient", ParticipantID: "pat-1", DisplayName: "Ada Nkemka"},
		},
	}
	event.SetWindow(timedWindow(
		time.Date(2025, 6, 6, 14, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 6, 15, 0, 0, 0, time.UTC),
	))
	return event
}

func instant(t time.Time) *utc.Time {
	u := utc.New(t)
	return &u
}

func clinician(id string) *carecal.Clinician {
	return &carecal.Clinician{ID: id, Username: "jdoe", Email: "jdoe@clinic.example", FirstName: "Jan", LastName: "Doe"}
}
