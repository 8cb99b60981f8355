package carecal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/calsync/internal/cache"
	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL, Token: "tok", PlaceholderPatientID: "pat-0"}, cache.New(time.Minute, 64))
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func eventJSON(id, status string, withPatient bool) map[string]any {
	e := map[string]any{
		"id":            id,
		"eventTitle":    "Visit",
		"eventStatus":   status,
		"startDateTime": "2025-06-05T09:00:00Z",
		"endDateTime":   "2025-06-05T09:30:00Z",
		"updatedAt":     "2025-06-03T10:00:00Z",
	}
	if withPatient {
		e["participants"] = []map[string]any{
			{"participantRole": "patient", "participantId": "pat-1"},
		}
	}
	return e
}

func TestConfigValidate(t *testing.T) {
	assert.True(t, errors.Is(Config{BaseURL: "http://x", PlaceholderPatientID: "p"}.Validate(), errors.ErrCredentialsRequired))

	var confErr *errors.ConfigError
	assert.True(t, errors.As(Config{BaseURL: "http://x", Token: "t"}.Validate(), &confErr))
}

func TestEventsOccurringPagesDedupesAndFilters(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 0:
			writeJSON(t, w, map[string]any{
				"data": []any{
					eventJSON("c1", EventStatusScheduled, true),
					eventJSON("c2", EventStatusCancelled, true),
					eventJSON("c3", EventStatusScheduled, false),
				},
				"metaInfo": map[string]int{"page": 0, "totalPages": 2},
			})
		case 1:
			writeJSON(t, w, map[string]any{
				"data": []any{
					eventJSON("c1", EventStatusScheduled, true),
					eventJSON("c4", EventStatusScheduled, true),
				},
				"metaInfo": map[string]int{"page": 1, "totalPages": 2},
			})
		default:
			t.Fatalf("unexpected page %d", page)
		}
	}))

	from := utc.New(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	to := utc.New(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC))
	events, err := client.EventsOccurring(context.Background(), from, to)
	require.NoError(t, err)

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"c1", "c4"}, ids, "duplicates, cancelled, and patient-less events drop out")
}

func TestEventNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	_, err := client.Event(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))

	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, SystemName, apiErr.System)
}

func TestCreateEventCachesWriteResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var payload Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload.ID, "placeholder ids are client-generated")
		assert.True(t, payload.Metadata().IsPlaceholder())
		assert.Equal(t, "cl-1", payload.HostID)
		assert.Len(t, payload.Participants, 2, "host provider plus the dummy patient")
		writeJSON(t, w, &payload)
	}))

	window := appointment.Window{
		Start: utc.New(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)),
		End:   utc.New(time.Date(2025, 6, 5, 9, 30, 0, 0, time.UTC)),
	}
	placeholder := NewPlaceholder(window, "cl-1", client.PlaceholderPatientID(), PlaceholderTitle("Checkup"))

	created, err := client.CreateEvent(context.Background(), placeholder)
	require.NoError(t, err)

	// The write response must satisfy the next read without a round trip.
	again, err := client.Event(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Same(t, created, again)
}

func TestUpdateEventStripsLocalTimes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotContains(t, payload, "startDateTimeLocal")
		assert.NotContains(t, payload, "endDateTimeLocal")
		writeJSON(t, w, eventJSON("c1", EventStatusScheduled, true))
	}))

	event := &Event{
		ID:         "c1",
		Start:      utc.New(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)),
		End:        utc.New(time.Date(2025, 6, 5, 9, 30, 0, 0, time.UTC)),
		StartLocal: "2025-06-05T05:00:00",
		EndLocal:   "2025-06-05T05:30:00",
	}
	_, err := client.UpdateEvent(context.Background(), event)
	require.NoError(t, err)
}

func TestCancelEventIsStatusTransition(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, EventStatusCancelled, payload["eventStatus"])
		writeJSON(t, w, eventJSON("c1", EventStatusCancelled, true))
	}))

	event := &Event{ID: "c1", EventStatus: EventStatusScheduled}
	require.NoError(t, client.CancelEvent(context.Background(), event))
	assert.Equal(t, appointment.StatusCancelled, event.Status())
}

func TestClinicianByEmailEmptyIsNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clinicians", r.URL.Path)
		writeJSON(t, w, map[string]any{"data": []any{}})
	}))

	_, err := client.Directory().FindByAddress(context.Background(), "ghost@clinic.example")
	assert.True(t, errors.IsNotFound(err))
}

func TestDirectoryResolvesClinician(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/practice":
			writeJSON(t, w, map[string]any{"id": "pr-1", "emailDomains": []string{"clinic.example"}})
		case "/clinicians":
			assert.Equal(t, "jdoe@clinic.example", r.URL.Query().Get("email"))
			writeJSON(t, w, map[string]any{"data": []map[string]any{
				{"id": "cl-9", "email": "jdoe@clinic.example", "firstName": "Jan", "lastName": "Doe"},
			}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	domains, err := client.Directory().Domains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clinic.example"}, domains)

	id, err := client.Directory().FindByAddress(context.Background(), "jdoe@clinic.example")
	require.NoError(t, err)
	assert.Equal(t, "cl-9", id.ID)
	assert.Equal(t, "Jan Doe", id.Name)
}

func TestPatientLookupIsRoleInsensitive(t *testing.T) {
	event := &Event{Participants: []Participant{
		{ParticipantRole: "PROVIDER", ParticipantID: "cl-1"},
		{ParticipantRole: "Patient", ParticipantID: "pat-1"},
	}}
	patient := event.Patient()
	require.NotNil(t, patient)
	assert.Equal(t, "pat-1", patient.ParticipantID)
}
