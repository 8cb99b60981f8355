// Package carecal implements the client for the care-platform scheduling
// API. Events carry link metadata in their additionalInfo map; identities
// are clinician records; list endpoints are paged.
package carecal

import (
	"strings"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/constants"
)

// SystemName identifies this system in logs and errors.
const SystemName = "carecal"

// Event statuses as the API spells them.
const (
	EventStatusScheduled = "SCHEDULED"
	EventStatusCancelled = "CANCELLED"
)

// Participant ties a person to an event in a given role.
type Participant struct {
	ParticipantRole string `json:"participantRole"`
	ParticipantID   string `json:"participantId"`
	DisplayName     string `json:"displayName,omitempty"`
}

// Event is a carecal scheduling event. It implements appointment.Record.
//
// StartLocal and EndLocal are server-derived wall-clock renderings; the API
// rejects writes that include them, so updates go through updatePayload
// which strips them.
type Event struct {
	ID             string               `json:"id"`
	Title          string               `json:"eventTitle,omitempty"`
	Mode           string               `json:"eventMode,omitempty"`
	EventStatus    string               `json:"eventStatus,omitempty"`
	Start          utc.Time             `json:"startDateTime"`
	End            utc.Time             `json:"endDateTime"`
	StartLocal     string               `json:"startDateTimeLocal,omitempty"`
	EndLocal       string               `json:"endDateTimeLocal,omitempty"`
	AllDay         bool                 `json:"allDayEvent,omitempty"`
	UpdatedAt      *utc.Time            `json:"updatedAt,omitempty"`
	HostID         string               `json:"hostId,omitempty"`
	Participants   []Participant        `json:"participants,omitempty"`
	AdditionalInfo appointment.Metadata `json:"additionalInfo,omitempty"`
}

// RecordID implements appointment.Record.
func (e *Event) RecordID() string { return e.ID }

// System implements appointment.Record.
func (e *Event) System() string { return SystemName }

// Window implements appointment.Record.
func (e *Event) Window() appointment.Window {
	return appointment.Window{Start: e.Start, End: e.End, AllDay: e.AllDay}
}

// SetWindow implements appointment.Record.
func (e *Event) SetWindow(w appointment.Window) {
	w = w.Normalized()
	e.Start = w.Start
	e.End = w.End
	e.AllDay = w.AllDay
	e.StartLocal = ""
	e.EndLocal = ""
}

// LastModifiedAt implements appointment.Record.
func (e *Event) LastModifiedAt() *utc.Time { return e.UpdatedAt }

// Metadata implements appointment.Record.
func (e *Event) Metadata() appointment.Metadata {
	if e.AdditionalInfo == nil {
		e.AdditionalInfo = appointment.Metadata{}
	}
	return e.AdditionalInfo
}

// Status maps the API's status string onto the shared status model.
func (e *Event) Status() appointment.Status {
	if strings.EqualFold(e.EventStatus, EventStatusCancelled) {
		return appointment.StatusCancelled
	}
	return appointment.StatusScheduled
}

// Patient returns the event's patient participant, if any. Events without
// one are malformed for scheduling purposes and get filtered out of list
// results.
func (e *Event) Patient() *Participant {
	for i := range e.Participants {
		if strings.EqualFold(e.Participants[i].ParticipantRole, constants.CareParticipantRolePatient) {
			return &e.Participants[i]
		}
	}
	return nil
}

// valid reports whether a listed event is worth reconciling: it must be
// scheduled and have a patient.
func (e *Event) valid() bool {
	return e.Status() == appointment.StatusScheduled && e.Patient() != nil
}

// updatePayload returns the event with the server-owned local-time fields
// stripped, since the API rejects writes that carry them.
func (e *Event) updatePayload() *Event {
	payload := *e
	payload.StartLocal = ""
	payload.EndLocal = ""
	return &payload
}

// Clinician is a carecal identity.
type Clinician struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// FullName renders the clinician's display name.
func (c *Clinician) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Practice is the tenant-level record holding the known email domains used
// for identity matching.
type Practice struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	EmailDomains []string `json:"emailDomains,omitempty"`
}

// NewPlaceholder builds an event mirroring a counterpart appointment from
// the other system. The API requires client-generated ids; the stand-in
// patient comes from configuration since every event must carry one.
func NewPlaceholder(window appointment.Window, hostID, patientID, title string) *Event {
	e := &Event{
		ID:          uuid.NewString(),
		Title:       title,
		Mode:        constants.CareEventModeInPerson,
		EventStatus: EventStatusScheduled,
		HostID:      hostID,
		Participants: []Participant{
			{ParticipantRole: constants.CareParticipantRoleProvider, ParticipantID: hostID},
			{ParticipantRole: constants.CareParticipantRolePatient, ParticipantID: patientID},
		},
	}
	e.SetWindow(window)
	e.Metadata().MarkPlaceholder()
	return e
}

// PlaceholderTitle derives the placeholder title from the source event's
// subject so a human reader can trace it back.
func PlaceholderTitle(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Workplace appointment"
	}
	return "Workplace appointment - " + subject
}
