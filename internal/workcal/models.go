// Package workcal implements the client for the workplace calendar system,
// a Microsoft-Graph-style API. Events carry link metadata in an open
// extension; identities are user principals; tenant email domains are
// listed for identity matching.
package workcal

import (
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/constants"
	"github.com/caremesh/calsync/pkg/errors"
)

// SystemName identifies this system in logs and errors.
const SystemName = "workcal"

// ExtensionName is the open extension that carries the engine's link
// metadata on an event.
const ExtensionName = "com.caremesh.calsync"

// graphTimeLayout is the wall-clock format the API uses inside dateTimeZone
// values. The zone travels separately in the TimeZone field.
const graphTimeLayout = "2006-01-02T15:04:05.9999999"

// DateTimeZone is the API's split representation of an instant.
type DateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// NewDateTimeZone renders t in the fixed UTC label the engine always writes.
func NewDateTimeZone(t utc.Time) *DateTimeZone {
	return &DateTimeZone{
		DateTime: t.Format(graphTimeLayout),
		TimeZone: constants.UTCTimezoneLabel,
	}
}

// Time parses the value back into an instant. Values without an explicit
// offset are interpreted in the attached zone, which this engine only ever
// writes as UTC.
func (d *DateTimeZone) Time() (utc.Time, error) {
	if d == nil {
		return utc.Time{}, &errors.ValidationError{Field: "dateTimeZone", Message: "missing"}
	}
	for _, layout := range []string{graphTimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := utc.Parse(layout, d.DateTime); err == nil {
			return t, nil
		}
	}
	return utc.Time{}, &errors.ParseError{Format: "dateTimeZone", Source: d.DateTime, Message: "unrecognized instant format"}
}

// EmailAddress is a name/address pair as the API represents recipients.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Recipient wraps an EmailAddress, matching the API's nesting.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// ItemBody is the event body with its content type.
type ItemBody struct {
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`
}

// Extension is an open extension attached to an event. The engine reads and
// writes only its own extension, identified by ExtensionName.
type Extension struct {
	ExtensionName string            `json:"extensionName"`
	Data          map[string]string `json:"data,omitempty"`
}

// Event is a workcal calendar event. It implements appointment.Record.
type Event struct {
	ID           string        `json:"id,omitempty"`
	Subject      string        `json:"subject,omitempty"`
	Body         *ItemBody     `json:"body,omitempty"`
	Start        *DateTimeZone `json:"start,omitempty"`
	End          *DateTimeZone `json:"end,omitempty"`
	IsAllDay     bool          `json:"isAllDay,omitempty"`
	IsCancelled  bool          `json:"isCancelled,omitempty"`
	LastModified *utc.Time     `json:"lastModifiedDateTime,omitempty"`
	Organizer    *Recipient    `json:"organizer,omitempty"`
	Extensions   []*Extension  `json:"extensions,omitempty"`

	meta appointment.Metadata
}

// RecordID implements appointment.Record.
func (e *Event) RecordID() string { return e.ID }

// System implements appointment.Record.
func (e *Event) System() string { return SystemName }

// Window implements appointment.Record. Unparseable instants collapse to the
// zero time rather than failing; the API owns their validity.
func (e *Event) Window() appointment.Window {
	start, _ := e.Start.Time()
	end, _ := e.End.Time()
	return appointment.Window{Start: start, End: end, AllDay: e.IsAllDay}
}

// SetWindow implements appointment.Record.
func (e *Event) SetWindow(w appointment.Window) {
	w = w.Normalized()
	e.Start = NewDateTimeZone(w.Start)
	e.End = NewDateTimeZone(w.End)
	e.IsAllDay = w.AllDay
}

// LastModifiedAt implements appointment.Record.
func (e *Event) LastModifiedAt() *utc.Time { return e.LastModified }

// Metadata implements appointment.Record. The returned map is backed by the
// engine's open extension; first access materializes it from the wire form.
func (e *Event) Metadata() appointment.Metadata {
	if e.meta == nil {
		e.meta = appointment.Metadata{}
		if ext := e.extension(); ext != nil {
			for k, v := range ext.Data {
				e.meta[k] = v
			}
		}
	}
	return e.meta
}

// Status maps the event's cancellation flag onto the shared status model.
func (e *Event) Status() appointment.Status {
	if e.IsCancelled {
		return appointment.StatusCancelled
	}
	return appointment.StatusScheduled
}

// OwnerAddress returns the organizer's address, or "" for events with no
// organizer.
func (e *Event) OwnerAddress() string {
	if e.Organizer == nil {
		return ""
	}
	return e.Organizer.EmailAddress.Address
}

// syncExtension renders the current metadata map back into wire form for a
// metadata write.
func (e *Event) syncExtension() *Extension {
	data := make(map[string]string, len(e.Metadata()))
	for k, v := range e.Metadata() {
		data[k] = v
	}
	return &Extension{ExtensionName: ExtensionName, Data: data}
}

func (e *Event) extension() *Extension {
	for _, ext := range e.Extensions {
		if ext != nil && ext.ExtensionName == ExtensionName {
			return ext
		}
	}
	return nil
}

// User is a workcal identity.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	Mail              string `json:"mail,omitempty"`
}

// Calendar is a named calendar belonging to a user, used by the shared
// calendar sync variant.
type Calendar struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner *EmailAddress `json:"owner,omitempty"`
}

// Domain is a tenant email domain.
type Domain struct {
	ID         string `json:"id"`
	IsVerified bool   `json:"isVerified"`
}

// NewPlaceholder builds an event that mirrors a counterpart appointment
// from the other system. The event carries the placeholder marker from
// birth so cleanup can later tell it apart from user-created events.
func NewPlaceholder(window appointment.Window, subject, organizer string) *Event {
	e := &Event{
		Subject: subject,
		Body: &ItemBody{
			ContentType: "html",
			Content:     "<p>Blocked for a care platform appointment. Changes here are mirrored back.</p>",
		},
	}
	if organizer != "" {
		e.Organizer = &Recipient{EmailAddress: EmailAddress{Address: organizer}}
	}
	e.SetWindow(window)
	e.Metadata().MarkPlaceholder()
	return e
}

// PlaceholderSubject derives the placeholder title from the counterpart's
// context, referencing the source so a human reader can trace it.
func PlaceholderSubject(patientName string) string {
	name := strings.TrimSpace(patientName)
	if name == "" {
		return "Care appointment"
	}
	return "Care appointment - " + name
}
