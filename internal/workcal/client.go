package workcal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/internal/cache"
	"github.com/caremesh/calsync/internal/transport"
	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/constants"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/identity"
)

// Config carries the connection settings for a workcal client. User is the
// principal whose calendar this engine reconciles.
type Config struct {
	BaseURL string
	User    string
	Token   string
}

// Validate checks the config before any task runs.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return &errors.ConfigError{Component: "workcal", Message: "base URL is required"}
	}
	if c.User == "" {
		return &errors.ConfigError{Component: "workcal", Message: "user principal is required"}
	}
	if c.Token == "" {
		return errors.ErrCredentialsRequired
	}
	return nil
}

// Client talks to the workcal API. All reads go through the lookup cache;
// write responses are cached under the read key so the system's
// read-after-write lag never forces a stale re-read.
type Client struct {
	http    *transport.Client
	baseURL string
	user    string
	cache   *cache.Cache
}

// New creates a workcal client.
func New(cfg Config, c *cache.Cache) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		http:    transport.New(SystemName, &transport.BearerAuth{}, cfg.Token),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		user:    cfg.User,
		cache:   c,
	}, nil
}

// listEnvelope is the API's wrapper around collection responses.
type listEnvelope[T any] struct {
	Value []T `json:"value"`
}

// EventsChangedSince returns the user's events modified at or after the
// given instant, with the engine's extension expanded.
func (c *Client) EventsChangedSince(ctx context.Context, since utc.Time) ([]*Event, error) {
	filter := fmt.Sprintf("lastModifiedDateTime ge %s", since.Format("2006-01-02T15:04:05Z"))
	u := c.eventsURL() + "?" + query(map[string]string{
		"$filter": filter,
		"$expand": "extensions",
		"$top":    fmt.Sprint(constants.DefaultPageSize),
	})

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	var envelope listEnvelope[*Event]
	if err := transport.DecodeResponse(SystemName, resp, &envelope); err != nil {
		return nil, err
	}
	return envelope.Value, nil
}

// EventsBetween lists the user's events occurring inside [from, to), with
// the engine's extension expanded. Orphan cleanup walks this forward
// window looking for placeholders.
func (c *Client) EventsBetween(ctx context.Context, from, to utc.Time) ([]*Event, error) {
	u := c.userURL() + "/calendarView?" + query(map[string]string{
		"startDateTime": from.Format(time.RFC3339),
		"endDateTime":   to.Format(time.RFC3339),
		"$expand":       "extensions",
		"$top":          fmt.Sprint(constants.DefaultPageSize),
	})

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	var envelope listEnvelope[*Event]
	if err := transport.DecodeResponse(SystemName, resp, &envelope); err != nil {
		return nil, err
	}
	return envelope.Value, nil
}

// Event fetches one event by id, including the engine's extension.
func (c *Client) Event(ctx context.Context, id string) (*Event, error) {
	v, err := c.cache.GetOrSet(eventKey(id), func() (any, error) {
		u := c.eventsURL() + "/" + url.PathEscape(id) + "?" + query(map[string]string{"$expand": "extensions"})
		resp, err := c.http.Get(ctx, u)
		if err != nil {
			return nil, err
		}
		var event Event
		if err := transport.DecodeResponse(SystemName, resp, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Event), nil
}

// EventByExternalKey finds the event whose link metadata points at the
// given counterpart id. Exact match, not a search; at most one event can
// hold a given key.
func (c *Client) EventByExternalKey(ctx context.Context, key string) (*Event, error) {
	filter := fmt.Sprintf("extensions/any(f:f/%s eq '%s')", constants.MetaLinkedID, key)
	u := c.eventsURL() + "?" + query(map[string]string{
		"$filter": filter,
		"$expand": "extensions",
	})

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	var envelope listEnvelope[*Event]
	if err := transport.DecodeResponse(SystemName, resp, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Value) == 0 {
		return nil, &errors.NotFoundError{System: SystemName, Resource: "event", ID: key}
	}
	return envelope.Value[0], nil
}

// CreateEvent creates an event on the user's default calendar and returns
// it as persisted.
func (c *Client) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	return c.create(ctx, c.eventsURL(), event)
}

// CreateEventFor creates an event on another user's default calendar, used
// when a counterpart placeholder belongs to a matched identity rather than
// the configured principal.
func (c *Client) CreateEventFor(ctx context.Context, user string, event *Event) (*Event, error) {
	u := c.baseURL + "/users/" + url.PathEscape(user) + "/events"
	return c.create(ctx, u, event)
}

// CreateCalendarEvent creates an event on a specific named calendar, used
// by the shared calendar variant.
func (c *Client) CreateCalendarEvent(ctx context.Context, calendarID string, event *Event) (*Event, error) {
	u := c.userURL() + "/calendars/" + url.PathEscape(calendarID) + "/events"
	return c.create(ctx, u, event)
}

func (c *Client) create(ctx context.Context, u string, event *Event) (*Event, error) {
	payload := *event
	payload.Extensions = []*Extension{event.syncExtension()}

	resp, err := c.http.Send(ctx, http.MethodPost, u, &payload)
	if err != nil {
		return nil, err
	}
	var created Event
	if err := transport.DecodeResponse(SystemName, resp, &created); err != nil {
		return nil, err
	}
	c.cache.Set(eventKey(created.ID), &created)
	return &created, nil
}

// UpdateEvent persists the event's schedule fields and returns the echoed
// record.
func (c *Client) UpdateEvent(ctx context.Context, event *Event) (*Event, error) {
	patch := map[string]any{
		"subject":  event.Subject,
		"start":    event.Start,
		"end":      event.End,
		"isAllDay": event.IsAllDay,
	}
	return c.patch(ctx, event.ID, patch)
}

// SetLinkMetadata persists the event's current metadata map into its open
// extension and returns the event as stored, so the caller can verify the
// write landed.
func (c *Client) SetLinkMetadata(ctx context.Context, event *Event) (*Event, error) {
	patch := map[string]any{
		"extensions": []*Extension{event.syncExtension()},
	}
	return c.patch(ctx, event.ID, patch)
}

func (c *Client) patch(ctx context.Context, id string, patch map[string]any) (*Event, error) {
	u := c.eventsURL() + "/" + url.PathEscape(id)
	resp, err := c.http.Send(ctx, http.MethodPatch, u, patch)
	if err != nil {
		return nil, err
	}
	var updated Event
	if err := transport.DecodeResponse(SystemName, resp, &updated); err != nil {
		return nil, err
	}
	c.cache.Set(eventKey(updated.ID), &updated)
	return &updated, nil
}

// CancelEvent retires an event by cancellation. Records are never
// hard-deleted on cleanup.
func (c *Client) CancelEvent(ctx context.Context, event *Event) error {
	updated, err := c.patch(ctx, event.ID, map[string]any{"isCancelled": true})
	if err != nil {
		return err
	}
	event.IsCancelled = updated.IsCancelled
	return nil
}

// DeleteEvent removes an event. Only ever called for records this engine
// created itself, during link rollback.
func (c *Client) DeleteEvent(ctx context.Context, event *Event) error {
	u := c.eventsURL() + "/" + url.PathEscape(event.ID)
	resp, err := c.http.Send(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	c.cache.Delete(eventKey(event.ID))
	return transport.DecodeResponse(SystemName, resp, nil)
}

// Domains lists the tenant's verified email domains, cached for the run.
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	v, err := c.cache.GetOrSet("workcal:domains", func() (any, error) {
		resp, err := c.http.Get(ctx, c.baseURL+"/domains")
		if err != nil {
			return nil, err
		}
		var envelope listEnvelope[Domain]
		if err := transport.DecodeResponse(SystemName, resp, &envelope); err != nil {
			return nil, err
		}
		domains := make([]string, 0, len(envelope.Value))
		for _, d := range envelope.Value {
			if d.IsVerified {
				domains = append(domains, d.ID)
			}
		}
		return domains, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// UserByAddress resolves a user by principal address. A 404 surfaces as a
// not-found error, which the identity matcher treats as "try the next
// candidate".
func (c *Client) UserByAddress(ctx context.Context, address string) (*User, error) {
	v, err := c.cache.GetOrSet("workcal:user:"+address, func() (any, error) {
		resp, err := c.http.Get(ctx, c.baseURL+"/users/"+url.PathEscape(address))
		if err != nil {
			return nil, err
		}
		var user User
		if err := transport.DecodeResponse(SystemName, resp, &user); err != nil {
			return nil, err
		}
		return &user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*User), nil
}

// CalendarByName finds one of the user's calendars by case-insensitive
// name, used to pin the shared calendar variant to its target.
func (c *Client) CalendarByName(ctx context.Context, name string) (*Calendar, error) {
	v, err := c.cache.GetOrSet("workcal:calendars", func() (any, error) {
		resp, err := c.http.Get(ctx, c.userURL()+"/calendars")
		if err != nil {
			return nil, err
		}
		var envelope listEnvelope[*Calendar]
		if err := transport.DecodeResponse(SystemName, resp, &envelope); err != nil {
			return nil, err
		}
		return envelope.Value, nil
	})
	if err != nil {
		return nil, err
	}
	for _, cal := range v.([]*Calendar) {
		if strings.EqualFold(cal.Name, name) {
			return cal, nil
		}
	}
	return nil, &errors.NotFoundError{System: SystemName, Resource: "calendar", ID: name}
}

func (c *Client) userURL() string {
	return c.baseURL + "/users/" + url.PathEscape(c.user)
}

func (c *Client) eventsURL() string {
	return c.userURL() + "/events"
}

func eventKey(id string) string {
	return "workcal:event:" + id
}

func query(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// Store adapts the client to the link protocol's persistence surface.
type Store struct {
	client *Client
}

// LinkStore returns the client's link.Store adapter.
func (c *Client) LinkStore() *Store {
	return &Store{client: c}
}

// SaveLink implements link.Store.
func (s *Store) SaveLink(ctx context.Context, rec appointment.Record, linkedID string) (appointment.Record, error) {
	event, ok := rec.(*Event)
	if !ok {
		return nil, &errors.ValidationError{Field: "record", Message: "not a workcal event"}
	}
	event.Metadata().SetLinkedID(linkedID)
	return s.client.SetLinkMetadata(ctx, event)
}

// ClearLink implements link.Store.
func (s *Store) ClearLink(ctx context.Context, rec appointment.Record) error {
	event, ok := rec.(*Event)
	if !ok {
		return &errors.ValidationError{Field: "record", Message: "not a workcal event"}
	}
	event.Metadata().ClearLinkedID()
	_, err := s.client.SetLinkMetadata(ctx, event)
	return err
}

// Delete implements link.Store.
func (s *Store) Delete(ctx context.Context, rec appointment.Record) error {
	event, ok := rec.(*Event)
	if !ok {
		return &errors.ValidationError{Field: "record", Message: "not a workcal event"}
	}
	return s.client.DeleteEvent(ctx, event)
}

// Directory adapts the client to the identity matcher's lookup surface.
type Directory struct {
	client *Client
}

// Directory returns the client's identity.Directory adapter.
func (c *Client) Directory() *Directory {
	return &Directory{client: c}
}

// Domains implements identity.Directory.
func (d *Directory) Domains(ctx context.Context) ([]string, error) {
	return d.client.Domains(ctx)
}

// FindByAddress implements identity.Directory.
func (d *Directory) FindByAddress(ctx context.Context, address string) (*identity.Identity, error) {
	user, err := d.client.UserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	addr := user.Mail
	if addr == "" {
		addr = user.UserPrincipalName
	}
	return &identity.Identity{ID: user.ID, Address: addr, Name: user.DisplayName}, nil
}
