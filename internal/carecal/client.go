package carecal

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/go-resty/resty/v2"

	"github.com/caremesh/calsync/internal/cache"
	"github.com/caremesh/calsync/pkg/appointment"
	"github.com/caremesh/calsync/pkg/constants"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/identity"
	"github.com/caremesh/calsync/pkg/logging"
)

// Config carries the connection settings for a carecal client.
// PlaceholderPatientID names the stand-in patient attached to placeholder
// events, since the API requires a patient on every event.
type Config struct {
	BaseURL              string
	Token                string
	PlaceholderPatientID string
}

// Validate checks the config before any task runs.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return &errors.ConfigError{Component: "carecal", Message: "base URL is required"}
	}
	if c.Token == "" {
		return errors.ErrCredentialsRequired
	}
	if c.PlaceholderPatientID == "" {
		return &errors.ConfigError{Component: "carecal", Message: "placeholder patient id is required"}
	}
	return nil
}

// Client talks to the carecal API. Reads go through the lookup cache and
// write responses are cached under the read key, same policy as the workcal
// side.
type Client struct {
	rest  *resty.Client
	cache *cache.Cache

	placeholderPatientID string
}

// New creates a carecal client.
func New(cfg Config, c *cache.Cache) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetTimeout(constants.DefaultHTTPTimeout).
		SetHeader("Accept", "application/json")
	return &Client{rest: rest, cache: c, placeholderPatientID: cfg.PlaceholderPatientID}, nil
}

// PlaceholderPatientID returns the configured stand-in patient.
func (c *Client) PlaceholderPatientID() string {
	return c.placeholderPatientID
}

// pagedEvents is the API's envelope for event list responses.
type pagedEvents struct {
	Data     []*Event `json:"data"`
	MetaInfo struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"metaInfo"`
}

// EventsOccurring lists events whose window falls inside [from, to),
// walking every page. Results are de-duplicated by id, and events that are
// cancelled or carry no patient are dropped.
func (c *Client) EventsOccurring(ctx context.Context, from, to utc.Time) ([]*Event, error) {
	seen := make(map[string]struct{})
	var events []*Event
	for page := 0; ; page++ {
		var out pagedEvents
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"from": from.Format(time.RFC3339),
				"to":   to.Format(time.RFC3339),
				"page": fmt.Sprint(page),
				"size": fmt.Sprint(constants.DefaultPageSize),
			}).
			SetResult(&out).
			Get("/events")
		if err != nil {
			return nil, errors.WrapAPI(SystemName, 0, err)
		}
		if resp.IsError() {
			return nil, c.apiError(resp)
		}
		for _, event := range out.Data {
			if _, dup := seen[event.ID]; dup {
				continue
			}
			seen[event.ID] = struct{}{}
			if !event.valid() {
				logging.Debug().
					Str("system", SystemName).
					Str("record_id", event.ID).
					Msg("Skipping cancelled or patient-less event")
				continue
			}
			events = append(events, event)
		}
		if page+1 >= out.MetaInfo.TotalPages {
			return events, nil
		}
	}
}

// Event fetches one event by id.
func (c *Client) Event(ctx context.Context, id string) (*Event, error) {
	v, err := c.cache.GetOrSet(eventKey(id), func() (any, error) {
		var out Event
		resp, err := c.rest.R().SetContext(ctx).SetResult(&out).Get("/events/" + id)
		if err != nil {
			return nil, errors.WrapAPI(SystemName, 0, err)
		}
		if resp.IsError() {
			return nil, c.apiError(resp)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Event), nil
}

// CreateEvent creates an event and returns it as persisted.
func (c *Client) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	var out Event
	resp, err := c.rest.R().SetContext(ctx).SetBody(event).SetResult(&out).Post("/events")
	if err != nil {
		return nil, errors.WrapAPI(SystemName, 0, err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	c.cache.Set(eventKey(out.ID), &out)
	return &out, nil
}

// UpdateEvent persists the event and returns the echo. The server-owned
// local-time fields are stripped before send.
func (c *Client) UpdateEvent(ctx context.Context, event *Event) (*Event, error) {
	var out Event
	resp, err := c.rest.R().SetContext(ctx).SetBody(event.updatePayload()).SetResult(&out).Put("/events/" + event.ID)
	if err != nil {
		return nil, errors.WrapAPI(SystemName, 0, err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	c.cache.Set(eventKey(out.ID), &out)
	return &out, nil
}

// CancelEvent retires an event by status transition. Records are never
// hard-deleted on cleanup.
func (c *Client) CancelEvent(ctx context.Context, event *Event) error {
	var out Event
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"eventStatus": EventStatusCancelled}).
		SetResult(&out).
		Patch("/events/" + event.ID)
	if err != nil {
		return errors.WrapAPI(SystemName, 0, err)
	}
	if resp.IsError() {
		return c.apiError(resp)
	}
	event.EventStatus = EventStatusCancelled
	c.cache.Set(eventKey(event.ID), &out)
	return nil
}

// DeleteEvent removes an event. Only ever called for records this engine
// created itself, during link rollback.
func (c *Client) DeleteEvent(ctx context.Context, event *Event) error {
	resp, err := c.rest.R().SetContext(ctx).Delete("/events/" + event.ID)
	if err != nil {
		return errors.WrapAPI(SystemName, 0, err)
	}
	if resp.IsError() {
		return c.apiError(resp)
	}
	c.cache.Delete(eventKey(event.ID))
	return nil
}

// Clinician fetches one clinician by id.
func (c *Client) Clinician(ctx context.Context, id string) (*Clinician, error) {
	v, err := c.cache.GetOrSet("carecal:clinician:"+id, func() (any, error) {
		var out Clinician
		resp, err := c.rest.R().SetContext(ctx).SetResult(&out).Get("/clinicians/" + id)
		if err != nil {
			return nil, errors.WrapAPI(SystemName, 0, err)
		}
		if resp.IsError() {
			return nil, c.apiError(resp)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Clinician), nil
}

// ClinicianByEmail resolves a clinician by exact email. An empty result is
// a not-found outcome, which the identity matcher treats as "try the next
// candidate".
func (c *Client) ClinicianByEmail(ctx context.Context, email string) (*Clinician, error) {
	v, err := c.cache.GetOrSet("carecal:clinician-email:"+email, func() (any, error) {
		var out struct {
			Data []*Clinician `json:"data"`
		}
		resp, err := c.rest.R().SetContext(ctx).SetQueryParam("email", email).SetResult(&out).Get("/clinicians")
		if err != nil {
			return nil, errors.WrapAPI(SystemName, 0, err)
		}
		if resp.IsError() {
			return nil, c.apiError(resp)
		}
		if len(out.Data) == 0 {
			return nil, &errors.NotFoundError{System: SystemName, Resource: "clinician", ID: email}
		}
		return out.Data[0], nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Clinician), nil
}

// Practice fetches the tenant record, cached for the run.
func (c *Client) Practice(ctx context.Context) (*Practice, error) {
	v, err := c.cache.GetOrSet("carecal:practice", func() (any, error) {
		var out Practice
		resp, err := c.rest.R().SetContext(ctx).SetResult(&out).Get("/practice")
		if err != nil {
			return nil, errors.WrapAPI(SystemName, 0, err)
		}
		if resp.IsError() {
			return nil, c.apiError(resp)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Practice), nil
}

func (c *Client) apiError(resp *resty.Response) error {
	return &errors.APIError{
		System:     SystemName,
		StatusCode: resp.StatusCode(),
		Message:    resp.String(),
		Endpoint:   resp.Request.URL,
	}
}

func eventKey(id string) string {
	return "carecal:event:" + id
}

// Store adapts the client to the link protocol's persistence surface. Link
// metadata rides in additionalInfo, so a metadata write is a full event
// update.
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
		return nil, &errors.ValidationError{Field: "record", Message: "not a carecal event"}
	}
	event.Metadata().SetLinkedID(linkedID)
	return s.client.UpdateEvent(ctx, event)
}

// ClearLink implements link.Store.
func (s *Store) ClearLink(ctx context.Context, rec appointment.Record) error {
	event, ok := rec.(*Event)
	if !ok {
		return &errors.ValidationError{Field: "record", Message: "not a carecal event"}
	}
	event.Metadata().ClearLinkedID()
	_, err := s.client.UpdateEvent(ctx, event)
	return err
}

// Delete implements link.Store.
func (s *Store) Delete(ctx context.Context, rec appointment.Record) error {
	event, ok := rec.(*Event)
	if !ok {
		return &errors.ValidationError{Field: "record", Message: "not a carecal event"}
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
	practice, err := d.client.Practice(ctx)
	if err != nil {
		return nil, err
	}
	return practice.EmailDomains, nil
}

// FindByAddress implements identity.Directory.
func (d *Directory) FindByAddress(ctx context.Context, address string) (*identity.Identity, error) {
	clinician, err := d.client.ClinicianByEmail(ctx, address)
	if err != nil {
		return nil, err
	}
	return &identity.Identity{ID: clinician.ID, Address: clinician.Email, Name: clinician.FullName()}, nil
}
