// Package transport provides the authenticated HTTP plumbing shared by the
// calendar system clients: credential application, JSON request encoding,
// and response decoding with typed status mapping.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/caremesh/calsync/pkg/constants"
	"github.com/caremesh/calsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication. Each remote
// system gets its own Client so response errors carry the system's name.
type Client struct {
	http       *http.Client
	auth       Authenticator
	credential string
	system     string
}

// New creates a transport client for the named system.
func New(system string, auth Authenticator, credential string) *Client {
	return &Client{
		http:       &http.Client{Timeout: DefaultHTTPTimeout},
		auth:       auth,
		credential: credential,
		system:     system,
	}
}

// System returns the name of the system this client talks to.
func (c *Client) System() string {
	return c.system
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.credential != "" {
		c.auth.Apply(req, c.credential)
	}

	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(c.system, 0, err)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapAPI(c.system, 0, err)
	}
	return c.Do(req)
}

// Send performs a request with a JSON-encoded body. A nil body sends an
// empty request, which DELETE and some PATCH endpoints expect.
func (c *Client) Send(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.WrapAPI(c.system, 0, err)
	}
	return c.Do(req)
}
