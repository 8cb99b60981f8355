package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/calsync/pkg/errors"
)

func TestBearerAuthAppliesHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/events", nil)
	(&BearerAuth{}).Apply(req, "tok-123")
	assert.Equal(t, "Bearer tok-123", req.Header.Get("Authorization"))
}

func TestHeaderAuthAppliesCustomHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/events", nil)
	(&HeaderAuth{Header: "X-Api-Key"}).Apply(req, "tok-123")
	assert.Equal(t, "tok-123", req.Header.Get("X-Api-Key"))
}

func TestQueryAuthAppliesParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/events?limit=5", nil)
	(&QueryAuth{Param: "token"}).Apply(req, "tok-123")
	assert.Equal(t, "tok-123", req.URL.Query().Get("token"))
	assert.Equal(t, "5", req.URL.Query().Get("limit"))
}

func TestClientGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"id":"w1"}`))
	}))
	defer srv.Close()

	client := New("workcal", &BearerAuth{}, "tok-123")
	resp, err := client.Get(context.Background(), srv.URL+"/events/w1")
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, DecodeResponse("workcal", resp, &out))
	assert.Equal(t, "w1", out.ID)
}

func TestClientSendSetsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New("carecal", &BearerAuth{}, "tok-123")
	resp, err := client.Send(context.Background(), http.MethodPost, srv.URL+"/events", map[string]string{"id": "c1"})
	require.NoError(t, err)
	assert.NoError(t, DecodeResponse("carecal", resp, nil))
}

func TestDecodeResponseMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such event", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New("carecal", &NoAuth{}, "")
	resp, err := client.Get(context.Background(), srv.URL+"/events/gone")
	require.NoError(t, err)

	err = DecodeResponse("carecal", resp, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "404 must be distinguishable as not-found")

	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "carecal", apiErr.System)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestDecodeResponseMapsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New("workcal", &NoAuth{}, "")
	resp, err := client.Get(context.Background(), srv.URL+"/events")
	require.NoError(t, err)

	err = DecodeResponse("workcal", resp, nil)
	assert.True(t, errors.Is(err, errors.ErrSystemUnavailable))
	assert.False(t, errors.IsNotFound(err))
}
