package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/logging"
)

// DecodeResponse decodes a JSON response into the target structure. Non-2xx
// statuses become an APIError for the named system, which classifies 404 as
// not-found so callers can tell a vanished record from a transient failure.
// A nil target discards the body after the status check.
func DecodeResponse(system string, resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Str("system", system).Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapAPI(system, resp.StatusCode, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &errors.APIError{
			System:     system,
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   resp.Request.URL.Path,
		}
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}
