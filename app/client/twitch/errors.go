package twitch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidFilter        = errors.New("invalid clip filter")
	ErrMissingBroadcasterID = errors.New("broadcaster id is required")
	ErrUserTokenRequired    = errors.New("user access token is required for this endpoint")
	ErrEmptyResponse        = errors.New("helix returned no data")
)

// APIError is a non-2xx response from Helix or the token endpoint.
type APIError struct {
	StatusCode     int
	ErrorText      string `json:"error"`
	Message        string `json:"message"`
	RateLimitReset time.Time
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("helix API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("helix API error: status %d, %s: %s", e.StatusCode, e.ErrorText, e.Message)
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// AsAPIError unwraps err to an *APIError if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.ErrorText == "" && apiErr.Message == "") {
		apiErr.ErrorText = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if reset := resp.Header.Get("Ratelimit-Reset"); reset != "" {
		if sec, err := strconv.ParseInt(reset, 10, 64); err == nil {
			apiErr.RateLimitReset = time.Unix(sec, 0)
		}
	}

	return apiErr
}
