package foliosdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the portfolio API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Status exposes the HTTP status for error classification.
func (e *APIError) Status() int { return e.StatusCode }

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, func(code int) bool { return code == http.StatusUnauthorized })
}

// IsConflict reports whether err is an upstream rejection of the request
// itself (400, 409, 422): resubmitting unchanged will not help.
func IsConflict(err error) bool {
	return hasStatus(err, func(code int) bool {
		return code == http.StatusBadRequest || code == http.StatusConflict || code == http.StatusUnprocessableEntity
	})
}

// IsTransient reports whether err is worth retrying by the user: transport
// failures, 5xx responses, timeouts and rate limiting.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	code := apiErr.StatusCode
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func hasStatus(err error, match func(int) bool) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && match(apiErr.StatusCode)
}

// parseErrorResponse turns an error response into an *APIError, pulling a
// message from the common JSON shapes and falling back to the raw body.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &msg); err == nil {
		switch {
		case msg.Message != "":
			return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
		case msg.Error != "":
			return &APIError{StatusCode: resp.StatusCode, Message: msg.Error}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: text}
}
