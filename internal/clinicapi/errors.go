package clinicapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// APIError is a failed backend call. Status 0 means the request never got an
// HTTP response (unreachable host, timeout, canceled context).
type APIError struct {
	Status  int
	Message string // backend-supplied message, if any
	cause   error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.cause != nil {
			return fmt.Sprintf("clinicapi: network error: %v", e.cause)
		}
		return "clinicapi: network error"
	}
	if e.Message != "" {
		return fmt.Sprintf("clinicapi: backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("clinicapi: backend returned %d", e.Status)
}

func (e *APIError) Unwrap() error { return e.cause }

// AsAPIError unwraps err into an *APIError if there is one in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status of err, or 0 for network-level failures
// and non-API errors.
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return 0
}

// errorBody is the shape the backend uses for error responses:
// { "message": "...", "error": "...", "status": ..., "errors": {...} }
type errorBody struct {
	Message string            `json:"message"`
	Err     json.RawMessage   `json:"error"`
	Errors  map[string]string `json:"errors"`
}

// extractBackendMessage pulls a human-readable message out of an error
// response body. Plain-string bodies are accepted as-is.
func extractBackendMessage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	if len(body.Err) > 0 {
		var errStr string
		if err := json.Unmarshal(body.Err, &errStr); err == nil {
			return errStr
		}
	}
	if len(body.Errors) > 0 {
		// Deterministic pick of the first validation error.
		keys := make([]string, 0, len(body.Errors))
		for k := range body.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return body.Errors[keys[0]]
	}
	return ""
}
