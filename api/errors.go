package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is returned for any non-2xx response. Message carries the backend's
// "detail" text when the body had one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NetworkError wraps a transport failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("unable to reach the library service (%s %s): %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsNotFound(err error) bool     { return StatusCode(err) == http.StatusNotFound }
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }

func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// errorFromBody builds the Error for a failed response. It never fails: a
// body without a usable detail yields the generic status message.
func errorFromBody(status int, body []byte) *Error {
	msg := fmt.Sprintf("HTTP error! status: %d", status)
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		if d := parseDetail(payload.Detail); d != "" {
			msg = d
		}
	}
	return &Error{Status: status, Message: msg}
}

// parseDetail accepts a plain string or a validation error list as produced
// by FastAPI ([{"loc": [...], "msg": "..."}]).
func parseDetail(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if item.Msg != "" {
				return item.Msg
			}
		}
	}
	return ""
}
