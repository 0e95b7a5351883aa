package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNotAuthenticated is returned by calls that need a login when no
// access token is stored.
var ErrNotAuthenticated = errors.New("api: not authenticated")

// HTTPError is a non-2xx response that is not a validation failure.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports a 404.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRetryable reports rate limiting and server errors.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AuthError means the credentials were rejected and could not be refreshed.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("api: authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// ValidationError carries field errors from the backend's serializers.
type ValidationError struct {
	StatusCode int
	Fields     map[string][]string
}

// primaryFields are reported first, in this order.
var primaryFields = []string{"password", "email", "username", "non_field_errors"}

// Messages returns every field message, primary fields first.
func (e *ValidationError) Messages() []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range primaryFields {
		out = append(out, e.Fields[f]...)
		seen[f] = true
	}
	var rest []string
	for f := range e.Fields {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	for _, f := range rest {
		out = append(out, e.Fields[f]...)
	}
	return out
}

func (e *ValidationError) Error() string {
	msgs := e.Messages()
	if len(msgs) == 0 {
		return "api: validation failed"
	}
	return "api: " + strings.Join(msgs, "; ")
}

// parseError turns an error response into HTTPError or ValidationError.
func parseError(status int, body []byte) error {
	fallback := &HTTPError{
		StatusCode: status,
		Message:    http.StatusText(status),
		Body:       string(body),
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return fallback
	}

	fields := map[string][]string{}
	for key, raw := range data {
		if key == "detail" || key == "message" || key == "code" {
			continue
		}
		if msgs := fieldMessages(raw); len(msgs) > 0 {
			fields[key] = msgs
		}
	}
	if len(fields) > 0 {
		return &ValidationError{StatusCode: status, Fields: fields}
	}

	if msg := messageFrom(data); msg != "" {
		fallback.Message = msg
	}
	return fallback
}

func messageFrom(data map[string]json.RawMessage) string {
	for _, key := range []string{"detail", "message"} {
		var s string
		if err := json.Unmarshal(data[key], &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// fieldMessages accepts a string or list of strings.
func fieldMessages(raw json.RawMessage) []string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}
