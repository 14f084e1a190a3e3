package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/supabridge/supabridge/internal/model"
)

// unknownErrorMessage is the sentinel for error payloads that carry no
// usable information at all.
const unknownErrorMessage = "Unknown error occurred"

// BackendError is any error reported by a backend call, normalized to a
// single human-readable message. It is never retried by this layer.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return e.Message
}

// NormalizeMessage converts a heterogeneous backend error payload into one
// human-readable string. It tries, in order: a plain string, a message
// field, an error_description field, a details field, and finally the
// JSON-stringified payload.
func NormalizeMessage(payload any) string {
	switch v := payload.(type) {
	case nil:
		return unknownErrorMessage
	case string:
		return v
	case error:
		return v.Error()
	case map[string]any:
		for _, key := range []string{"message", "error_description", "details"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return unknownErrorMessage
	}
	return string(raw)
}

// decodeError drains an HTTP error response into a *BackendError.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	msg := ""
	if len(raw) > 0 {
		var payload any
		if err := json.Unmarshal(raw, &payload); err == nil {
			msg = NormalizeMessage(payload)
		} else {
			msg = strings.TrimSpace(string(raw))
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("%s (status %d)", http.StatusText(resp.StatusCode), resp.StatusCode)
	}
	return &BackendError{StatusCode: resp.StatusCode, Message: msg}
}

// authKeywords classify an error message as auth-related when the status
// code is unavailable.
var authKeywords = []string{
	"invalid api key", "jwt", "unauthorized", "permission denied", "not authorized",
}

// IsAuthError reports whether err is an authentication or authorization
// failure: status 401/403, or a keyword match on the message.
func IsAuthError(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		if be.StatusCode == http.StatusUnauthorized || be.StatusCode == http.StatusForbidden {
			return true
		}
	}
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, kw := range authKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// networkKeywords classify transport-level failures by message.
var networkKeywords = []string{
	"connection refused", "no such host", "timeout", "timed out",
	"network is unreachable", "connection reset",
}

// IsNetworkError reports whether err is a transport-level failure rather
// than a backend-reported one.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, kw := range networkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a missing-entity failure: a backend 404
// or a locally raised NotFoundError.
func IsNotFound(err error) bool {
	var be *BackendError
	if errors.As(err, &be) && be.StatusCode == http.StatusNotFound {
		return true
	}
	var nf *model.NotFoundError
	return errors.As(err, &nf)
}
