package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	rcerrors "github.com/recallcontext/recall-cli/pkg/errors"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Code is the backend error code (e.g. API_KEY_NOT_CONFIGURED); empty when
	// the body was not a structured error.
	Code rcerrors.ErrorCode
	// Message is the backend's user-facing message; empty when the body
	// carried none.
	Message string
	// Timestamp is the backend's error timestamp, verbatim.
	Timestamp string
	// Details holds per-field validation messages.
	Details map[string]string
	// RequestID is the X-Request-ID the request was sent with.
	RequestID string
}

// Error implements error.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = "unexpected response"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
}

// Unwrap maps the HTTP status onto the domain sentinel errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return rcerrors.ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return rcerrors.ErrValidation
	case e.Status == http.StatusUnauthorized:
		return rcerrors.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return rcerrors.ErrForbidden
	case e.Status == http.StatusConflict:
		return rcerrors.ErrConflict
	case e.Status >= 500:
		return rcerrors.ErrUnavailable
	default:
		return nil
	}
}

// Retryable reports whether the backend marked the failure as transient.
func (e *APIError) Retryable() bool {
	return rcerrors.IsRetryable(e.Code)
}

// SuggestedAction returns the CLI hint registered for the error code.
func (e *APIError) SuggestedAction() string {
	return rcerrors.GetSuggestedAction(e.Code)
}

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// apiKeyMessageMarker identifies a missing AI key in a backend message.
// Upload wraps the key failure in PROCESSING_FAILED, so only the text survives.
const apiKeyMessageMarker = "API key"

// IsAPIKeyNotConfigured reports whether err is the backend's "no AI API key
// configured" failure. The structured code wins; otherwise a backend message
// mentioning the API key counts. Errors that did not come from the backend
// never match.
func IsAPIKeyNotConfigured(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	if apiErr.Code == rcerrors.CodeAPIKeyNotConfigured {
		return true
	}
	return strings.Contains(apiErr.Message, apiKeyMessageMarker)
}

// MessageOr returns the backend message carried by err, or fallback when err
// did not come from the backend or carried no message.
func MessageOr(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
