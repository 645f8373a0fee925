package ai

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// Reason classifies why a generation attempt was closed.
type Reason string

const (
	// ReasonDisabled means the gateway is configured off.
	ReasonDisabled Reason = "disabled"
	// ReasonUnsupportedProvider means the configured provider name is unknown.
	ReasonUnsupportedProvider Reason = "unsupported_provider"
	// ReasonMissingCredential means the provider requires a credential that
	// was not configured or was rejected.
	ReasonMissingCredential Reason = "missing_credential"
	// ReasonEmptyResponse means the provider returned no usable text, even
	// after the non-streaming fallback.
	ReasonEmptyResponse Reason = "empty_response"
	// ReasonMalformedResponse means structured output could not be parsed or
	// recovered.
	ReasonMalformedResponse Reason = "malformed_response"
	// ReasonTransport covers network failures, timeouts and upstream errors.
	ReasonTransport Reason = "transport_error"
)

// Error is the typed error returned by the gateway. Raw carries the offending
// model output when one exists, so callers can persist it for inspection.
type Error struct {
	Reason Reason
	Raw    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ai: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfiguration reports whether err is a configuration failure that must
// not be retried: a disabled gateway, an unknown provider, or a missing or
// rejected credential.
func IsConfiguration(err error) bool {
	var aiErr *Error
	if !errors.As(err, &aiErr) {
		return false
	}
	switch aiErr.Reason {
	case ReasonDisabled, ReasonUnsupportedProvider, ReasonMissingCredential:
		return true
	}
	return false
}

// IsMalformed reports whether err means the model produced output that could
// not be parsed or recovered.
func IsMalformed(err error) bool {
	var aiErr *Error
	return errors.As(err, &aiErr) && aiErr.Reason == ReasonMalformedResponse
}

// IsTransient reports whether err is worth retrying: rate limits, request
// timeouts, upstream 5xx responses and network-level failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.StatusCode)
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// isAuthFailure reports whether err is an upstream credential rejection.
func isAuthFailure(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden
	}

	return false
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return code >= 500
}
