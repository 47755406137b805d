package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/api/googleapi"
)

const (
	msgCheckConfiguration = "service unavailable, check configuration"
	msgRetryLater         = "retry later"
	msgServerError        = "service unavailable, retry later"
)

// ProviderError is a normalized, credential-free provider failure.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure was a rate limit or server error.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// normalizeError maps an SDK error to a user-safe ProviderError. The API key
// is scrubbed from any message that is passed through.
func normalizeError(providerID, apiKey string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	status, msg := statusAndMessage(err)
	out := &ProviderError{Provider: providerID, StatusCode: status, Err: err}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		out.Message = msgCheckConfiguration
	case status == http.StatusTooManyRequests:
		out.Message = msgRetryLater
	case status >= 500:
		out.Message = msgServerError
	default:
		out.Message = redact(msg, apiKey)
	}
	return out
}

func statusAndMessage(err error) (int, string) {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		msg := oaErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return oaErr.StatusCode, msg
	}

	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode, err.Error()
	}

	var olErr api.StatusError
	if errors.As(err, &olErr) {
		msg := olErr.ErrorMessage
		if msg == "" {
			msg = olErr.Status
		}
		return olErr.StatusCode, msg
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return gErr.Code, msg
	}

	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, httpErr.Error()
	}

	return 0, err.Error()
}

func redact(msg, secret string) string {
	if secret == "" || len(secret) < 4 {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "[REDACTED]")
}

// httpStatusError is returned by the image fetcher for non-2xx responses.
type httpStatusError struct {
	StatusCode int
	URL        string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
