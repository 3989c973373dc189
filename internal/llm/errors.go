package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// TransportError covers network failures, timeouts, and provider-side
// 5xx responses. The caller may retry at the user's discretion.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("gateway transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// AuthError covers authentication and quota failures (401/403/429). Not
// retryable until the credentials or quota are fixed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("gateway auth/quota: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// RefusalError carries a content-policy refusal. The message is the
// provider's verbatim text; it is surfaced as-is and never retried.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string { return fmt.Sprintf("model refused: %s", e.Message) }

// classify maps a provider error onto the taxonomy. Anything it cannot
// attribute to credentials or policy is treated as transport, which errs
// on the side of letting the user retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransportError{Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return &AuthError{Err: err}
		}
		if strings.Contains(strings.ToLower(apiErr.Message), "content") &&
			strings.Contains(strings.ToLower(apiErr.Message), "policy") {
			return &RefusalError{Message: apiErr.Message}
		}
		return &TransportError{Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return &AuthError{Err: err}
		}
		return &TransportError{Err: err}
	}

	return &TransportError{Err: err}
}
