package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestClassifyDeadlineIsTransport(t *testing.T) {
	err := classify(fmt.Errorf("call: %w", context.DeadlineExceeded))
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("want TransportError, got %T: %v", err, err)
	}
}

func TestClassifyAuthStatuses(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests} {
		err := classify(&openai.APIError{HTTPStatusCode: status, Message: "nope"})
		var auth *AuthError
		if !errors.As(err, &auth) {
			t.Fatalf("status %d: want AuthError, got %T", status, err)
		}
	}
}

func TestClassifyServerErrorIsTransport(t *testing.T) {
	err := classify(&openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "boom"})
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("want TransportError, got %T", err)
	}
}

func TestClassifyContentPolicyIsRefusal(t *testing.T) {
	err := classify(&openai.APIError{
		HTTPStatusCode: http.StatusBadRequest,
		Message:        "Your request was rejected by our content policy.",
	})
	var refusal *RefusalError
	if !errors.As(err, &refusal) {
		t.Fatalf("want RefusalError, got %T: %v", err, err)
	}
	if refusal.Message == "" {
		t.Fatalf("refusal message lost")
	}
}

func TestClassifyRequestError(t *testing.T) {
	err := classify(&openai.RequestError{HTTPStatusCode: http.StatusUnauthorized, Err: errors.New("bad key")})
	var auth *AuthError
	if !errors.As(err, &auth) {
		t.Fatalf("want AuthError, got %T", err)
	}
	err = classify(&openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("upstream")})
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("want TransportError, got %T", err)
	}
}

func TestClassifyUnknownDefaultsToTransport(t *testing.T) {
	err := classify(errors.New("connection reset by peer"))
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("want TransportError, got %T", err)
	}
}
