package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := InvalidInput("op", nil, "test message")
	if err.Error() != "op: test message" {
		t.Errorf("expected 'op: test message', got '%s'", err.Error())
	}

	cause := fmt.Errorf("exit status 1")
	err = Extraction("op", cause)
	expected := "op: Failed to convert video to MP3: exit status 1"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the cause")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		code    int
		message string
	}{
		{"invalid input", InvalidInput("op", nil, MsgInvalidURL), http.StatusBadRequest, MsgInvalidURL},
		{"method not allowed", MethodNotAllowed("op"), http.StatusMethodNotAllowed, MsgMethodNotAllowed},
		{"provider", Provider("op", fmt.Errorf("boom")), http.StatusInternalServerError, MsgProvider},
		{"extraction", Extraction("op", fmt.Errorf("boom")), http.StatusInternalServerError, MsgExtraction},
		{"internal", Internal("op", fmt.Errorf("boom")), http.StatusInternalServerError, MsgInternal},
		{"rate limit", RateLimitExceeded("op"), http.StatusTooManyRequests, MsgRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, tt.err.Code)
			}
			if tt.err.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, tt.err.Message)
			}
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Provider("op", fmt.Errorf("timeout")))
	if got := As(wrapped); got.Message != MsgProvider {
		t.Errorf("expected provider message, got %q", got.Message)
	}

	plain := fmt.Errorf("raw failure with secrets")
	got := As(plain)
	if got.Code != http.StatusInternalServerError || got.Message != MsgInternal {
		t.Errorf("expected generic internal error, got %d %q", got.Code, got.Message)
	}
}

func TestIsClientError(t *testing.T) {
	if !IsClientError(InvalidInput("op", nil, MsgInvalidAction)) {
		t.Error("expected invalid input to be a client error")
	}
	if IsClientError(Internal("op", nil)) {
		t.Error("expected internal error not to be a client error")
	}
	if IsClientError(fmt.Errorf("standard error")) {
		t.Error("expected standard error not to be a client error")
	}
}
