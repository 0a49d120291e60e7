package infra_test

import (
	"fmt"
	"net/http"
	"testing"

	"voice-assistant/internal/infra"
)

func TestIsTransientHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		if got := infra.IsTransientHTTPStatus(tt.status); got != tt.want {
			t.Errorf("IsTransientHTTPStatus(%d): got %t, want %t", tt.status, got, tt.want)
		}
	}
}

func TestAsAPIError(t *testing.T) {
	wrapped := fmt.Errorf("generating: %w", &infra.APIError{Service: "gemini", StatusCode: 503, Body: "overloaded"})

	apiErr, ok := infra.AsAPIError(wrapped)
	if !ok {
		t.Fatal("AsAPIError did not find the APIError")
	}
	if !apiErr.Transient() {
		t.Error("503 should be transient")
	}
	if apiErr.Error() != "gemini API error 503: overloaded (transient)" {
		t.Errorf("Error: got %q", apiErr.Error())
	}

	if _, ok := infra.AsAPIError(fmt.Errorf("plain")); ok {
		t.Error("AsAPIError matched a plain error")
	}
}
