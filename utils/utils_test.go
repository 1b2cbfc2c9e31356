package utils

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleError(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleError(rr, "Test error", http.StatusBadRequest)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	expected := `{"error":"Test error"}`
	if strings.TrimSpace(rr.Body.String()) != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00"},
		{-5, "0:00"},
		{math.NaN(), "0:00"},
		{9, "0:09"},
		{65, "1:05"},
		{65.9, "1:05"},
		{600, "10:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{36000, "10:00:00"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.expected {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.expected)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		title    string
		fallback string
		expected string
	}{
		{"Rick Astley - Never Gonna Give You Up (Official Video)", "dQw4w9WgXcQ", "Rick Astley Never Gonna Give You Up Official Video.mp3"},
		{"Line one\nLine\ttwo\r\n", "id", "Line one Line two.mp3"},
		{"\n\t\r", "id", "id.mp3"},
		{"  spaced  ", "id", "spaced.mp3"},
		{"../../etc/passwd", "id", "etcpasswd.mp3"},
		{"!!!", "dQw4w9WgXcQ", "dQw4w9WgXcQ.mp3"},
		{"", "dQw4w9WgXcQ", "dQw4w9WgXcQ.mp3"},
		{"日本語", "abc", "abc.mp3"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.title, tt.fallback); got != tt.expected {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.title, got, tt.expected)
		}
	}
}
