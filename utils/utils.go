package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRuns      = regexp.MustCompile(`\s+`)
)

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logrus.WithError(err).Error("Failed to encode error response")
	}
}

func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(payload)
}

// FormatDuration renders seconds as H:MM:SS when at least an hour long and
// M:SS otherwise. Unknown, zero or negative durations render as "0:00".
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "0:00"
	}

	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// SanitizeFilename keeps ASCII letters, digits and whitespace from title,
// folds each whitespace run into one space and appends ".mp3". fallback is
// used when nothing survives.
func SanitizeFilename(title, fallback string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "")
	name = strings.TrimSpace(whitespaceRuns.ReplaceAllString(name, " "))
	if name == "" {
		name = fallback
	}
	return name + ".mp3"
}
