package validation

import (
	"regexp"
	"strings"
)

const (
	MsgURLRequired = "Please enter a YouTube URL"
	MsgInvalidURL  = "Please enter a valid YouTube URL"
)

// Both checks share urlPrefix so a URL accepted on the client is never
// rejected by the gateway for shape reasons.
const urlPrefix = `^(?:https?://)?(?:(?:www|m)\.)?(?:youtube\.com/(?:watch\?v=|embed/|v/)|youtu\.be/)`

var (
	prefixPattern  = regexp.MustCompile(urlPrefix)
	videoIDPattern = regexp.MustCompile(urlPrefix + `([^&\n?#]+)`)
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ExtractVideoID returns the identifier following a watch, short, embed or
// /v/ prefix, up to the first '&', '?', '#' or newline. ok is false when the
// input has none of those shapes.
func ExtractVideoID(input string) (id string, ok bool) {
	m := videoIDPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsPlausibleYouTubeURL is the cheap pre-check used before submitting. It
// accepts everything ExtractVideoID accepts.
func IsPlausibleYouTubeURL(input string) bool {
	return prefixPattern.MatchString(strings.TrimSpace(input))
}

// ValidateURL is the client-side gate run before any gateway call.
func ValidateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return &ValidationError{Message: MsgURLRequired}
	}
	if !IsPlausibleYouTubeURL(input) {
		return &ValidationError{Message: MsgInvalidURL}
	}
	return nil
}
