package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textSanitizer strips markup from free-text fields that are stored as plain text.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s textSanitizer) Clean(input string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}

func (s textSanitizer) CleanPtr(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := s.Clean(*input)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
