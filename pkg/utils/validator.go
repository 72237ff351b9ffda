package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	textPolicy   = bluemonday.StrictPolicy()
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// SanitizeText strips markup and control characters from user-entered
// free text and trims surrounding whitespace. Entities are decoded so the
// stored text reads as typed.
func SanitizeText(s string) string {
	stripped := textPolicy.Sanitize(controlChars.ReplaceAllString(s, ""))
	return strings.TrimSpace(html.UnescapeString(stripped))
}
