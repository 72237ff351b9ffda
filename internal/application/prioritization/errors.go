package prioritization

import (
	"errors"
	"strings"

	"github.com/garyjia/club-expenses/internal/application/port"
)

// QuotaExceededMessage is shown to reviewers when the model provider throttles us
const QuotaExceededMessage = "You have exceeded your current API quota. Please check your AI plan and billing details, or try again later."

// UnknownErrorMessage is used when a failure carries no text
const UnknownErrorMessage = "An unknown error occurred."

// ErrorKind distinguishes the two prioritization failure modes
type ErrorKind string

const (
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindFailed        ErrorKind = "failed"
)

// Error is a classified prioritization failure. Neither kind is retried.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps err as a quota failure when its text contains "429" or
// "quota" in any case, and as a generic failure carrying the original text otherwise.
// Malformed model answers are always generic failures, whatever their text.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	text := err.Error()
	if errors.Is(err, port.ErrInvalidRanking) {
		return &Error{Kind: KindFailed, Message: text, Err: err}
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "429") || strings.Contains(lower, "quota") {
		return &Error{Kind: KindQuotaExceeded, Message: QuotaExceededMessage, Err: err}
	}

	if text == "" {
		text = UnknownErrorMessage
	}
	return &Error{Kind: KindFailed, Message: text, Err: err}
}

// IsQuotaExceeded reports whether err classifies as a quota failure
func IsQuotaExceeded(err error) bool {
	c := Classify(err)
	return c != nil && c.Kind == KindQuotaExceeded
}
