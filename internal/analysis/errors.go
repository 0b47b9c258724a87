package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies analysis failures that callers act on.
type Kind string

const (
	KindConfigMissing Kind = "config_missing"
	KindAuthInvalid   Kind = "auth_invalid"
	KindRateLimited   Kind = "rate_limited"
	KindUnparsable    Kind = "unparsable"
)

// Error is a classified analysis failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindConfigMissing:
		msg = "AI API key is missing or still set to its placeholder value"
	case KindAuthInvalid:
		msg = "AI service rejected the API key"
	case KindRateLimited:
		msg = "AI service rate limit exceeded"
	case KindUnparsable:
		msg = "AI response was not valid JSON"
	default:
		msg = "ai analysis failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// StatusError is a provider failure carrying the upstream HTTP status.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

// classify maps a provider failure onto the error taxonomy. Statuses other
// than 401 and 429 become a generic wrapped error.
func classify(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized:
			return &Error{Kind: KindAuthInvalid, Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Err: err}
		}
	}
	return fmt.Errorf("ai analysis failed: %w", err)
}
