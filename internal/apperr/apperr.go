// Package apperr holds the request-scoped failures shared by the filter
// parser, the saved-filter store and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// InvalidParametersError names the offending key and value so the caller can
// echo them back.
type InvalidParametersError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidParametersError) Error() string {
	msg := fmt.Sprintf("invalid parameter %q", e.Key)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidParametersError) Unwrap() error {
	return ErrInvalidParameters
}

func Invalid(key, value, reason string) error {
	return &InvalidParametersError{Key: key, Value: value, Reason: reason}
}

// NotFound wraps ErrNotFound with the kind and id of the missing entity.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
