package services

import (
	"errors"
	"fmt"
)

// Stable machine-readable error codes returned by the publishing services.
const (
	CodePastSchedule           = "past_schedule"
	CodeInvalidTransition      = "invalid_transition"
	CodeAlreadyPublished       = "already_published"
	CodeConcurrentModification = "concurrent_modification"
	CodeNotInPublishedSet      = "not_in_published_set"
	CodeSeriesOrderConflict    = "series_order_conflict"
	CodeNotFound               = "not_found"
	CodePersistenceUnavailable = "persistence_unavailable"
)

// Error carries a stable code alongside the human-readable message so API
// clients can branch on the code without parsing text.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches two service errors by code, so errors.Is works against the
// exported sentinels below regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks.
var (
	ErrPastSchedule           = &Error{Code: CodePastSchedule, Message: "scheduled date must be in the future"}
	ErrInvalidTransition      = &Error{Code: CodeInvalidTransition, Message: "transition not allowed from current status"}
	ErrAlreadyPublished       = &Error{Code: CodeAlreadyPublished, Message: "post is already published"}
	ErrConcurrentModification = &Error{Code: CodeConcurrentModification, Message: "post was modified concurrently"}
	ErrNotInPublishedSet      = &Error{Code: CodeNotInPublishedSet, Message: "post is not published"}
	ErrSeriesOrderConflict    = &Error{Code: CodeSeriesOrderConflict, Message: "duplicate series order"}
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "record not found"}
	ErrPersistenceUnavailable = &Error{Code: CodePersistenceUnavailable, Message: "persistent store unavailable"}
)

// CodeOf extracts the service error code, or empty for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
