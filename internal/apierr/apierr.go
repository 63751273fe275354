// Package apierr carries an HTTP status and a stable code alongside an error.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// CompletionNotice is the user-facing text for a failed completion.
const CompletionNotice = "We couldn't reach the reflection service. Your answers are safe; please try again."

// From maps domain errors onto statuses. Unknown errors become 500s.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, domain.ErrMissingUser),
		errors.Is(err, domain.ErrInvalidMood),
		errors.Is(err, domain.ErrInvalidHour),
		errors.Is(err, domain.ErrEmptyEntry):
		return New(http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, domain.ErrInvalidAnswer):
		return New(http.StatusUnprocessableEntity, "invalid_answer", err)
	case errors.Is(err, domain.ErrNotCollecting):
		return New(http.StatusUnprocessableEntity, "not_collecting", err)
	case errors.Is(err, domain.ErrSessionNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrSessionBusy):
		return New(http.StatusConflict, "busy", err)
	case errors.Is(err, domain.ErrSessionReset):
		return New(http.StatusConflict, "reset", err)
	case errors.Is(err, domain.ErrSessionActive), errors.Is(err, domain.ErrSessionExists):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, domain.ErrCompletionFailed):
		return New(http.StatusBadGateway, "completion_failed", errors.New(CompletionNotice))
	default:
		return New(http.StatusInternalServerError, "internal", errors.New("internal server error"))
	}
}
