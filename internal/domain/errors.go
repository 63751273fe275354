package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrSessionActive    = errors.New("session already has an active protocol")
	ErrInvalidAnswer    = errors.New("answer does not satisfy step constraints")
	ErrNotCollecting    = errors.New("session is not collecting answers")
	ErrSessionBusy      = errors.New("a completion is already in flight for this session")
	ErrSessionReset     = errors.New("session was reset while the completion was in flight")
	ErrUnknownPersona   = errors.New("unknown persona")
	ErrUnknownProtocol  = errors.New("unknown protocol")
	ErrEmptyEntry       = errors.New("entry is empty")
	ErrMissingUser      = errors.New("user_id is required")
	ErrInvalidMood      = errors.New("mood must be between 0 and 10")
	ErrInvalidHour      = errors.New("hour must be between 0 and 23")
	ErrCompletionFailed = errors.New("completion failed")
)

// CompletionError marks err as a completion failure unless it already is one.
func CompletionError(err error) error {
	if err == nil || errors.Is(err, ErrCompletionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCompletionFailed, err)
}
