package social

import (
	"errors"
	"net/http"

	"reach_server/pkg/apperr"
)

var (
	// ErrConfiguration means the analytics API key is missing. Not retried.
	ErrConfiguration = errors.New("social analytics API is not configured")

	// ErrProviderMismatch means every candidate returned another platform's data.
	ErrProviderMismatch = errors.New("analytics API returned a different platform")

	// ErrNotFound means no candidate resolved to a public profile.
	ErrNotFound = errors.New("profile not found or private account")

	// ErrMalformedResponse means a 200 payload lacked the follower count.
	ErrMalformedResponse = errors.New("malformed analytics response")

	// ErrPlatformNotSupported is a business outcome, not an infrastructure failure.
	ErrPlatformNotSupported = errors.New("platform has no automatic lookup")
)

// ToAppError maps lookup failures onto API error codes. The message keeps the
// diagnostic detail so callers can show it to the creator.
func ToAppError(err error) *apperr.AppError {
	if err == nil {
		return nil
	}
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(err, apperr.CodeNotFound, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrProviderMismatch):
		return apperr.Wrap(err, apperr.CodeProviderMismatch, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrMalformedResponse):
		return apperr.Wrap(err, apperr.CodeMalformedResponse, err.Error(), http.StatusBadGateway)
	case errors.Is(err, ErrPlatformNotSupported):
		return apperr.Wrap(err, apperr.CodeUnsupported, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrConfiguration):
		return apperr.Wrap(err, apperr.CodeConfigError, err.Error(), http.StatusServiceUnavailable)
	default:
		return apperr.ExternalError("social analytics", err)
	}
}
