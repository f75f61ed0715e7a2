package application

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")
var ErrBadRequest = errors.New("bad request")

// Per-symbol failure taxonomy. Providers and repos wrap these so the
// orchestration can classify without inspecting messages.
var (
	ErrAuth          = errors.New("provider authentication failed")
	ErrUnknownSymbol = errors.New("symbol not known to provider")
	ErrRateLimited   = errors.New("provider rate limit hit")
	ErrEmptyResult   = errors.New("no parsable records in provider response")
	ErrLowQuality    = errors.New("validation reject fraction above threshold")
	ErrStorage       = errors.New("storage write failed")
)

// Terminal reports whether retrying err could change the outcome.
// Everything else (network faults, 5xx, rate limits, decode glitches)
// is worth another attempt.
func Terminal(err error) bool {
	return errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrUnknownSymbol) ||
		errors.Is(err, ErrEmptyResult)
}

// FailureReason maps err to the machine-readable reason carried in outcomes.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrAuth):
		return "auth_failed"
	case errors.Is(err, ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrLowQuality):
		return "low_quality"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "network_failure"
	}
}
