package engine

import (
	"context"
	"errors"
)

// Error categories surfaced by a refresh cycle. Concrete errors wrap one of
// these together with the underlying cause, so callers can test both with errors.Is.
var (
	// ErrFetch covers transport, authorization and malformed-response failures.
	ErrFetch = errors.New("fetch failed")
	// ErrEmptyResult means the channel has no fetchable videos.
	ErrEmptyResult = errors.New("no data: channel has no fetchable videos")
	// ErrClassification means the sentiment annotator failed.
	ErrClassification = errors.New("sentiment classification failed")
	// ErrConfig means an invalid channel identifier or refresh interval.
	ErrConfig = errors.New("invalid configuration")
)

// isCategorized reports whether err already carries a category or is a
// context cancellation that must pass through untouched.
func isCategorized(err error) bool {
	for _, target := range []error{ErrFetch, ErrEmptyResult, ErrClassification, ErrConfig, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
