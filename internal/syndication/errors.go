package syndication

import (
	"errors"

	"github.com/roach88/syndicate/internal/activity"
	"github.com/roach88/syndicate/internal/store"
)

// ErrInvalidEntity is returned when a response or source fails a
// precondition, such as an empty key.
var ErrInvalidEntity = errors.New("invalid entity")

// ErrNotFound is returned by Fetcher.GetPost when the backend returns no
// activity for the id.
var ErrNotFound = errors.New("post not found")

// IsNotFound reports whether err means a lookup by key found nothing,
// in the store or at the activity backend.
// Uses errors.Is to handle wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, activity.ErrNotFound)
}

// IsInvalid reports whether err is a precondition violation.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidEntity)
}
