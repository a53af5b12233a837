package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRoute means the effective route has no binding in the tree.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrSourceUnreadable means the bound source file could not be read.
	ErrSourceUnreadable = errors.New("source unreadable")
)

// SourceError reports a source file that is bound to a route but cannot be
// read or split.
type SourceError struct {
	Route string
	Path  string
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("route %q: read %s: %v", e.Route, e.Path, e.Err)
}

// Unwrap exposes both the category and the underlying cause.
func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnreadable, e.Err}
}

// IsUnknownRoute reports whether err is an unknown route failure.
func IsUnknownRoute(err error) bool {
	return errors.Is(err, ErrUnknownRoute)
}

// IsSourceUnreadable reports whether err is an unreadable source failure.
func IsSourceUnreadable(err error) bool {
	return errors.Is(err, ErrSourceUnreadable)
}
