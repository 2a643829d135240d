package source

import (
	"errors"
	"fmt"

	"tileserv/internal/tiles"
)

// ErrNoSources is returned by Resolve when the identifier list is empty.
var ErrNoSources = errors.New("no sources requested")

// NotFoundError reports a requested identifier with no registered source.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %q does not exist", e.ID)
}

// FormatMismatchError reports two sources in one resolution request with
// incompatible tile formats. It carries both descriptors for diagnostics.
type FormatMismatchError struct {
	Want tiles.Info // fixed by the first source in request order
	Got  tiles.Info
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("cannot merge sources with format %s and %s", e.Want, e.Got)
}
