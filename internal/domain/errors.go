package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when the extraction target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrSessionNotFound is returned by repositories when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnsupportedFormat is returned for unknown export formats.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrStorageNotSQL is returned when a SQL-only operation runs against the file store.
	ErrStorageNotSQL = errors.New("storage is not SQL backed")

	// ErrSourceFailed is returned when a session's source page could not be fetched.
	ErrSourceFailed = errors.New("source page failed")

	// ErrNoProducts is returned when a source page yields no valid products.
	ErrNoProducts = errors.New("no products found")
)

// StatusError reports a non-2xx response from a fetched page.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}
