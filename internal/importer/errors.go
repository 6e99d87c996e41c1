package importer

import "errors"

// Sentinel errors for the importer package.
var (
	// ErrItemNotFound is returned when the media server has no item for the
	// external identifier.
	ErrItemNotFound = errors.New("item not found on media server")

	// ErrServerUnavailable is returned when the media server cannot be reached.
	ErrServerUnavailable = errors.New("media server unavailable")

	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = errors.New("media server rejected token")
)
