// Package importer resolves external item identifiers and attaches them to
// library collections on the media server.
package importer

import "context"

// Importer imports one externally-identified item into a library collection.
// Implementations must be safe for concurrent use up to the configured
// parallelism. Each call is a single attempt; the scheduler records any
// non-nil error as a failed item and never retries in the same pass.
type Importer interface {
	Import(ctx context.Context, itemID, collectionID string) error
}

// Ensure CollectionClient implements Importer.
var _ Importer = (*CollectionClient)(nil)
