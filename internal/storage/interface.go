package storage

import (
	"context"
	"encoding/json"
)

// ContentStore pins content to a content-addressed store and returns its
// content identifier. Every call is a single round trip with no retry.
type ContentStore interface {
	// PinDocument pins doc as-is. The bytes fetched back for the returned id
	// are exactly doc.
	PinDocument(ctx context.Context, name string, doc json.RawMessage) (string, error)

	// PinBlob pins an opaque binary payload.
	PinBlob(ctx context.Context, data []byte, name, mimeType string) (string, error)

	// Fetch returns the pinned bytes for cid.
	Fetch(ctx context.Context, cid string) ([]byte, error)
}
