// Package cache provides the local persistent cache for resolved records: a
// document store collaborator addressed by collection and document id, plus
// a typed gateway over it.
package cache

import (
	"context"

	"github.com/wareline/resolve-core/internal/record"
)

// Collection names for the two record directions.
const (
	CollectionOutbound = "outbound-records"
	CollectionInbound  = "inbound-records"
)

// CollectionFor maps a direction to its collection name.
func CollectionFor(dir record.Direction) string {
	if dir == record.Inbound {
		return CollectionInbound
	}
	return CollectionOutbound
}

// Document is one stored JSON document.
type Document map[string]any

// DocumentStore is the narrow interface to the persistence collaborator.
// Absent documents are reported as (nil, nil), never as an error.
type DocumentStore interface {
	// GetByID fetches one document by id.
	GetByID(ctx context.Context, collection, id string) (Document, error)

	// QueryByField returns the first document whose top-level field equals
	// the given value.
	QueryByField(ctx context.Context, collection, field, value string) (Document, error)

	// Upsert writes a document. With merge true an existing document's
	// fields are overlaid rather than replaced wholesale.
	Upsert(ctx context.Context, collection, id string, doc Document, merge bool) error

	// DeleteByID removes a document; deleting an absent id is not an error.
	DeleteByID(ctx context.Context, collection, id string) error

	Close() error
}
