package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wareline/resolve-core/internal/metrics"
	"github.com/wareline/resolve-core/internal/record"
)

// =============================================================================
// RECORD GATEWAY
// Typed access to the two record collections: id lookups, indexed-field
// lookups, and write-through merge-upserts.
// =============================================================================

// Gateway wraps the document store with record encoding and collection
// routing. The store stays the single source of truth; the gateway never
// assumes a cached record is fresh.
type Gateway struct {
	store DocumentStore
	now   func() time.Time
}

// NewGateway creates a gateway over the given document store.
func NewGateway(store DocumentStore) *Gateway {
	return &Gateway{store: store, now: time.Now}
}

// GetByID fetches a record by identity from the given direction's collection.
func (g *Gateway) GetByID(ctx context.Context, dir record.Direction, id string) (*record.Record, error) {
	doc, err := g.store.GetByID(ctx, CollectionFor(dir), id)
	if err != nil {
		return nil, fmt.Errorf("cache get %s/%s: %w", CollectionFor(dir), id, err)
	}
	if doc == nil {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return docToRecord(doc)
}

// FindByField returns the first record whose indexed field equals the value,
// searching the given direction's collection.
func (g *Gateway) FindByField(ctx context.Context, dir record.Direction, field, value string) (*record.Record, error) {
	doc, err := g.store.QueryByField(ctx, CollectionFor(dir), field, value)
	if err != nil {
		return nil, fmt.Errorf("cache query %s by %s: %w", CollectionFor(dir), field, err)
	}
	if doc == nil {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return docToRecord(doc)
}

// Put write-throughs a record into its direction's collection as a
// merge-upsert, stamped with an update timestamp. Writes are idempotent per
// identity, so concurrent writers converge without locking.
func (g *Gateway) Put(ctx context.Context, rec *record.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("cache put: record has no identity")
	}
	rec.UpdatedAt = g.now().UTC()
	doc, err := recordToDoc(rec)
	if err != nil {
		return err
	}
	if err := g.store.Upsert(ctx, CollectionFor(rec.Direction), rec.ID, doc, true); err != nil {
		return fmt.Errorf("cache put %s/%s: %w", CollectionFor(rec.Direction), rec.ID, err)
	}
	return nil
}

// Delete removes a record; an administrative operation, never called by the
// resolution path itself.
func (g *Gateway) Delete(ctx context.Context, dir record.Direction, id string) error {
	return g.store.DeleteByID(ctx, CollectionFor(dir), id)
}

func docToRecord(doc Document) (*record.Record, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode cached document: %w", err)
	}
	var rec record.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode cached document: %w", err)
	}
	return &rec, nil
}

func recordToDoc(rec *record.Record) (Document, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}
