package cache

import (
	"context"
	"testing"
	"time"

	"github.com/wareline/resolve-core/internal/record"
)

func TestGatewayPutGetRoundtrip(t *testing.T) {
	g := NewGateway(NewMemoryStore())
	ctx := context.Background()

	rec := &record.Record{
		ID:           "J16530",
		Direction:    record.Outbound,
		Store:        "Jeep Apparel",
		OrderID:      "1001",
		CustomerName: "Thandi Nkosi",
		Status:       "Delivered",
	}
	if err := g.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := g.GetByID(ctx, record.Outbound, "J16530")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected a cached record")
	}
	if got.Store != "Jeep Apparel" || got.Status != "Delivered" {
		t.Errorf("roundtrip lost fields: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Put must stamp UpdatedAt")
	}

	// Collections are direction-scoped: the inbound collection stays empty.
	miss, err := g.GetByID(ctx, record.Inbound, "J16530")
	if err != nil {
		t.Fatalf("GetByID inbound: %v", err)
	}
	if miss != nil {
		t.Errorf("record leaked into the inbound collection: %+v", miss)
	}
}

func TestGatewayFindByField(t *testing.T) {
	g := NewGateway(NewMemoryStore())
	ctx := context.Background()

	rec := &record.Record{
		ID:             "J16530",
		Direction:      record.Outbound,
		OrderID:        "1001",
		TrackingNumber: "TRK-9000",
	}
	if err := g.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := g.FindByField(ctx, record.Outbound, "trackingNumber", "TRK-9000")
	if err != nil {
		t.Fatalf("FindByField: %v", err)
	}
	if got == nil || got.ID != "J16530" {
		t.Fatalf("expected the cached record, got %+v", got)
	}

	miss, err := g.FindByField(ctx, record.Outbound, "trackingNumber", "TRK-0000")
	if err != nil {
		t.Fatalf("FindByField miss: %v", err)
	}
	if miss != nil {
		t.Errorf("expected a miss, got %+v", miss)
	}
}

func TestGatewayPutRequiresIdentity(t *testing.T) {
	g := NewGateway(NewMemoryStore())
	if err := g.Put(context.Background(), &record.Record{Direction: record.Outbound}); err == nil {
		t.Fatal("expected an error for a record without identity")
	}
	if err := g.Put(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil record")
	}
}

func TestGatewayPutIsIdempotentPerIdentity(t *testing.T) {
	store := NewMemoryStore()
	g := NewGateway(store)
	ctx := context.Background()

	first := &record.Record{ID: "J16530", Direction: record.Outbound, Status: "Processing"}
	second := &record.Record{ID: "J16530", Direction: record.Outbound, Status: "Delivered", Courier: "CourierIT"}
	if err := g.Put(ctx, first); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := g.Put(ctx, second); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	if n := store.Len(CollectionOutbound); n != 1 {
		t.Fatalf("expected one document, got %d", n)
	}
	got, err := g.GetByID(ctx, record.Outbound, "J16530")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != "Delivered" || got.Courier != "CourierIT" {
		t.Errorf("latest write must win: %+v", got)
	}
}

func TestMemoryStoreMergeUpsertOverlays(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, CollectionOutbound, "X", Document{"a": "1", "b": "keep"}, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, CollectionOutbound, "X", Document{"a": "2"}, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	doc, err := store.GetByID(ctx, CollectionOutbound, "X")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc["a"] != "2" {
		t.Errorf("overlay must replace the field, got %v", doc["a"])
	}
	if doc["b"] != "keep" {
		t.Errorf("merge must keep untouched fields, got %v", doc["b"])
	}
}

func TestMemoryStoreCopiesOnReadAndWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := Document{"a": "1"}
	if err := store.Upsert(ctx, CollectionInbound, "X", original, false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	original["a"] = "mutated"

	doc, err := store.GetByID(ctx, CollectionInbound, "X")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc["a"] != "1" {
		t.Errorf("stored document aliased caller memory: %v", doc)
	}

	doc["a"] = "mutated again"
	doc2, _ := store.GetByID(ctx, CollectionInbound, "X")
	if doc2["a"] != "1" {
		t.Errorf("returned document aliased stored memory: %v", doc2)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, CollectionOutbound, "X", Document{"a": "1"}, false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.DeleteByID(ctx, CollectionOutbound, "X"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	doc, err := store.GetByID(ctx, CollectionOutbound, "X")
	if err != nil || doc != nil {
		t.Fatalf("expected the document gone, got %v, %v", doc, err)
	}
	// Absent ids delete without error.
	if err := store.DeleteByID(ctx, CollectionOutbound, "X"); err != nil {
		t.Fatalf("deleting an absent id: %v", err)
	}
}

func TestGatewayStampsUpdatedAt(t *testing.T) {
	g := NewGateway(NewMemoryStore())
	fixed := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	rec := &record.Record{ID: "J16530", Direction: record.Outbound}
	if err := g.Put(context.Background(), rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := g.GetByID(context.Background(), record.Outbound, "J16530")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, fixed)
	}
}
