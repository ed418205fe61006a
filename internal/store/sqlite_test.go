package store

import (
	"context"
	"testing"
	"time"

	"github.com/citeguard/citeguard/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func withStoreClock(t *testing.T) *time.Time {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := storeNow
	storeNow = func() time.Time { return now }
	t.Cleanup(func() { storeNow = orig })
	return &now
}

func verdict(id string, status model.VerdictStatus) *model.VerificationVerdict {
	return &model.VerificationVerdict{ID: id, OrderID: "order-a", Status: status, Confidence: 0.9}
}

func TestStorePutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictVerified), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := s.Get(ctx, "k1", "order-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("stored verdict must be found")
	}
	if got.ID != "run-1" || got.Status != model.VerdictVerified || got.Confidence != 0.9 {
		t.Errorf("got %+v, want the stored verdict back", got)
	}
}

func TestStoreMissingKey(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.Get(context.Background(), "absent", "order-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("absent key must not be found")
	}
}

func TestStoreOrderIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictVerified), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, found, _ := s.Get(ctx, "k1", "order-b"); found {
		t.Fatal("order-b must never read order-a's row")
	}
	if _, found, _ := s.Get(ctx, "k1", ""); found {
		t.Fatal("the default scope must not read a scoped row")
	}

	// The same key can hold distinct verdicts per order.
	if err := s.Put(ctx, "k1", "order-b", verdict("run-2", model.VerdictFlagged), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	a, _, _ := s.Get(ctx, "k1", "order-a")
	b, _, _ := s.Get(ctx, "k1", "order-b")
	if a == nil || b == nil || a.ID == b.ID {
		t.Error("orders must keep independent rows under one key")
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictFlagged), time.Hour)
	_ = s.Put(ctx, "k1", "order-a", verdict("run-2", model.VerdictVerified), time.Hour)

	got, found, err := s.Get(ctx, "k1", "order-a")
	if err != nil || !found {
		t.Fatalf("Get after upsert: found=%v err=%v", found, err)
	}
	if got.ID != "run-2" || got.Status != model.VerdictVerified {
		t.Errorf("got %s/%s, want the replacement row", got.ID, got.Status)
	}
}

func TestStoreExpiry(t *testing.T) {
	now := withStoreClock(t)
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictVerified), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	*now = now.Add(30 * time.Minute)
	if _, found, _ := s.Get(ctx, "k1", "order-a"); !found {
		t.Fatal("unexpired row must be served")
	}

	*now = now.Add(31 * time.Minute)
	if _, found, _ := s.Get(ctx, "k1", "order-a"); found {
		t.Fatal("expired row must be treated as absent")
	}

	// The lazy delete removed the row; it stays gone even if the clock
	// moves back.
	*now = now.Add(-time.Hour)
	if _, found, _ := s.Get(ctx, "k1", "order-a"); found {
		t.Error("expired row must have been deleted")
	}
}

func TestStoreListByOrder(t *testing.T) {
	now := withStoreClock(t)
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictVerified), time.Hour)
	_ = s.Put(ctx, "k2", "order-a", verdict("run-2", model.VerdictFlagged), time.Minute)
	_ = s.Put(ctx, "k3", "order-b", verdict("run-3", model.VerdictVerified), time.Hour)

	*now = now.Add(30 * time.Minute) // k2 expired

	got, err := s.ListByOrder(ctx, "order-a")
	if err != nil {
		t.Fatalf("ListByOrder: %v", err)
	}
	if len(got) != 1 || got[0].ID != "run-1" {
		t.Errorf("got %d rows, want only order-a's unexpired verdict", len(got))
	}
}

func TestStorePurgeExpired(t *testing.T) {
	now := withStoreClock(t)
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictVerified), time.Minute)
	_ = s.Put(ctx, "k2", "order-a", verdict("run-2", model.VerdictVerified), time.Hour)

	*now = now.Add(10 * time.Minute)

	purged, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if _, found, _ := s.Get(ctx, "k2", "order-a"); !found {
		t.Error("unexpired row must survive the purge")
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, "k1", "order-a", verdict("run-1", model.VerdictVerified), time.Hour)
	if err := s.Delete(ctx, "k1", "order-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := s.Get(ctx, "k1", "order-a"); found {
		t.Error("deleted row must be gone")
	}
}
