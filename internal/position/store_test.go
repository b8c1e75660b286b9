package position

import (
	"testing"

	"venueexec/pkg/types"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	snap := types.PositionSnapshot{Symbol: "SOL", BaseQty: 5, QuoteValue: 500}
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := store.Load("SOL")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected a saved snapshot")
	}
	if got.BaseQty != 5 || got.QuoteValue != 500 {
		t.Errorf("got %+v, want BaseQty=5 QuoteValue=500", got)
	}
}

func TestStoreLoadMissingReturnsNotOK(t *testing.T) {
	t.Parallel()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	_, ok, err := store.Load("NOPE")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected no snapshot for an unsaved symbol")
	}
}

func TestRestoreIngestsIntoService(t *testing.T) {
	t.Parallel()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.Save(types.PositionSnapshot{Symbol: "SOL", BaseQty: 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	svc := New()
	if err := Restore(store, svc, "SOL"); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if svc.NetBase("SOL") != 3 {
		t.Errorf("NetBase = %v, want 3", svc.NetBase("SOL"))
	}
}
