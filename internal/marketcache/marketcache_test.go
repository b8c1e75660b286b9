package marketcache

import (
	"testing"

	"venueexec/pkg/types"
)

func TestSetAndGetTopOfBook(t *testing.T) {
	t.Parallel()
	c := New(0)
	if _, ok := c.TopOfBook("SOL"); ok {
		t.Fatal("expected no top of book before Set")
	}
	c.SetTopOfBook("SOL", types.TopOfBook{BestBidI: 100, BestAskI: 101})
	tob, ok := c.TopOfBook("SOL")
	if !ok || tob.BestBidI != 100 {
		t.Errorf("TopOfBook = %+v, ok=%v", tob, ok)
	}
}

func TestTradeRingEvictsOldest(t *testing.T) {
	t.Parallel()
	c := New(3)
	for i := 0; i < 5; i++ {
		c.AddTrade("SOL", types.Trade{Price: float64(i)})
	}
	trades := c.RecentTrades("SOL")
	if len(trades) != 3 {
		t.Fatalf("len(trades) = %d, want 3", len(trades))
	}
	if trades[0].Price != 2 || trades[2].Price != 4 {
		t.Errorf("trades = %+v, want prices 2,3,4", trades)
	}
}

func TestPositionAndBalance(t *testing.T) {
	t.Parallel()
	c := New(0)
	c.SetPosition("SOL", types.PositionSnapshot{Symbol: "SOL", BaseQty: 2})
	c.SetBalance("USDC", types.Balance{Asset: "USDC", Total: 500})

	pos, ok := c.Position("SOL")
	if !ok || pos.BaseQty != 2 {
		t.Errorf("Position = %+v, ok=%v", pos, ok)
	}
	bal, ok := c.Balance("USDC")
	if !ok || bal.Total != 500 {
		t.Errorf("Balance = %+v, ok=%v", bal, ok)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	t.Parallel()
	c := New(0)
	c.SetTopOfBook("SOL", types.TopOfBook{BestBidI: 1})

	snap := c.Snapshot()
	c.SetTopOfBook("SOL", types.TopOfBook{BestBidI: 2})

	if snap.Books["SOL"].BestBidI != 1 {
		t.Errorf("snapshot was mutated by later writes: got %d, want 1", snap.Books["SOL"].BestBidI)
	}
}
