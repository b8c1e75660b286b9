package marketdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"venueexec/internal/connector"
	"venueexec/internal/errs"
	"venueexec/pkg/types"
)

type fakeConnector struct {
	connector.Connector
	decimalsCalls int64
	minSizeCalls  int64
	decimals      types.PriceSizeDecimals
	minSizeI      int64
	tob           types.TopOfBook
}

func (f *fakeConnector) GetPriceSizeDecimals(ctx context.Context, venueSymbol string) (types.PriceSizeDecimals, error) {
	atomic.AddInt64(&f.decimalsCalls, 1)
	return f.decimals, nil
}

func (f *fakeConnector) GetMinSizeI(ctx context.Context, venueSymbol string) (int64, error) {
	atomic.AddInt64(&f.minSizeCalls, 1)
	return f.minSizeI, nil
}

func (f *fakeConnector) GetTopOfBook(ctx context.Context, venueSymbol string) (types.TopOfBook, error) {
	return f.tob, nil
}

func TestResolveSymbolUnknown(t *testing.T) {
	t.Parallel()
	s := New("v1", &fakeConnector{}, map[string]string{"SOL": "SOL-USD"})
	_, err := s.ResolveSymbol("ETH")
	var unk *errs.UnknownSymbol
	if err == nil {
		t.Fatal("expected UnknownSymbol error")
	}
	if !errors.As(err, &unk) {
		t.Fatalf("expected *errs.UnknownSymbol, got %T", err)
	}
}

func TestToPriceIRoundsDown(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{decimals: types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3}}
	s := New("v1", fc, map[string]string{"SOL": "SOL-USD"})

	priceI, err := s.ToPriceI(context.Background(), "SOL", 100.259)
	if err != nil {
		t.Fatalf("ToPriceI: %v", err)
	}
	if priceI != 10025 {
		t.Errorf("ToPriceI(100.259) = %d, want 10025 (round down)", priceI)
	}
}

func TestEnsureMinSize(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{decimals: types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3}, minSizeI: 100}
	s := New("v1", fc, map[string]string{"SOL": "SOL-USD"})

	if err := s.EnsureMinSize(context.Background(), "SOL", 100); err != nil {
		t.Errorf("EnsureMinSize(100): %v", err)
	}
	if err := s.EnsureMinSize(context.Background(), "SOL", 99); err == nil {
		t.Error("EnsureMinSize(99) should raise for min 100")
	}
}

func TestPrecisionCacheCoalescesConcurrentCallers(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{decimals: types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3}}
	s := New("v1", fc, map[string]string{"SOL": "SOL-USD"})

	const n = 50
	results := make([]int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			priceI, err := s.ToPriceI(context.Background(), "SOL", 100.25)
			if err != nil {
				t.Errorf("ToPriceI: %v", err)
				return
			}
			results[i] = priceI
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt64(&fc.decimalsCalls); got != 1 {
		t.Errorf("GetPriceSizeDecimals called %d times, want 1", got)
	}
	for i, r := range results {
		if r != 10025 {
			t.Errorf("result[%d] = %d, want 10025", i, r)
		}
	}
}
