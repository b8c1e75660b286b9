package tracking

import (
	"context"
	"testing"
	"time"

	"venueexec/internal/connector"
	"venueexec/internal/errs"
	"venueexec/internal/marketdata"
	"venueexec/internal/orderservice"
	"venueexec/internal/position"
	"venueexec/internal/risk"
	"venueexec/pkg/types"
)

type fakeConnector struct {
	connector.Connector
	decimals    types.PriceSizeDecimals
	minSizeI    int64
	tob         types.TopOfBook
	orderIDSeq  int
	fillOnAttempt int // attempt index (1-based) on which to fill immediately; 0 = never
	attempt     int
	sink        connector.UpdateSink
}

func (f *fakeConnector) GetPriceSizeDecimals(ctx context.Context, venueSymbol string) (types.PriceSizeDecimals, error) {
	return f.decimals, nil
}
func (f *fakeConnector) GetMinSizeI(ctx context.Context, venueSymbol string) (int64, error) {
	return f.minSizeI, nil
}
func (f *fakeConnector) GetTopOfBook(ctx context.Context, venueSymbol string) (types.TopOfBook, error) {
	return f.tob, nil
}
func (f *fakeConnector) SubmitLimitOrder(ctx context.Context, venueSymbol string, coi int64, baseAmountI, priceI int64, isAsk, postOnly, reduceOnly bool) (string, error) {
	f.attempt++
	f.orderIDSeq++
	if f.attempt == f.fillOnAttempt {
		go func(coi int64) {
			time.Sleep(10 * time.Millisecond)
			f.sink.IngestUpdate("v1", "SOL", coi, types.VenueOrderStatus{State: types.Filled, HasFilledBaseI: true, FilledBaseI: baseAmountI})
		}(coi)
	}
	return "ex", nil
}
func (f *fakeConnector) CancelByClientID(ctx context.Context, venueSymbol string, coi int64) error {
	return nil
}

func newHarness(fc *fakeConnector) (*Engine, connector.UpdateSink) {
	market := marketdata.New("v1", fc, map[string]string{"SOL": "SOL-USD"})
	pos := position.New()
	validator := risk.NewValidator(risk.Limits{}, market, pos)
	orders := orderservice.New("v1", fc, market, validator, 1000, "")
	fc.sink = orders
	return New(orders, market), orders
}

func TestTrackingLimitOneReprice(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals:      types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI:      100,
		tob:           types.TopOfBook{BestBidI: 9900, BestAskI: 10000},
		fillOnAttempt: 2,
	}
	engine, _ := newHarness(fc)

	result, err := engine.Run(context.Background(), Params{
		Symbol:       "SOL",
		IsAsk:        false,
		TargetSizeI:  1000,
		IntervalSecs: 0.05,
		TimeoutSecs:  2,
		CancelWaitSecs: 0.2,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilledBaseI != 1000 {
		t.Errorf("FilledBaseI = %d, want 1000", result.FilledBaseI)
	}
	if len(result.Attempts) < 2 {
		t.Errorf("expected at least 2 attempts, got %d", len(result.Attempts))
	}
}

func TestTrackingLimitTimeout(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals:    types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI:    100,
		tob:         types.TopOfBook{BestBidI: 9900, BestAskI: 10000},
		fillOnAttempt: 0,
	}
	engine, _ := newHarness(fc)

	_, err := engine.Run(context.Background(), Params{
		Symbol:         "SOL",
		IsAsk:          false,
		TargetSizeI:    1000,
		IntervalSecs:   0.05,
		TimeoutSecs:    0.15,
		CancelWaitSecs: 0.05,
	})
	if err == nil {
		t.Fatal("expected TrackingLimitTimeout error")
	}
	var timeoutErr *errs.TrackingLimitTimeout
	if e, ok := err.(*errs.TrackingLimitTimeout); ok {
		timeoutErr = e
	}
	if timeoutErr == nil {
		t.Fatalf("expected *errs.TrackingLimitTimeout, got %T: %v", err, err)
	}
}

func TestTrackingLimitRejectsNonPositivePrice(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals: types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI: 100,
		tob:      types.TopOfBook{BestBidI: 5, BestAskI: 10},
	}
	engine, _ := newHarness(fc)

	_, err := engine.Run(context.Background(), Params{
		Symbol:           "SOL",
		IsAsk:            false,
		TargetSizeI:      1000,
		PriceOffsetTicks: 100,
		IntervalSecs:     0.05,
		TimeoutSecs:      1,
		CancelWaitSecs:   0.05,
	})
	if err == nil {
		t.Fatal("expected non-positive price rejection")
	}
}
