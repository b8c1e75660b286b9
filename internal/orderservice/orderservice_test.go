package orderservice

import (
	"context"
	"testing"
	"time"

	"venueexec/internal/connector"
	"venueexec/internal/marketdata"
	"venueexec/internal/position"
	"venueexec/internal/risk"
	"venueexec/pkg/types"
)

type fakeConnector struct {
	connector.Connector
	decimals      types.PriceSizeDecimals
	minSizeI      int64
	tob           types.TopOfBook
	submitErr     error
	nextOrderID   string
	cancelErr     error
	cancelCalls   int
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
func (f *fakeConnector) SubmitMarketOrder(ctx context.Context, venueSymbol string, coi int64, sizeI int64, isAsk, reduceOnly bool) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.nextOrderID, nil
}
func (f *fakeConnector) SubmitLimitOrder(ctx context.Context, venueSymbol string, coi int64, baseAmountI, priceI int64, isAsk, postOnly, reduceOnly bool) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.nextOrderID, nil
}
func (f *fakeConnector) CancelByClientID(ctx context.Context, venueSymbol string, coi int64) error {
	f.cancelCalls++
	return f.cancelErr
}

func newTestService(fc *fakeConnector, limits risk.Limits) *Service {
	market := marketdata.New("v1", fc, map[string]string{"SOL": "SOL-USD"})
	pos := position.New()
	validator := risk.NewValidator(limits, market, pos)
	return New("v1", fc, market, validator, 1000, "")
}

func TestSubmitMarketBuySingleFill(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals:    types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI:    100,
		nextOrderID: "ex-1",
	}
	svc := newTestService(fc, risk.Limits{})

	order, err := svc.SubmitMarket(context.Background(), "SOL", false, 1000, false, "trace-1")
	if err != nil {
		t.Fatalf("SubmitMarket: %v", err)
	}
	if order.State() != types.Open {
		t.Fatalf("state after submit = %v, want OPEN", order.State())
	}

	svc.IngestUpdate("v1", "SOL", order.COI, types.VenueOrderStatus{State: types.Filled, ExchangeID: "ex-1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	evt, err := order.WaitFinal(ctx)
	if err != nil {
		t.Fatalf("WaitFinal: %v", err)
	}
	if evt.State != types.Filled {
		t.Errorf("final state = %v, want FILLED", evt.State)
	}
}

func TestSubmitRejectedByRiskNeverHitsConnector(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals:    types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI:    100,
		nextOrderID: "ex-1",
	}
	svc := newTestService(fc, risk.Limits{})

	order, err := svc.SubmitMarket(context.Background(), "SOL", false, 50, false, "")
	if err == nil {
		t.Fatal("expected risk rejection for below-min-size order")
	}
	if order != nil {
		t.Errorf("risk-rejected submit returned order coi=%d, want nil (no order registered or sent)", order.COI)
	}
}

func TestCancelThenLateUpdateIsNoOp(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals:    types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI:    100,
		nextOrderID: "ex-1",
	}
	svc := newTestService(fc, risk.Limits{})

	order, err := svc.SubmitMarket(context.Background(), "SOL", false, 1000, false, "")
	if err != nil {
		t.Fatalf("SubmitMarket: %v", err)
	}

	if err := svc.Cancel(context.Background(), "SOL", order.COI); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if order.State() != types.Cancelled {
		t.Fatalf("state after cancel = %v, want CANCELLED", order.State())
	}

	svc.IngestUpdate("v1", "SOL", order.COI, types.VenueOrderStatus{State: types.Filled})
	if order.State() != types.Cancelled {
		t.Errorf("state after late fill update = %v, want CANCELLED (first terminal wins)", order.State())
	}
}

func TestCancelUnknownOrderErrors(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{decimals: types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3}}
	svc := newTestService(fc, risk.Limits{})

	if err := svc.Cancel(context.Background(), "SOL", 999); err == nil {
		t.Fatal("expected UnknownOrder error")
	}
}

func TestSubmitFailureRecordsFailedState(t *testing.T) {
	t.Parallel()
	fc := &fakeConnector{
		decimals:  types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI:  100,
		submitErr: context.DeadlineExceeded,
	}
	svc := newTestService(fc, risk.Limits{})

	order, err := svc.SubmitMarket(context.Background(), "SOL", false, 1000, false, "")
	if err == nil {
		t.Fatal("expected submit error")
	}
	if order.State() != types.Failed {
		t.Errorf("state after submit failure = %v, want FAILED", order.State())
	}
}
