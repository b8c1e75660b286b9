package risk

import (
	"context"
	"testing"

	"venueexec/internal/connector"
	"venueexec/internal/errs"
	"venueexec/internal/marketdata"
	"venueexec/internal/position"
	"venueexec/pkg/types"
)

type fakeConnector struct {
	connector.Connector
	decimals types.PriceSizeDecimals
	minSizeI int64
	tob      types.TopOfBook
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

func newTestMarket() *marketdata.Service {
	fc := &fakeConnector{
		decimals: types.PriceSizeDecimals{PriceDecimals: 2, SizeDecimals: 3},
		minSizeI: 100,
		tob:      types.TopOfBook{BestBidI: 9900, BestAskI: 10000},
	}
	return marketdata.New("v1", fc, map[string]string{"SOL": "SOL-USD"})
}

func TestValidateOrderRejectsBelowMinSize(t *testing.T) {
	t.Parallel()
	v := NewValidator(Limits{}, newTestMarket(), position.New())
	err := v.ValidateOrder(context.Background(), "SOL", 50, false, 10000)
	if err == nil {
		t.Fatal("expected min_size violation")
	}
	var rv *errs.RiskViolation
	if !asRiskViolation(err, &rv) {
		t.Fatalf("expected RiskViolation, got %T: %v", err, err)
	}
}

func TestValidateOrderRejectsMaxPosition(t *testing.T) {
	t.Parallel()
	pos := position.New()
	pos.Ingest(types.PositionSnapshot{Symbol: "SOL", BaseQty: 4.5})
	v := NewValidator(Limits{MaxPosition: 5}, newTestMarket(), pos)

	err := v.ValidateOrder(context.Background(), "SOL", 1000, false, 10000)
	if err == nil {
		t.Fatal("expected max_position violation (4.5 + 1.0 > 5)")
	}
}

func TestValidateOrderAllowsWithinLimits(t *testing.T) {
	t.Parallel()
	pos := position.New()
	pos.Ingest(types.PositionSnapshot{Symbol: "SOL", BaseQty: 1})
	v := NewValidator(Limits{MaxPosition: 5, MaxNotional: 1000}, newTestMarket(), pos)

	err := v.ValidateOrder(context.Background(), "SOL", 1000, false, 10000)
	if err != nil {
		t.Errorf("expected no violation, got %v", err)
	}
}

func TestValidateOrderRejectsMaxNotionalUsingFarSide(t *testing.T) {
	t.Parallel()
	v := NewValidator(Limits{MaxNotional: 50}, newTestMarket(), position.New())

	// isAsk=false (buy) with no explicit price uses the ask (far side): 100.00 * 1.0 = 100 > 50
	err := v.ValidateOrder(context.Background(), "SOL", 1000, false, 0)
	if err == nil {
		t.Fatal("expected max_notional violation")
	}
}

func asRiskViolation(err error, target **errs.RiskViolation) bool {
	rv, ok := err.(*errs.RiskViolation)
	if ok {
		*target = rv
	}
	return ok
}
