// client.go is the REST half of the reference connector. It wraps a resty
// client with per-category rate limiting, a circuit breaker, and request
// signing, translating the wire JSON shapes into the connector contract's
// integer-scaled vocabulary.
package refvenue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"venueexec/pkg/types"
)

// latencyObserver receives per-call connector latency, labeled by the same
// categories the rate limiter and circuit breaker already split calls into
// (order/cancel/book/account). A *heartbeat.Metrics satisfies this without
// refvenue importing the heartbeat package.
type latencyObserver interface {
	ObserveConnectorLatency(venue, category string, seconds float64)
}

// Client is the reference venue's REST API client.
type Client struct {
	venue    string
	http     *resty.Client
	signer   *Signer
	rl       *RateLimiter
	breakers *Breakers
	dryRun   bool
	logger   *slog.Logger
	metrics  latencyObserver
}

// NewClient builds a REST client for baseURL, signing requests with signer.
func NewClient(venue, baseURL string, signer *Signer, dryRun bool, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		venue:    venue,
		http:     httpClient,
		signer:   signer,
		rl:       NewRateLimiter(),
		breakers: NewBreakers(venue),
		dryRun:   dryRun,
		logger:   logger.With("component", "refvenue_client"),
	}
}

// SetMetrics wires m to receive latency observations for every subsequent
// call. Nil (the default) disables observation.
func (c *Client) SetMetrics(m latencyObserver) {
	c.metrics = m
}

func (c *Client) do(ctx context.Context, category, method, path string, body any, result any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveConnectorLatency(c.venue, category, time.Since(start).Seconds())
		}
	}()

	if err := c.rl.Wait(ctx, category); err != nil {
		return err
	}

	_, err := c.breakers.Run(category, func() (any, error) {
		req := c.http.R().SetContext(ctx)

		var bodyStr string
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request body: %w", err)
			}
			bodyStr = string(raw)
			req.SetBody(raw)
		}
		headers, err := c.signer.Headers(method, path, bodyStr)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		req.SetHeaders(headers)
		if result != nil {
			req.SetResult(result)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode(), resp.String())
		}
		return nil, nil
	})
	return err
}

// GetPriceSizeDecimals fetches declared precision for venueSymbol.
func (c *Client) GetPriceSizeDecimals(ctx context.Context, venueSymbol string) (types.PriceSizeDecimals, error) {
	var info wireSymbolInfo
	if err := c.do(ctx, "book", http.MethodGet, "/symbols/"+venueSymbol, nil, &info); err != nil {
		return types.PriceSizeDecimals{}, err
	}
	return types.PriceSizeDecimals{PriceDecimals: info.PriceDecimals, SizeDecimals: info.SizeDecimals}, nil
}

// GetMinSizeI fetches the minimum order size, scaled to an integer.
func (c *Client) GetMinSizeI(ctx context.Context, venueSymbol string) (int64, error) {
	var info wireSymbolInfo
	if err := c.do(ctx, "book", http.MethodGet, "/symbols/"+venueSymbol, nil, &info); err != nil {
		return 0, err
	}
	min, err := decimal.NewFromString(info.MinSize)
	if err != nil {
		return 0, fmt.Errorf("parse min_size %q: %w", info.MinSize, err)
	}
	scaled := min.Shift(int32(info.SizeDecimals)).Truncate(0)
	return scaled.IntPart(), nil
}

// GetTopOfBook fetches best bid/ask for venueSymbol, scaled to the symbol's
// declared price decimals.
func (c *Client) GetTopOfBook(ctx context.Context, venueSymbol string) (types.TopOfBook, error) {
	var book wireBook
	if err := c.do(ctx, "book", http.MethodGet, "/book?symbol="+venueSymbol, nil, &book); err != nil {
		return types.TopOfBook{}, err
	}
	decimals, err := c.GetPriceSizeDecimals(ctx, venueSymbol)
	if err != nil {
		return types.TopOfBook{}, err
	}
	scale := pow10(decimals.PriceDecimals)

	var tob types.TopOfBook
	tob.Scale = scale
	tob.AsOf = time.Now()
	if len(book.Bids) > 0 {
		tob.BestBidI = priceToI(book.Bids[0].Price, decimals.PriceDecimals)
	}
	if len(book.Asks) > 0 {
		tob.BestAskI = priceToI(book.Asks[0].Price, decimals.PriceDecimals)
	}
	return tob, nil
}

// SubmitLimitOrder places a resting order at the given integer price/size.
func (c *Client) SubmitLimitOrder(ctx context.Context, venueSymbol string, coi int64, baseAmountI, priceI int64, isAsk, postOnly, reduceOnly bool) (string, error) {
	if c.dryRun {
		c.logger.Info("dry-run submit limit order", "symbol", venueSymbol, "coi", coi, "size_i", baseAmountI, "price_i", priceI)
		return fmt.Sprintf("dry-run-%d", coi), nil
	}
	payload := map[string]any{
		"symbol":              venueSymbol,
		"client_order_index": coi,
		"size_i":             baseAmountI,
		"price_i":            priceI,
		"side":               string(types.SideFromIsAsk(isAsk)),
		"type":               "limit",
		"post_only":          postOnly,
		"reduce_only":        reduceOnly,
	}
	var ack wireOrderAck
	if err := c.do(ctx, "order", http.MethodPost, "/orders", payload, &ack); err != nil {
		return "", err
	}
	return ack.OrderID, nil
}

// SubmitMarketOrder places an immediate-execution order.
func (c *Client) SubmitMarketOrder(ctx context.Context, venueSymbol string, coi int64, sizeI int64, isAsk, reduceOnly bool) (string, error) {
	if c.dryRun {
		c.logger.Info("dry-run submit market order", "symbol", venueSymbol, "coi", coi, "size_i", sizeI)
		return fmt.Sprintf("dry-run-%d", coi), nil
	}
	payload := map[string]any{
		"symbol":             venueSymbol,
		"client_order_index": coi,
		"size_i":             sizeI,
		"side":               string(types.SideFromIsAsk(isAsk)),
		"type":               "market",
		"reduce_only":        reduceOnly,
	}
	var ack wireOrderAck
	if err := c.do(ctx, "order", http.MethodPost, "/orders", payload, &ack); err != nil {
		return "", err
	}
	return ack.OrderID, nil
}

// CancelByClientID cancels by engine-issued COI. Idempotent: a 404 from the
// venue (order already terminal or never existed) is not an error.
func (c *Client) CancelByClientID(ctx context.Context, venueSymbol string, coi int64) error {
	if c.dryRun {
		c.logger.Info("dry-run cancel by client id", "symbol", venueSymbol, "coi", coi)
		return nil
	}
	path := fmt.Sprintf("/orders?symbol=%s&client_order_index=%d", venueSymbol, coi)
	err := c.do(ctx, "cancel", http.MethodDelete, path, nil, nil)
	return ignoreNotFound(err)
}

// CancelByOrderID cancels by venue-assigned id.
func (c *Client) CancelByOrderID(ctx context.Context, venueSymbol, exchangeOrderID string) error {
	if c.dryRun {
		c.logger.Info("dry-run cancel by order id", "symbol", venueSymbol, "order_id", exchangeOrderID)
		return nil
	}
	path := fmt.Sprintf("/orders/%s?symbol=%s", exchangeOrderID, venueSymbol)
	err := c.do(ctx, "cancel", http.MethodDelete, path, nil, nil)
	return ignoreNotFound(err)
}

// GetOrder fetches current venue state for reconciliation.
func (c *Client) GetOrder(ctx context.Context, venueSymbol string, coi int64) (types.VenueOrderStatus, error) {
	var status wireOrderStatus
	path := fmt.Sprintf("/orders?symbol=%s&client_order_index=%d", venueSymbol, coi)
	if err := c.do(ctx, "account", http.MethodGet, path, nil, &status); err != nil {
		return types.VenueOrderStatus{}, err
	}
	return wireStatusToDomain(status.Status, status.OrderID, status.FilledSize), nil
}

// GetPositions returns every open position the venue reports.
func (c *Client) GetPositions(ctx context.Context) ([]types.PositionSnapshot, error) {
	var positions []wirePosition
	if err := c.do(ctx, "account", http.MethodGet, "/positions", nil, &positions); err != nil {
		return nil, err
	}
	out := make([]types.PositionSnapshot, 0, len(positions))
	now := time.Now()
	for _, p := range positions {
		out = append(out, types.PositionSnapshot{
			Symbol:        types.CanonicalSymbol(p.Symbol),
			BaseQty:       p.BaseQty,
			QuoteValue:    p.QuoteValue,
			Notional:      p.Notional,
			RealizedPnL:   p.RealizedPnL,
			UnrealizedPnL: p.UnrealizedPnL,
			Timestamp:     now,
		})
	}
	return out, nil
}

// GetMargin returns venue-specific margin/account figures, left untyped
// since the shape is venue-specific and callers only log/export it.
func (c *Client) GetMargin(ctx context.Context) (map[string]any, error) {
	var margin map[string]any
	if err := c.do(ctx, "account", http.MethodGet, "/margin", nil, &margin); err != nil {
		return nil, err
	}
	return margin, nil
}

func ignoreNotFound(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "status 404") {
		return nil
	}
	return err
}

func pow10(n int) int64 {
	scale := int64(1)
	for i := 0; i < n; i++ {
		scale *= 10
	}
	return scale
}

func priceToI(raw string, decimals int) int64 {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.Shift(int32(decimals)).Truncate(0).IntPart()
}

func wireStatusToDomain(status, orderID, filledSize string) types.VenueOrderStatus {
	state := types.ParseOrderState(status)
	out := types.VenueOrderStatus{State: state, ExchangeID: orderID}
	if filledSize != "" {
		if d, err := decimal.NewFromString(filledSize); err == nil {
			out.FilledBaseI = d.Truncate(0).IntPart()
			out.HasFilledBaseI = true
		}
	}
	return out
}
