// Package refvenue is a reference connector implementation satisfying
// internal/connector.Connector. It talks REST for order management and
// account queries, and a websocket user channel for order lifecycle
// pushes, following the same split the engine's reference bot used between
// its exchange client and its ws feeds.
package refvenue

import (
	"context"
	"fmt"
	"log/slog"

	"venueexec/internal/connector"
	"venueexec/pkg/types"
)

// Config is the subset of connection details a refvenue connector needs,
// independent of the engine's process-wide config shape.
type Config struct {
	Venue          string
	RESTBaseURL    string
	WSURL          string
	CredentialFile string
	DryRun         bool
}

// Connector wires together the REST client and websocket feed behind the
// connector.Connector contract.
type Connector struct {
	venue  string
	client *Client
	feed   *WSFeed
	logger *slog.Logger

	cancel context.CancelFunc
}

var _ connector.Connector = (*Connector)(nil)

// New constructs a Connector from cfg, loading and validating credentials
// up front so configuration errors surface at startup rather than on the
// first trade.
func New(cfg Config, logger *slog.Logger) (*Connector, error) {
	creds, err := LoadCredentials(cfg.CredentialFile)
	if err != nil {
		return nil, fmt.Errorf("load credentials for %s: %w", cfg.Venue, err)
	}
	signer, err := NewSigner(creds)
	if err != nil {
		return nil, fmt.Errorf("build signer for %s: %w", cfg.Venue, err)
	}

	client := NewClient(cfg.Venue, cfg.RESTBaseURL, signer, cfg.DryRun, logger)
	feed := NewWSFeed(cfg.Venue, cfg.WSURL, signer, logger)

	return &Connector{
		venue:  cfg.Venue,
		client: client,
		feed:   feed,
		logger: logger.With("venue", cfg.Venue),
	}, nil
}

// SetMetrics wires m to receive per-call connector latency observations.
// Nil (the default) disables observation.
func (c *Connector) SetMetrics(m latencyObserver) {
	c.client.SetMetrics(m)
}

// Subscribe registers a canonical/venue symbol pair to track on the user
// channel, so the feed can translate inbound events back to the canonical
// symbol the order registry is keyed on. Must be called before Start to
// take effect on the initial connection.
func (c *Connector) Subscribe(canonical types.CanonicalSymbol, venueSymbol string) {
	c.feed.Subscribe(canonical, venueSymbol)
}

// Start begins the websocket feed in the background, pushing order updates
// to sink until ctx is cancelled or Stop is called.
func (c *Connector) Start(ctx context.Context, sink connector.UpdateSink) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go func() {
		if err := c.feed.Run(runCtx, sink); err != nil && runCtx.Err() == nil {
			c.logger.Error("websocket feed exited", "error", err)
		}
	}()
	return nil
}

// Stop cancels the feed's run loop and closes the connection.
func (c *Connector) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.feed.Close()
}

func (c *Connector) GetPriceSizeDecimals(ctx context.Context, venueSymbol string) (types.PriceSizeDecimals, error) {
	return c.client.GetPriceSizeDecimals(ctx, venueSymbol)
}

func (c *Connector) GetMinSizeI(ctx context.Context, venueSymbol string) (int64, error) {
	return c.client.GetMinSizeI(ctx, venueSymbol)
}

func (c *Connector) GetTopOfBook(ctx context.Context, venueSymbol string) (types.TopOfBook, error) {
	return c.client.GetTopOfBook(ctx, venueSymbol)
}

func (c *Connector) SubmitLimitOrder(ctx context.Context, venueSymbol string, coi int64, baseAmountI, priceI int64, isAsk, postOnly, reduceOnly bool) (string, error) {
	return c.client.SubmitLimitOrder(ctx, venueSymbol, coi, baseAmountI, priceI, isAsk, postOnly, reduceOnly)
}

func (c *Connector) SubmitMarketOrder(ctx context.Context, venueSymbol string, coi int64, sizeI int64, isAsk, reduceOnly bool) (string, error) {
	return c.client.SubmitMarketOrder(ctx, venueSymbol, coi, sizeI, isAsk, reduceOnly)
}

func (c *Connector) CancelByClientID(ctx context.Context, venueSymbol string, coi int64) error {
	return c.client.CancelByClientID(ctx, venueSymbol, coi)
}

func (c *Connector) CancelByOrderID(ctx context.Context, venueSymbol, exchangeOrderID string) error {
	return c.client.CancelByOrderID(ctx, venueSymbol, exchangeOrderID)
}

func (c *Connector) GetOrder(ctx context.Context, venueSymbol string, coi int64) (types.VenueOrderStatus, error) {
	return c.client.GetOrder(ctx, venueSymbol, coi)
}

func (c *Connector) GetPositions(ctx context.Context) ([]types.PositionSnapshot, error) {
	return c.client.GetPositions(ctx)
}

func (c *Connector) GetMargin(ctx context.Context) (map[string]any, error) {
	return c.client.GetMargin(ctx)
}
