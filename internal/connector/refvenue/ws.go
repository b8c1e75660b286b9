// ws.go maintains the venue's user-channel websocket feed: order lifecycle
// pushes that get mapped onto OrderState and handed to the order service's
// ingest entrypoint. The feed auto-reconnects with exponential backoff
// (1s doubling to a 30s cap) and relies on a read deadline to detect a
// silently dead connection.
package refvenue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"venueexec/internal/connector"
	"venueexec/pkg/types"
)

const (
	wsReadTimeout      = 90 * time.Second
	wsMaxReconnectWait = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// WSFeed streams order lifecycle events from the venue's user channel.
type WSFeed struct {
	url    string
	venue  string
	signer *Signer
	logger *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	symbolsMu sync.RWMutex
	symbols   map[string]types.CanonicalSymbol // venue symbol -> canonical
}

// NewWSFeed builds a feed for wsURL that dispatches order events to sink
// once Run is started.
func NewWSFeed(venue, wsURL string, signer *Signer, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		url:     wsURL,
		venue:   venue,
		signer:  signer,
		logger:  logger.With("component", "refvenue_ws"),
		symbols: make(map[string]types.CanonicalSymbol),
	}
}

// Subscribe registers a canonical/venue symbol pair for the user channel,
// so inbound events (keyed by venue symbol) can be translated back to the
// canonical symbol the order registry is keyed on. Safe to call before or
// after Run; subscriptions are replayed on every reconnect.
func (f *WSFeed) Subscribe(canonical types.CanonicalSymbol, venueSymbol string) {
	f.symbolsMu.Lock()
	defer f.symbolsMu.Unlock()
	f.symbols[venueSymbol] = canonical
}

// canonicalSymbol translates a venue symbol back to the canonical symbol it
// was subscribed under. Returns false for a venue symbol this feed was
// never told about.
func (f *WSFeed) canonicalSymbol(venueSymbol string) (types.CanonicalSymbol, bool) {
	f.symbolsMu.RLock()
	defer f.symbolsMu.RUnlock()
	c, ok := f.symbols[venueSymbol]
	return c, ok
}

// Run connects and maintains the connection with auto-reconnect, pushing
// every order event it observes to sink. Blocks until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context, sink connector.UpdateSink) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > wsMaxReconnectWait {
			backoff = wsMaxReconnectWait
		}
	}
}

// Close tears down the active connection, if any.
func (f *WSFeed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *WSFeed) connectAndRead(ctx context.Context, sink connector.UpdateSink) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.sendSubscription(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.logger.Info("websocket connected")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg, sink)
	}
}

func (f *WSFeed) sendSubscription() error {
	f.symbolsMu.RLock()
	symbols := make([]string, 0, len(f.symbols))
	for s := range f.symbols {
		symbols = append(symbols, s)
	}
	f.symbolsMu.RUnlock()

	headers, err := f.signer.Headers("GET", "/ws/user", "")
	if err != nil {
		return fmt.Errorf("auth headers: %w", err)
	}
	msg := map[string]any{
		"op":      "subscribe",
		"channel": "user",
		"symbols": symbols,
		"auth":    headers,
	}
	return f.writeJSON(msg)
}

func (f *WSFeed) dispatch(data []byte, sink connector.UpdateSink) {
	var evt wireOrderEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		f.logger.Debug("ignoring unparseable ws message", "data", string(data))
		return
	}
	if evt.EventType != "order" || evt.ClientID == 0 {
		return
	}

	canonical, ok := f.canonicalSymbol(evt.Symbol)
	if !ok {
		f.logger.Warn("ignoring order event for unsubscribed venue symbol", "venue_symbol", evt.Symbol)
		return
	}

	status := wireStatusToDomain(evt.Status, evt.OrderID, evt.FilledSize)
	sink.IngestUpdate(f.venue, canonical, evt.ClientID, status)
}

func (f *WSFeed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return f.conn.WriteJSON(v)
}
