// venueexec drives a single configured order (or runs diagnostic-only)
// against one venue for the lifetime of the process.
//
// Architecture:
//
//	main.go                          — entry point: loads config, wires services, waits for SIGINT/SIGTERM
//	internal/connector/refvenue       — REST + WS connector for one venue
//	internal/marketdata                — symbol resolution, precision cache
//	internal/position                  — latest position-by-symbol store
//	internal/risk                      — pre-trade validation (min size, position cap, notional cap)
//	internal/marketcache                — top-of-book/trade/position/balance cache
//	internal/orderservice               — order submission, cancellation, update ingestion
//	internal/tracking                   — tracking-limit repricing engine
//	internal/router                     — façade over the services above
//	internal/lifecycle                  — connector + background task start/stop
//	internal/heartbeat                   — periodic status POST + Prometheus metrics
//	internal/api                        — diagnostic HTTP surface (/status, /stream, /metrics)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"venueexec/internal/api"
	"venueexec/internal/config"
	"venueexec/internal/connector"
	"venueexec/internal/connector/refvenue"
	"venueexec/internal/heartbeat"
	"venueexec/internal/lifecycle"
	"venueexec/internal/marketcache"
	"venueexec/internal/marketdata"
	"venueexec/internal/model"
	"venueexec/internal/orderservice"
	"venueexec/internal/position"
	"venueexec/internal/risk"
	"venueexec/internal/router"
	"venueexec/internal/tracking"
	"venueexec/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("EXEC_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	conn, err := refvenue.New(refvenue.Config{
		Venue:          cfg.Venue,
		RESTBaseURL:    cfg.RESTBaseURL,
		WSURL:          cfg.WSURL,
		CredentialFile: cfg.VenueCredentials[cfg.Venue],
		DryRun:         cfg.DryRun,
	}, logger)
	if err != nil {
		logger.Error("failed to build connector", "error", err)
		os.Exit(1)
	}

	venueSymbol, ok := cfg.SymbolMap[cfg.Symbol]
	if !ok {
		logger.Error("symbol_map has no entry for configured symbol", "symbol", cfg.Symbol)
		os.Exit(1)
	}
	conn.Subscribe(types.CanonicalSymbol(cfg.Symbol), venueSymbol)

	market := marketdata.New(cfg.Venue, conn, cfg.SymbolMap)
	positions := position.New()

	var posStore *position.Store
	if cfg.PositionStoreDir != "" {
		posStore, err = position.OpenStore(cfg.PositionStoreDir)
		if err != nil {
			logger.Error("failed to open position store", "error", err)
			os.Exit(1)
		}
		if err := position.Restore(posStore, positions, types.CanonicalSymbol(cfg.Symbol)); err != nil {
			logger.Warn("failed to restore persisted position", "error", err)
		}
	}

	validator := risk.NewValidator(risk.Limits{
		MaxPosition: cfg.Risk.MaxPosition,
		MaxNotional: cfg.Risk.MaxNotional,
	}, market, positions)
	cache := marketcache.New(0)
	orders := orderservice.New(cfg.Venue, conn, market, validator, model.DefaultCOIModulus, cfg.OrderLog.Dir)
	tracker := tracking.New(orders, market)
	r := router.New(orders, market, validator, positions, cache, tracker)

	reg := prometheus.NewRegistry()
	var metrics *heartbeat.Metrics
	if cfg.Diagnostics.Metrics {
		metrics = heartbeat.NewMetrics(reg)
		conn.SetMetrics(metrics)
	}

	var openOrders atomic.Int64
	broadcaster := api.NewBroadcaster(logger)
	r.OnTransition(func(id model.Identity, evt model.Event) {
		broadcaster.Publish(api.NewStreamEvent(id, evt))
		if metrics != nil {
			metrics.OrdersByState.WithLabelValues(id.Venue, string(evt.State)).Inc()
			switch {
			case evt.State == types.Submitting:
				metrics.SetOpenOrders(float64(openOrders.Add(1)))
			case evt.State.Terminal():
				metrics.SetOpenOrders(float64(openOrders.Add(-1)))
			}
		}
	})

	var tasks []lifecycle.Task
	tasks = append(tasks, marketCachePoller(cache, market, cfg.Symbol, 2*time.Second))
	tasks = append(tasks, positionPoller(conn, positions, cache, 5*time.Second, logger))

	if cfg.Heartbeat.URL != "" {
		reporter := heartbeat.NewReporter(cfg.Heartbeat.URL, cfg.Heartbeat.BearerToken, cfg.Venue, cfg.Heartbeat.Strategy, cfg.Heartbeat.IntervalSecs, cfg.Heartbeat.TimeoutSecs, conn, logger)
		tasks = append(tasks, reporter.Run)
	}

	ctrl := lifecycle.New(conn, orders, logger, tasks...)

	var diagServer *api.Server
	if cfg.Diagnostics.Enabled {
		var metricsReg *prometheus.Registry
		if cfg.Diagnostics.Metrics {
			metricsReg = reg
		}
		diagServer = api.NewServer(cfg.Diagnostics.Port, r, broadcaster, metricsReg, logger)
		go func() {
			if err := diagServer.Start(); err != nil {
				logger.Error("diagnostic server failed", "error", err)
			}
		}()
		logger.Info("diagnostic server started", "url", fmt.Sprintf("http://localhost:%d", cfg.Diagnostics.Port))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		logger.Error("failed to start connector", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}
	logger.Info("engine started", "venue", cfg.Venue, "symbol", cfg.Symbol, "mode", cfg.Mode, "dry_run", cfg.DryRun)

	runMode(ctx, cfg, r, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if posStore != nil {
		if snap, ok := positions.Get(types.CanonicalSymbol(cfg.Symbol)); ok {
			if err := posStore.Save(snap); err != nil {
				logger.Error("failed to persist position on shutdown", "error", err)
			}
		}
	}

	if diagServer != nil {
		if err := diagServer.Stop(); err != nil {
			logger.Error("failed to stop diagnostic server", "error", err)
		}
	}
	ctrl.Stop(context.Background())
}

// runMode places the configured order (market or tracking_limit) once the
// connector is live. Diagnostic mode places nothing and simply leaves the
// connector and background tasks running until shutdown.
func runMode(ctx context.Context, cfg *config.Config, r *router.Router, logger *slog.Logger) {
	symbol := types.CanonicalSymbol(cfg.Symbol)
	isAsk := cfg.IsAsk()
	sizeI, err := r.MarketData().ToSizeI(ctx, symbol, cfg.Qty)
	if err != nil && cfg.Mode != config.ModeDiagnostic {
		logger.Error("failed to scale order size", "error", err)
		return
	}

	switch cfg.Mode {
	case config.ModeMarket:
		order, err := r.SubmitMarket(ctx, symbol, isAsk, sizeI, cfg.ReduceOnly != 0, "")
		if err != nil {
			logger.Error("market order submission failed", "error", err)
			return
		}
		evt, err := order.WaitFinal(ctx)
		if err != nil {
			logger.Error("market order did not reach a final state", "error", err)
			return
		}
		logger.Info("market order finished", "state", evt.State, "filled_base_i", order.FilledBaseI())

	case config.ModeTrackingLimit:
		result, err := r.TrackingLimit(ctx, tracking.Params{
			Symbol:           symbol,
			IsAsk:            isAsk,
			TargetSizeI:      sizeI,
			PriceOffsetTicks: cfg.PriceOffsetTicks,
			IntervalSecs:     cfg.IntervalSecs,
			TimeoutSecs:      cfg.TimeoutSecs,
			CancelWaitSecs:   cfg.CancelWaitSecs,
			MaxAttempts:      cfg.MaxAttempts,
			PostOnly:         cfg.PostOnly != 0,
			ReduceOnly:       cfg.ReduceOnly != 0,
		})
		if err != nil {
			logger.Error("tracking-limit order failed", "error", err)
			return
		}
		logger.Info("tracking-limit order finished", "filled_base_i", result.FilledBaseI, "attempts", len(result.Attempts))

	case config.ModeDiagnostic:
		logger.Info("diagnostic mode: connector running, no order will be placed")
	}
}

// marketCachePoller periodically refreshes the cache's top-of-book entry
// for symbol. The reference connector streams order events only, so book
// state is kept current by polling rather than a dedicated book feed.
func marketCachePoller(cache *marketcache.Cache, market *marketdata.Service, symbol string, interval time.Duration) lifecycle.Task {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		canonical := types.CanonicalSymbol(symbol)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				tob, err := market.GetTopOfBook(ctx, canonical)
				if err != nil {
					continue
				}
				cache.SetTopOfBook(canonical, tob)
			}
		}
	}
}

// positionPoller periodically refreshes the position service and cache from
// the connector's account endpoint (the same "account" rate-limit/breaker
// category GetOrder/GetMargin use), so the risk validator's max_position
// check reflects the venue's own view of exposure rather than only the
// last restored/ingested snapshot.
func positionPoller(conn connector.Connector, positions *position.Service, cache *marketcache.Cache, interval time.Duration, logger *slog.Logger) lifecycle.Task {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				snaps, err := conn.GetPositions(ctx)
				if err != nil {
					logger.Warn("position poll failed", "error", err)
					continue
				}
				for _, snap := range snaps {
					positions.Ingest(snap)
					cache.SetPosition(snap.Symbol, snap)
				}
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
