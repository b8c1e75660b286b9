// Package heartbeat periodically reports engine health to an external
// collector and exposes Prometheus metrics for order/connector activity.
// Named in the configuration surface but left unimplemented by the
// distilled spec; grounded on the teacher's own resty client idiom for the
// POST and on fd1az-arbitrage-bot's prometheus/client_golang usage for the
// metrics registry.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"

	"venueexec/internal/connector"
	"venueexec/pkg/types"
)

// Payload is the body posted on every heartbeat tick.
type Payload struct {
	Timestamp time.Time                `json:"ts"`
	Strategy  string                   `json:"strategy"`
	Venue     string                   `json:"venue"`
	Positions []types.PositionSnapshot `json:"positions"`
	Margin    map[string]any           `json:"margin"`
}

// Metrics groups the Prometheus instruments the engine updates.
type Metrics struct {
	OrdersByState    *prometheus.CounterVec
	ConnectorLatency *prometheus.HistogramVec
	OpenOrders       prometheus.Gauge
}

// NewMetrics registers and returns a fresh Metrics set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersByState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venueexec_orders_total",
			Help: "Order submissions by terminal/non-terminal state.",
		}, []string{"venue", "state"}),
		ConnectorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venueexec_connector_call_seconds",
			Help:    "Connector call latency by endpoint category.",
			Buckets: prometheus.DefBuckets,
		}, []string{"venue", "category"}),
		OpenOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "venueexec_open_orders",
			Help: "Current count of non-terminal orders.",
		}),
	}
	reg.MustRegister(m.OrdersByState, m.ConnectorLatency, m.OpenOrders)
	return m
}

// ObserveConnectorLatency records one connector call's duration, satisfying
// the connector package's latency-observer hook.
func (m *Metrics) ObserveConnectorLatency(venue, category string, seconds float64) {
	m.ConnectorLatency.WithLabelValues(venue, category).Observe(seconds)
}

// SetOpenOrders sets the current non-terminal order count.
func (m *Metrics) SetOpenOrders(n float64) {
	m.OpenOrders.Set(n)
}

// Reporter posts periodic heartbeat payloads to an external collector.
type Reporter struct {
	http        *resty.Client
	venue       string
	strategy    string
	intervalSec float64
	conn        connector.Connector
	logger      *slog.Logger
}

// NewReporter builds a Reporter that posts to url every intervalSec
// seconds. An empty url disables posting but Run still accepts the task
// contract so it can always be registered as a lifecycle task.
func NewReporter(url, bearerToken, venue, strategy string, intervalSec, timeoutSec float64, conn connector.Connector, logger *slog.Logger) *Reporter {
	http := resty.New().SetTimeout(time.Duration(timeoutSec * float64(time.Second)))
	if url != "" {
		http.SetBaseURL(url)
	}
	if bearerToken != "" {
		http.SetAuthToken(bearerToken)
	}
	if url == "" {
		intervalSec = 0
	}
	return &Reporter{
		http:        http,
		venue:       venue,
		strategy:    strategy,
		intervalSec: intervalSec,
		conn:        conn,
		logger:      logger.With("component", "heartbeat"),
	}
}

// Run posts a heartbeat on every tick until ctx is cancelled. Errors are
// logged and dropped — a failed heartbeat never affects trading.
func (r *Reporter) Run(ctx context.Context) error {
	if r.intervalSec <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(time.Duration(r.intervalSec * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.postOnce(ctx)
		}
	}
}

func (r *Reporter) postOnce(ctx context.Context) {
	positions, err := r.conn.GetPositions(ctx)
	if err != nil {
		r.logger.Warn("heartbeat: get positions failed", "error", err)
	}
	margin, err := r.conn.GetMargin(ctx)
	if err != nil {
		r.logger.Warn("heartbeat: get margin failed", "error", err)
	}

	payload := Payload{
		Timestamp: time.Now(),
		Strategy:  r.strategy,
		Venue:     r.venue,
		Positions: positions,
		Margin:    margin,
	}

	if _, err := r.http.R().SetContext(ctx).SetBody(payload).Post(""); err != nil {
		r.logger.Warn("heartbeat: post failed", "error", err)
	}
}
