package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder - prometheus-метрики сканера. Методы на nil-ресивере ничего не делают.
type Recorder struct {
	scanTicks     *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	symbols       *prometheus.CounterVec
	signals       *prometheus.CounterVec
	suppressed    prometheus.Counter
	errorsTotal   *prometheus.CounterVec
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	subscriptions prometheus.Gauge
	streamUp      prometheus.Gauge
}

// New регистрирует метрики в reg (prometheus.DefaultRegisterer в проде).
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scanTicks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultra_signals_scan_ticks_total",
				Help: "Scan ticks by trigger",
			},
			[]string{"trigger"},
		),
		tickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ultra_signals_scan_tick_duration_seconds",
				Help:    "Duration of one scan tick",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		symbols: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultra_signals_symbols_evaluated_total",
				Help: "Symbols evaluated by outcome",
			},
			[]string{"outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultra_signals_alerts_sent_total",
				Help: "Ultra alerts delivered by direction",
			},
			[]string{"direction"},
		),
		suppressed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ultra_signals_alerts_suppressed_total",
				Help: "Ultra alerts dropped by the dedup gate",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultra_signals_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultra_signals_market_requests_total",
				Help: "Outbound market REST requests",
			},
			[]string{"endpoint", "status"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ultra_signals_market_request_duration_seconds",
				Help:    "Market REST request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		subscriptions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ultra_signals_active_subscriptions",
				Help: "Subscriptions with a running scan loop",
			},
		),
		streamUp: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ultra_signals_ticker_stream_connected",
				Help: "1 when the 24h ticker stream is connected",
			},
		),
	}
}

func (r *Recorder) RecordTick(trigger string, d time.Duration) {
	if r == nil {
		return
	}
	r.scanTicks.WithLabelValues(trigger).Inc()
	r.tickDuration.Observe(d.Seconds())
}

// RecordSymbol: outcome = ultra | none | error.
func (r *Recorder) RecordSymbol(outcome string) {
	if r == nil {
		return
	}
	r.symbols.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordAlertSent(direction string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(direction).Inc()
}

func (r *Recorder) RecordAlertSuppressed() {
	if r == nil {
		return
	}
	r.suppressed.Inc()
}

// RecordError: kind = notify | persist | market | panic.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordRequest(endpoint, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(endpoint, status).Inc()
	r.latency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (r *Recorder) SetActiveSubscriptions(n int) {
	if r == nil {
		return
	}
	r.subscriptions.Set(float64(n))
}

func (r *Recorder) SetStreamConnected(up bool) {
	if r == nil {
		return
	}
	if up {
		r.streamUp.Set(1)
		return
	}
	r.streamUp.Set(0)
}
