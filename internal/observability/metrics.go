// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Settlement metrics
	ListingsCreated   prometheus.Counter
	ListingsSold      prometheus.Counter
	ListingsCancelled prometheus.Counter
	TicketsPurchased  prometheus.Counter
	SettledVolume     *prometheus.CounterVec
	FeesCollected     *prometheus.CounterVec

	// Guard metrics
	GuardRejections prometheus.Counter
	ActiveGuards    prometheus.Gauge

	// Bridge metrics
	BridgeCalls  *prometheus.CounterVec
	BridgeErrors prometheus.Counter

	// Latency metrics
	SettlementLatency *prometheus.HistogramVec

	// Feed metrics
	FeedSubscribers prometheus.Gauge
	FeedDropped     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ticket_settlement"
	}

	return &Metrics{
		ListingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "listings_created_total",
			Help:      "Total number of resale listings created",
		}),
		ListingsSold: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "listings_sold_total",
			Help:      "Total number of resale listings settled",
		}),
		ListingsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "listings_cancelled_total",
			Help:      "Total number of resale listings cancelled",
		}),
		TicketsPurchased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boxoffice",
			Name:      "tickets_purchased_total",
			Help:      "Total number of primary tickets sold",
		}),
		SettledVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "volume_total",
			Help:      "Total settled volume in smallest currency units by path",
		}, []string{"path"}),
		FeesCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "fees_collected_total",
			Help:      "Total fees collected in smallest currency units by path",
		}, []string{"path"}),

		GuardRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "rejections_total",
			Help:      "Total number of calls rejected by a held operation lock",
		}),
		ActiveGuards: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "registered",
			Help:      "Current number of registered operation locks",
		}),

		BridgeCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Total number of cross-module calls dispatched by selector",
		}, []string{"selector"}),
		BridgeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "errors_total",
			Help:      "Total number of failed cross-module calls",
		}),

		SettlementLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "latency_seconds",
			Help:      "Settlement call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Current number of connected feed subscribers",
		}),
		FeedDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "dropped_total",
			Help:      "Total number of feed messages dropped on slow subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordListingCreated increments the listings created counter.
func RecordListingCreated() {
	DefaultMetrics.ListingsCreated.Inc()
}

// RecordListingSold records a settled resale.
func RecordListingSold(price, fee uint64) {
	DefaultMetrics.ListingsSold.Inc()
	DefaultMetrics.SettledVolume.WithLabelValues("resale").Add(float64(price))
	DefaultMetrics.FeesCollected.WithLabelValues("resale").Add(float64(fee))
}

// RecordListingCancelled increments the listings cancelled counter.
func RecordListingCancelled() {
	DefaultMetrics.ListingsCancelled.Inc()
}

// RecordTicketsPurchased records a settled primary purchase.
func RecordTicketsPurchased(quantity uint32, totalPaid, fee uint64) {
	DefaultMetrics.TicketsPurchased.Add(float64(quantity))
	DefaultMetrics.SettledVolume.WithLabelValues("primary").Add(float64(totalPaid))
	DefaultMetrics.FeesCollected.WithLabelValues("primary").Add(float64(fee))
}

// RecordGuardRejection increments the guard rejection counter.
func RecordGuardRejection() {
	DefaultMetrics.GuardRejections.Inc()
}

// RecordBridgeCall records a dispatched cross-module call.
func RecordBridgeCall(selector string, err error) {
	DefaultMetrics.BridgeCalls.WithLabelValues(selector).Inc()
	if err != nil {
		DefaultMetrics.BridgeErrors.Inc()
	}
}

// RecordSettlementLatency records settlement call latency.
func RecordSettlementLatency(operation string, seconds float64) {
	DefaultMetrics.SettlementLatency.WithLabelValues(operation).Observe(seconds)
}
