// Package metrics provides the Prometheus implementation of the
// transfer engine's MetricsCollector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records transfer metrics into a registry.
type PrometheusCollector struct {
	transfers *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	volume    *prometheus.CounterVec
}

// NewPrometheusCollector registers the collectors on the given
// registerer (pass prometheus.DefaultRegisterer in the server).
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagepay",
			Name:      "transfers_total",
			Help:      "Transfers processed, by transaction type and outcome.",
		}, []string{"type", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stagepay",
			Name:      "transfer_duration_seconds",
			Help:      "Wall time of committed transfers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		volume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagepay",
			Name:      "transfer_volume_cents_total",
			Help:      "Total value moved, in cents, by transaction type.",
		}, []string{"type"}),
	}
}

func (c *PrometheusCollector) RecordTransfer(txType, outcome string) {
	c.transfers.WithLabelValues(txType, outcome).Inc()
}

func (c *PrometheusCollector) RecordTransferDuration(txType string, d time.Duration) {
	c.duration.WithLabelValues(txType).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordVolume(txType string, amountCents int64) {
	c.volume.WithLabelValues(txType).Add(float64(amountCents))
}
