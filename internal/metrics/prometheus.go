package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "casamento"

type Prometheus struct {
	paymentsCreated *prometheus.CounterVec
	gatewayCalls    *prometheus.HistogramVec
	webhooks        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	sweepItems      *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		paymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Payment creation attempts by result.",
		}, []string{"result"}),
		gatewayCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Gateway notifications by outcome.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Applied payment status transitions.",
		}, []string{"status"}),
		sweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_items_total",
			Help:      "Payments handled by the sweeper.",
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and outcome.",
		}, []string{"cache", "outcome"}),
	}

	reg.MustRegister(
		p.paymentsCreated,
		p.gatewayCalls,
		p.webhooks,
		p.transitions,
		p.sweepItems,
		p.cacheLookups,
	)
	return p
}

func (p *Prometheus) RecordPaymentCreated(result string) {
	p.paymentsCreated.WithLabelValues(result).Inc()
}

func (p *Prometheus) RecordGatewayCall(operation, result string, d time.Duration) {
	p.gatewayCalls.WithLabelValues(operation, result).Observe(d.Seconds())
}

func (p *Prometheus) RecordWebhook(result string) {
	p.webhooks.WithLabelValues(result).Inc()
}

func (p *Prometheus) RecordStatusTransition(status string) {
	p.transitions.WithLabelValues(status).Inc()
}

func (p *Prometheus) RecordSweep(expired, polled, relinked int) {
	p.sweepItems.WithLabelValues("expired").Add(float64(expired))
	p.sweepItems.WithLabelValues("polled").Add(float64(polled))
	p.sweepItems.WithLabelValues("relinked").Add(float64(relinked))
}

func (p *Prometheus) RecordCacheHit(name string) {
	p.cacheLookups.WithLabelValues(name, "hit").Inc()
}

func (p *Prometheus) RecordCacheMiss(name string) {
	p.cacheLookups.WithLabelValues(name, "miss").Inc()
}
