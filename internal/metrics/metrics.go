/*

This file contains the Prometheus instrumentation for the IVM. Counters track
harvests, donations, and risk rejections per adapter; gauges track portfolio
value. All collectors are registered on a dedicated registry exposed by the
web server at /metrics.

*/

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the dedicated Prometheus registry for IVM collectors.
var Registry = prometheus.NewRegistry()

var (
	HarvestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ivm",
		Name:      "harvests_total",
		Help:      "Number of completed harvests per adapter.",
	}, []string{"adapter"})

	HarvestFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ivm",
		Name:      "harvest_failures_total",
		Help:      "Number of failed harvest attempts per adapter.",
	}, []string{"adapter"})

	DonationsDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ivm",
		Name:      "donations_dispatched_total",
		Help:      "Sum of dispatched donation amounts per adapter, in settlement units.",
	}, []string{"adapter"})

	DonationsQueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ivm",
		Name:      "donations_queued_total",
		Help:      "Sum of queued donation amounts per adapter, in settlement units.",
	}, []string{"adapter"})

	RiskRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ivm",
		Name:      "risk_rejections_total",
		Help:      "Number of operations rejected by the risk gate per adapter.",
	}, []string{"adapter"})

	PortfolioValue = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ivm",
		Name:      "portfolio_value",
		Help:      "Combined on-book value of all adapters, in settlement units.",
	})
)

func init() {
	Registry.MustRegister(
		HarvestsTotal,
		HarvestFailuresTotal,
		DonationsDispatchedTotal,
		DonationsQueuedTotal,
		RiskRejectionsTotal,
		PortfolioValue,
	)
}

// Handler returns the HTTP handler serving the IVM registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
