package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "referral_ledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// VouchersTotal counts sign-voucher outcomes; result is "issued" or an error kind.
	VouchersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_ledger_vouchers_total",
			Help: "Voucher signing requests by result",
		},
		[]string{"result"},
	)

	// SwapsTotal: result is "credited", "duplicate" or an error kind.
	SwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_ledger_swaps_total",
			Help: "Tracked swap reports by result",
		},
		[]string{"result"},
	)

	BindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_ledger_bindings_total",
			Help: "Referral bind attempts by result",
		},
		[]string{"result"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_ledger_rate_limited_total",
			Help: "Requests rejected by the per-ip rate limiter",
		},
	)
)
