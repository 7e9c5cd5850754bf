package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quotesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapd_quotes_resolved_total",
		Help: "Number of quote requests that produced a route",
	})
	quotesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapd_quotes_failed_total",
		Help: "Number of quote requests that failed",
	})
	swapsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapd_swaps_submitted_total",
		Help: "Number of swap executions that were submitted on chain",
	})
	swapsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapd_swaps_failed_total",
		Help: "Number of swap executions that failed",
	})
)
