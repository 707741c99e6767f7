package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstack_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookstack_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	OutboundFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstack_outbound_fetches_total",
		Help: "Outbound fetches by upstream and outcome",
	}, []string{"target", "outcome"})

	AuthorStrategyWins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstack_author_strategy_wins_total",
		Help: "Author search pages resolved, by winning extraction strategy",
	}, []string{"strategy"})

	MatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstack_match_outcomes_total",
		Help: "Library checks by outcome",
	}, []string{"outcome"})
)
