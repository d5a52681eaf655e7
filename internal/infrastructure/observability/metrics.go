package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Counter of repository method calls by outcome.
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Settlement outcomes per match, labelled by result of the quorum
	// check after each accepted vote.
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_settlements_total",
			Help: "Total number of settlement attempts after accepted votes",
		},
		[]string{"outcome"},
	)

	LedgerVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_coins_total",
			Help: "Total coins moved through the ledger by transaction type",
		},
		[]string{"type"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(RepositoryCalls, RepositoryDuration, SettlementsTotal, LedgerVolume)
}
