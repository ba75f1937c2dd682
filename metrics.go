package apphistory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reloadsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphistory_client",
			Name:      "reloads_queued_total",
			Help:      "Background reloads accepted into the executor, by shard label.",
		},
		[]string{"shard"},
	)

	reloadsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apphistory_client",
			Name:      "reloads_rejected_total",
			Help:      "Background reloads rejected by back-pressure or shutdown.",
		},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphistory_client",
			Name:      "mutations_total",
			Help:      "Record mutations issued, by operation.",
		},
		[]string{"op"},
	)

	junctionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apphistory_client",
			Name:      "junction_write_failures_total",
			Help:      "Best-effort junction writes that failed.",
		},
	)
)
