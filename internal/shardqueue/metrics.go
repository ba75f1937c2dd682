package shardqueue

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphistory_shardqueue",
			Name:      "submissions_total",
			Help:      "Jobs accepted into a shard queue.",
		},
		[]string{"shard"},
	)

	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphistory_shardqueue",
			Name:      "queue_full_total",
			Help:      "Submissions rejected because the shard queue was full.",
		},
		[]string{"shard"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "apphistory_shardqueue",
			Name:      "queue_depth",
			Help:      "Jobs currently waiting in a shard queue.",
		},
		[]string{"shard"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apphistory_shardqueue",
			Name:      "job_run_seconds",
			Help:      "Wall-clock duration of job executions, including retries' individual attempts.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
