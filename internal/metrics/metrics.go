// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autofilter_queries_total",
		Help: "Free-text queries resolved, by result kind.",
	}, []string{"result"})

	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autofilter_callbacks_total",
		Help: "Inline button presses, by action.",
	}, []string{"action"})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autofilter_commands_total",
		Help: "Commands handled, by command name.",
	}, []string{"command"})

	FilesIndexedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autofilter_files_indexed_total",
		Help: "New files added to the index.",
	})

	OutboxSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autofilter_outbox_sends_total",
		Help: "Queued outbound messages, by status.",
	}, []string{"status"})

	OutboxQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autofilter_outbox_queue_depth",
		Help: "Messages waiting in the outbound queue.",
	})

	StoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autofilter_store_errors_total",
		Help: "Record store failures surfaced to handlers.",
	})
)
