// Package metrics exposes prometheus metrics for copies, polling and the
// control API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsCopied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivemirror_items_copied_total",
			Help: "Objects created at a destination, by kind",
		},
		[]string{"kind"},
	)

	foldersReused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivemirror_folders_reused_total",
			Help: "Destination folders found by name instead of created",
		},
	)

	pollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drivemirror_poll_duration_seconds",
			Help:    "Duration of one pass over all monitor tasks",
			Buckets: prometheus.DefBuckets,
		},
	)

	pollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivemirror_poll_errors_total",
			Help: "Monitor task traversals that ended with an error",
		},
	)

	monitorTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drivemirror_monitor_tasks",
			Help: "Number of monitor tasks seen by the last poll",
		},
	)

	objectsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivemirror_cancel_objects_total",
			Help: "Objects processed by cancellation, by outcome",
		},
		[]string{"outcome"},
	)
)

func RecordFileCopied() {
	itemsCopied.WithLabelValues("file").Inc()
}

func RecordFolderCreated() {
	itemsCopied.WithLabelValues("folder").Inc()
}

func RecordFolderReused() {
	foldersReused.Inc()
}

func RecordPoll(tasks int, d time.Duration) {
	monitorTasks.Set(float64(tasks))
	pollDuration.Observe(d.Seconds())
}

func RecordPollError() {
	pollErrors.Inc()
}

const (
	DeletionOK      = "deleted"
	DeletionSkipped = "skipped"
	DeletionFailed  = "failed"
)

// RecordDeletion counts one cancellation outcome.
func RecordDeletion(outcome string) {
	objectsDeleted.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
