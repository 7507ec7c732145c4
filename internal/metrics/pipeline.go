package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query pipeline Prometheus metrics.
var (
	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostelfinder",
			Name:      "query_cache_total",
			Help:      "Query cache reads by result",
		},
		[]string{"result"}, // "hit" / "miss" / "stale" / "shared"
	)

	PageFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostelfinder",
			Name:      "page_fetch_total",
			Help:      "Total number of page fetches against the document store",
		},
		[]string{"status"}, // "ok" / "unavailable" / "rejected"
	)

	PageFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hostelfinder",
			Name:      "page_fetch_duration_seconds",
			Help:      "Page fetch duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	QuarantinedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostelfinder",
			Name:      "quarantined_records_total",
			Help:      "Stored documents skipped because they do not fit their record shape",
		},
		[]string{"collection"},
	)

	FavoriteMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostelfinder",
			Name:      "favorite_mutations_total",
			Help:      "Optimistic favorite toggles by outcome",
		},
		[]string{"outcome"}, // "committed" / "rolled_back"
	)

	LiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hostelfinder",
			Name:      "live_subscriptions",
			Help:      "Active real-time store subscriptions",
		},
	)

	PrefsWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hostelfinder",
			Name:      "prefs_write_errors_total",
			Help:      "Preference writes that failed to persist",
		},
	)

	MediaUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostelfinder",
			Name:      "media_uploads_total",
			Help:      "Image uploads to the media CDN by status",
		},
		[]string{"status"}, // "ok" / "rejected" / "error"
	)

	MediaUploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hostelfinder",
			Name:      "media_upload_duration_seconds",
			Help:      "Media CDN upload duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers the query pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueryCacheTotal,
			PageFetchTotal,
			PageFetchDuration,
			QuarantinedRecordsTotal,
			FavoriteMutationsTotal,
			LiveSubscriptions,
			PrefsWriteErrorsTotal,
			MediaUploadsTotal,
			MediaUploadDuration,
		)
	})
}
