package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subtrans",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	JobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "subtrans",
		Name:      "jobs_active",
		Help:      "Number of translation jobs currently in flight.",
	})

	JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "jobs_total",
		Help:      "Total translation jobs completed, by outcome.",
	}, []string{"outcome"})

	JobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "subtrans",
		Name:      "job_duration_seconds",
		Help:      "End-to-end duration of a translation job in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	ExtractDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "subtrans",
		Name:      "extract_duration_seconds",
		Help:      "Duration of the subtitle extraction stage in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 3, 5, 10, 30},
	})

	ExtractFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "extract_failures_total",
		Help:      "Total subtitle extraction failures by container kind.",
	}, []string{"container"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "cache_hits_total",
		Help:      "Total cache lookups that found a usable artifact.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "cache_misses_total",
		Help:      "Total cache lookups that found nothing usable.",
	})

	CacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "subtrans",
		Name:      "cache_size_bytes",
		Help:      "Current total size of the subtitle artifact cache in bytes.",
	})

	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "cache_evictions_total",
		Help:      "Total number of cache entries evicted for exceeding their TTL.",
	})

	TranslateBatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subtrans",
		Name:      "translate_batch_duration_seconds",
		Help:      "Duration of a single translation batch call by backend.",
		Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"backend"})

	TranslateBatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "translate_batches_total",
		Help:      "Total translation batches attempted, by backend and result.",
	}, []string{"backend", "result"})

	TranslateBackendFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "translate_backend_failures_total",
		Help:      "Total translation backend failures by backend and failure kind.",
	}, []string{"backend", "kind"})

	TranslateRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "translate_retries_total",
		Help:      "Total translation batch retries by backend.",
	}, []string{"backend"})

	TranslateAbortsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "translate_aborts_total",
		Help:      "Total translation jobs aborted by reason.",
	}, []string{"reason"})

	TranslateETASeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "subtrans",
		Name:      "translate_eta_seconds",
		Help:      "Estimated seconds remaining for the most recently observed in-flight job.",
	})

	JournalEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtrans",
		Name:      "journal_entries_total",
		Help:      "Total error journal entries recorded by kind.",
	}, []string{"kind"})

	WSClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "subtrans",
		Name:      "ws_clients_connected",
		Help:      "Number of currently connected progress-stream websocket clients.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		JobsActive,
		JobsTotal,
		JobDuration,
		ExtractDuration,
		ExtractFailuresTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheSizeBytes,
		CacheEvictionsTotal,
		TranslateBatchDuration,
		TranslateBatchesTotal,
		TranslateBackendFailuresTotal,
		TranslateRetriesTotal,
		TranslateAbortsTotal,
		TranslateETASeconds,
		JournalEntriesTotal,
		WSClientsConnected,
	)
}
