package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Media index (database) metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_db_queries_total",
			Help: "Total number of media index queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_db_query_duration_seconds",
			Help:    "Media index query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_db_transaction_duration_seconds",
			Help:    "Duration of indexer write transactions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"result"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_db_connections_open",
			Help: "Number of open media index connections",
		},
	)

	MediaIndexRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_picker_index_rows",
			Help: "Number of rows in the media index by media type",
		},
		[]string{"type"},
	)

	MediaIndexBuckets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_index_buckets",
			Help: "Number of distinct buckets (albums) in the media index",
		},
	)
)

// Row mapper metrics
var (
	MapperRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_mapper_rows_total",
			Help: "Rows seen by the row mapper by outcome",
		},
		[]string{"outcome"},
	)

	MapperVideoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_mapper_video_lookups_total",
			Help: "Secondary video metadata lookups by result",
		},
		[]string{"result"}, // "found", "missing", "error"
	)
)

// Dispatcher metrics
var (
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_dispatch_total",
			Help: "Completed media query dispatches by status",
		},
		[]string{"status"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_picker_dispatch_duration_seconds",
			Help:    "End-to-end duration of a media query dispatch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_dispatch_in_flight",
			Help: "Number of media query dispatches currently running",
		},
	)

	DispatchResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_picker_dispatch_result_size",
			Help:    "Number of records delivered per dispatch",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_runs_total",
			Help: "Total number of indexer runs",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_indexer_last_run_timestamp",
			Help: "Timestamp of the last indexer run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_files_processed_total",
			Help: "Total number of files processed by the indexer",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_errors_total",
			Help: "Total number of indexer errors",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_indexer_running",
			Help: "Whether the indexer is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_indexer_probe_duration_seconds",
			Help:    "Time spent probing a file for dimensions or duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type"},
	)

	IndexerParallelWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_indexer_parallel_workers",
			Help: "Number of probe workers used by the last indexer run",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_filesystem_retries_total",
			Help: "Filesystem operations that needed a retry, by final result",
		},
		[]string{"operation", "result"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors seen by filesystem operations",
		},
		[]string{"operation"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_picker_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
