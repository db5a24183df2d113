// Package metrics provides Prometheus instrumentation for the media picker.
//
// All metrics are prefixed with "media_picker_" and registered through
// promauto on the default registry, so exposing promhttp.Handler() is enough
// to scrape them.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Media Index Metrics
//   - DBQueryTotal / DBQueryDuration: per operation (query_files, query_video, ...)
//   - DBTransactionDuration: indexer write transactions
//   - MediaIndexRows, MediaIndexBuckets, DBConnectionsOpen: refreshed by Collector
//
// ## Row Mapper Metrics
//   - MapperRowsTotal: one increment per row by outcome (included, skipped_*)
//   - MapperVideoLookups: secondary video lookups by result
//
// ## Dispatcher Metrics
//   - DispatchTotal, DispatchDuration, DispatchInFlight, DispatchResultSize
//
// ## Indexer Metrics
//   - IndexerRunsTotal, IndexerLastRunTimestamp, IndexerLastRunDuration,
//     IndexerFilesProcessed, IndexerErrors, IndexerIsRunning,
//     IndexerProbeDuration, IndexerParallelWorkers
//
// Call InitializeMetrics once at startup so that every labelled series is
// exported from the first scrape.
package metrics
