package metrics

// Row outcomes recorded by the row mapper.
const (
	OutcomeIncluded         = "included"
	OutcomeSkippedAnimated  = "skipped_animated"
	OutcomeSkippedExcluded  = "skipped_excluded"
	OutcomeSkippedError     = "skipped_error"
	OutcomeAborted          = "aborted"
	OutcomeVideoFallback    = "video_fallback"
	OutcomeVideoMetaMissing = "video_meta_missing"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{
		OutcomeIncluded, OutcomeSkippedAnimated, OutcomeSkippedExcluded,
		OutcomeSkippedError, OutcomeAborted, OutcomeVideoFallback, OutcomeVideoMetaMissing,
	} {
		MapperRowsTotal.WithLabelValues(outcome)
	}

	for _, result := range []string{"found", "missing", "error"} {
		MapperVideoLookups.WithLabelValues(result)
	}

	for _, status := range []string{"success", "error"} {
		DispatchTotal.WithLabelValues(status)
	}

	for _, t := range []string{"image", "video"} {
		MediaIndexRows.WithLabelValues(t)
		IndexerProbeDuration.WithLabelValues(t)
	}

	for _, op := range []string{"initialize_schema", "query_files", "query_video", "list_buckets",
		"upsert_entry", "upsert_video", "delete_missing", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetries.WithLabelValues(op, "success")
		FilesystemRetries.WithLabelValues(op, "failure")
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, r := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(r)
	}
}
