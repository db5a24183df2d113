// Package startup handles configuration loading and startup/shutdown
// logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: directory tree to index (default: /media)
//   - DATABASE_DIR: directory holding the media index database (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - INDEX_INTERVAL: full re-index interval as Go duration (default: 30m)
//   - INDEX_WORKERS: probe worker count (default: 1.5 per CPU, at most 8)
//   - METRICS_ENABLED: serve Prometheus metrics on /metrics (default: true)
//   - LOG_HEALTH_CHECKS: log health check requests (default: true)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//
// The database directory must exist or be creatable, and must be writable.
// A missing media directory only produces a warning; the indexer reports
// the error on each run.
//
// # Build Information
//
// Version, Commit and BuildTime are set at build time:
//
//	go build -ldflags "-X media-picker/internal/startup.Version=1.2.0"
package startup
