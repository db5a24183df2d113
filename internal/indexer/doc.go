// Package indexer keeps the media index in sync with a directory tree.
//
// A run walks the media directory, and for every image or video file:
//
//   - sniffs the mime type from the file content, falling back to the
//     extension
//   - reads image dimensions from the image header (JPEG, PNG, GIF, BMP,
//     TIFF and WebP)
//   - probes videos with ffprobe for dimensions and duration
//   - files the entry under an album derived from its parent directory
//
// Probing runs on a worker pool sized by the workers package. Files are
// opened through the filesystem package so stale NFS handles are retried. Entries are
// upserted in batched transactions and rows for files that disappeared are
// removed at the end of the run. A video that fails to probe is indexed
// without a video row.
//
// Start runs an initial index in the background and re-indexes on a fixed
// interval; TriggerIndex starts an extra run on demand.
package indexer
