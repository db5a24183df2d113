// Package mediaindex provides the SQLite media index the picker queries.
//
// The index exposes two collections addressed by content URI:
//   - content://media/external/file: one row per image or video with its
//     path, display name, size, mime type, media type, bucket and dimensions
//   - content://media/external/video/media[/<id>]: per-video width, height
//     and duration in milliseconds, keyed by the files row id
//
// Index.Query executes a planned query.Query and hands the open cursor to
// the caller. Writes (UpsertEntry, UpsertVideo, DeleteMissing) are reserved
// for the indexer and always run inside BeginBatch/EndBatch.
//
// The database uses WAL mode so queries keep running while the indexer
// writes.
package mediaindex
