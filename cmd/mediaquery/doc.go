// Command mediaquery runs a media query against a media index database and
// prints the resulting records.
//
// Usage:
//
//	mediaquery [flags]
//
// Examples:
//
//	mediaquery --bucket 7 --limit 20 --offset 0
//	mediaquery --exclude gif,video --shape map --json
//	mediaquery --all-buckets
//
// On a terminal the records are printed as a table; when stdout is piped
// they are printed as JSON.
//
// Environment:
//
//	DATABASE_DIR - Directory holding media-index.db (default: /database)
package main
