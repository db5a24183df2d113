// Package handlers provides the HTTP API of the media picker.
//
// It includes handlers for:
//   - Media queries (/api/media), backed by the dispatcher pipeline
//   - Bucket (album) listing
//   - Triggering a re-index
//   - Health, readiness, version and metrics endpoints
package handlers
