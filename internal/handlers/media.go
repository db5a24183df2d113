package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"media-picker/internal/dispatcher"
	"media-picker/internal/logging"
	"media-picker/internal/mapper"
	"media-picker/internal/mediatypes"
	"media-picker/internal/query"
)

// Response shapes for ListMedia.
const (
	shapeRecord = "record"
	shapeMap    = "map"
)

var errInvalidParam = errors.New("invalid parameter")

// ListMedia runs one media query and returns its records.
//
// Query parameters: bucket, limit, offset, inverted, exclude (comma
// separated categories), shape (record|map), strict, ignoreExclusions,
// videoFallback (zero|omit).
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	req, shape, err := parseMediaRequest(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logging.Debug("ListMedia: bucket=%s limit=%d offset=%d inverted=%t policy=%s",
		req.Query.BucketID, req.Query.Limit, req.Query.Offset, req.Query.Inverted, req.Mapping.Policy)

	task := dispatcher.New(h.index, req)
	if err := task.Execute(r.Context()); err != nil {
		logging.Error("ListMedia: failed to start query: %v", err)
		writeJSONError(w, "Failed to query media", http.StatusInternalServerError)
		return
	}

	records, err := task.Wait(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			logging.Debug("ListMedia: client went away: %v", err)
			return
		}
		logging.Error("ListMedia: %v", err)
		writeJSONError(w, "Failed to query media", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Result-Count", strconv.Itoa(len(records)))
	if shape == shapeMap {
		writeJSON(w, mapper.Maps(records))
		return
	}
	writeJSON(w, records)
}

// ListBuckets returns every album in the index, led by the "all" bucket.
func (h *Handlers) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.index.Buckets(r.Context())
	if err != nil {
		logging.Error("ListBuckets: %v", err)
		writeJSONError(w, "Failed to list buckets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buckets)
}

// TriggerReindex starts a background index run.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if !h.indexer.TriggerIndex() {
		writeJSONStatus(w, http.StatusConflict, "already_indexing")
		return
	}
	writeJSONStatus(w, http.StatusAccepted, "started")
}

func parseMediaRequest(r *http.Request) (dispatcher.Request, string, error) {
	q := r.URL.Query()
	req := dispatcher.Request{Query: query.NewRequest(query.AllBuckets)}

	if bucket := strings.TrimSpace(q.Get("bucket")); bucket != "" {
		if _, err := strconv.ParseUint(bucket, 10, 64); err != nil {
			return req, "", fmt.Errorf("%w: bucket must be a numeric id", errInvalidParam)
		}
		req.Query.BucketID = bucket
	}

	var err error
	if req.Query.Limit, err = parseCount(q.Get("limit"), "limit"); err != nil {
		return req, "", err
	}
	if req.Query.Offset, err = parseCount(q.Get("offset"), "offset"); err != nil {
		return req, "", err
	}
	if req.Query.Limit >= 0 && req.Query.Offset < 0 {
		req.Query.Offset = 0
	}
	if req.Query.Inverted, err = parseFlag(q.Get("inverted"), "inverted"); err != nil {
		return req, "", err
	}

	strict, err := parseFlag(q.Get("strict"), "strict")
	if err != nil {
		return req, "", err
	}
	if strict {
		req.Mapping.Policy = mapper.Strict
	}
	if req.Mapping.IgnoreExclusions, err = parseFlag(q.Get("ignoreExclusions"), "ignoreExclusions"); err != nil {
		return req, "", err
	}

	for _, name := range strings.Split(q.Get("exclude"), ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		mt, err := mediatypes.ParseMimeType(name)
		if err != nil {
			return req, "", fmt.Errorf("%w: exclude: %v", errInvalidParam, err)
		}
		req.Mapping.Exclude = append(req.Mapping.Exclude, mt)
	}

	switch q.Get("videoFallback") {
	case "", "zero":
		req.Mapping.VideoFallback = mapper.FallbackZero
	case "omit":
		req.Mapping.VideoFallback = mapper.FallbackOmit
	default:
		return req, "", fmt.Errorf("%w: videoFallback must be zero or omit", errInvalidParam)
	}

	shape := q.Get("shape")
	switch shape {
	case "":
		shape = shapeRecord
	case shapeRecord, shapeMap:
	default:
		return req, "", fmt.Errorf("%w: shape must be record or map", errInvalidParam)
	}

	return req, shape, nil
}

// parseCount parses a non-negative limit or offset. An empty value means
// unset (-1).
func parseCount(value, name string) (int, error) {
	if value == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errInvalidParam, name)
	}
	return n, nil
}

func parseFlag(value, name string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errInvalidParam, name)
	}
	return b, nil
}
