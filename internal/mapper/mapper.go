package mapper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
	"media-picker/internal/query"
)

// ErrMissingMimeType is returned for a row whose mime type is NULL or empty.
var ErrMissingMimeType = errors.New("row has no mime type")

// ErrMissingColumn is returned when a cursor lacks a column the mapper reads.
var ErrMissingColumn = errors.New("cursor is missing a required column")

// Resolver runs a planned query against the media index. It is satisfied by
// *mediaindex.Index.
type Resolver interface {
	Query(ctx context.Context, q query.Query) (*sql.Rows, error)
}

// FailurePolicy decides what happens when a single row cannot be mapped.
type FailurePolicy int

const (
	// Lenient logs the failure and drops the row.
	Lenient FailurePolicy = iota
	// Strict aborts the whole mapping with the row's error.
	Strict
)

// String returns the policy name.
func (p FailurePolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// VideoFallback decides what a video record carries when the video lookup
// has no row for it.
type VideoFallback int

const (
	// FallbackZero sets the duration to "0" and keeps the dimensions from
	// the primary row.
	FallbackZero VideoFallback = iota
	// FallbackOmit leaves duration and dimensions unset.
	FallbackOmit
)

// String returns the fallback name.
func (f VideoFallback) String() string {
	if f == FallbackOmit {
		return "omit"
	}
	return "zero"
}

// Options configures a Mapper.
type Options struct {
	// BucketID is the requested album, copied onto every record.
	BucketID string
	// Exclude lists mime categories to drop.
	Exclude []mediatypes.MimeType
	// IgnoreExclusions disables Exclude. The animated image size cutoff
	// still applies.
	IgnoreExclusions bool
	Policy           FailurePolicy
	VideoFallback    VideoFallback
}

// Mapper converts media index rows into records.
type Mapper struct {
	resolver Resolver
	opts     Options
}

// New creates a mapper that resolves video metadata through resolver.
func New(resolver Resolver, opts Options) *Mapper {
	return &Mapper{resolver: resolver, opts: opts}
}

// row is one primary cursor row with nullable columns resolved.
type row struct {
	id         string
	mimeType   string
	bucketName string
	path       string
	name       string
	width      float64
	height     float64
	size       int64
}

// videoMeta is one row of the video collection.
type videoMeta struct {
	width      float64
	height     float64
	durationMs int64
}

// scanned is one drained primary row, or the error that row produced.
type scanned struct {
	r   row
	err error
}

// Map drains rows into records, preserving cursor order. rows is always
// closed, and may be nil. The result is never nil when err is nil.
//
// The primary cursor is drained and closed before any video lookup runs, so
// a mapping never holds more than one pooled connection at a time.
func (m *Mapper) Map(ctx context.Context, rows *sql.Rows) ([]Record, error) {
	records := make([]Record, 0)
	if rows == nil {
		return records, nil
	}

	drained, err := drain(rows)
	if err != nil {
		return nil, err
	}

	for i, s := range drained {
		n := i + 1
		rec, outcome, err := Record{}, "", s.err
		if err == nil {
			rec, outcome, err = m.mapRow(ctx, s.r)
		}
		if err != nil {
			if m.opts.Policy == Strict {
				metrics.MapperRowsTotal.WithLabelValues(metrics.OutcomeAborted).Inc()
				return nil, fmt.Errorf("row %d: %w", n, err)
			}
			metrics.MapperRowsTotal.WithLabelValues(metrics.OutcomeSkippedError).Inc()
			logging.Warn("Skipping media row %d: %v", n, err)
			continue
		}
		metrics.MapperRowsTotal.WithLabelValues(outcome).Inc()
		if !keeps(outcome) {
			continue
		}
		records = append(records, rec)
	}

	logging.Debug("Mapped %d of %d media rows for bucket %s", len(records), len(drained), m.opts.BucketID)
	return records, nil
}

// drain reads every row of the primary cursor and closes it. A row that
// fails to scan is kept with its error so the failure policy sees it in
// cursor order.
func drain(rows *sql.Rows) ([]scanned, error) {
	defer rows.Close()

	cols, err := newColumnIndex(rows,
		query.ColumnID, query.ColumnMimeType, query.ColumnBucketDisplayName,
		query.ColumnData, query.ColumnDisplayName, query.ColumnWidth,
		query.ColumnHeight, query.ColumnSize)
	if err != nil {
		return nil, err
	}

	var drained []scanned
	for rows.Next() {
		r, err := scanRow(rows, cols)
		drained = append(drained, scanned{r: r, err: err})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("media cursor: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("media cursor: %w", err)
	}
	return drained, nil
}

// keeps reports whether a row with outcome becomes a record.
func keeps(outcome string) bool {
	switch outcome {
	case metrics.OutcomeIncluded, metrics.OutcomeVideoFallback, metrics.OutcomeVideoMetaMissing:
		return true
	}
	return false
}

// mapRow maps one drained row and reports its single outcome. A filtered
// outcome leaves rec empty.
func (m *Mapper) mapRow(ctx context.Context, r row) (Record, string, error) {
	if mediatypes.IsAnimatedImage(r.mimeType) && r.size > mediatypes.AnimatedImageSizeLimit {
		logging.Debug("Skipping %s: animated image of %d bytes", r.path, r.size)
		return Record{}, metrics.OutcomeSkippedAnimated, nil
	}
	if !m.opts.IgnoreExclusions && mediatypes.MatchesAny(m.opts.Exclude, r.mimeType) {
		return Record{}, metrics.OutcomeSkippedExcluded, nil
	}

	rec := Record{
		Identifier: r.id,
		MediaID:    r.id,
		BucketID:   m.opts.BucketID,
		BucketName: r.bucketName,
		OriginName: r.name,
		OriginPath: r.path,
		FileType:   r.mimeType,
		MimeType:   r.mimeType,
	}

	if !mediatypes.IsVideo(r.mimeType) {
		rec.OriginWidth = formatNumber(r.width)
		rec.OriginHeight = formatNumber(r.height)
		rec.Duration = "0"
		return rec, metrics.OutcomeIncluded, nil
	}

	meta, found, err := m.lookupVideo(ctx, r.id)
	switch {
	case err != nil:
		metrics.MapperVideoLookups.WithLabelValues("error").Inc()
		if m.opts.Policy == Strict {
			return Record{}, "", fmt.Errorf("video lookup for %s: %w", r.id, err)
		}
		logging.Warn("Video lookup for %s failed, using fallback: %v", r.id, err)
		return rec, m.applyFallback(&rec, r), nil
	case !found:
		metrics.MapperVideoLookups.WithLabelValues("missing").Inc()
		return rec, m.applyFallback(&rec, r), nil
	}

	metrics.MapperVideoLookups.WithLabelValues("found").Inc()
	durationMs := max(meta.durationMs, 0)
	rec.OriginWidth = formatNumber(meta.width)
	rec.OriginHeight = formatNumber(meta.height)
	rec.Duration = strconv.FormatInt(durationMs/1000, 10)
	rec.DurationMs = durationMs
	return rec, metrics.OutcomeIncluded, nil
}

// applyFallback fills rec for a video with no usable metadata and returns
// the row's outcome.
func (m *Mapper) applyFallback(rec *Record, r row) string {
	if m.opts.VideoFallback == FallbackOmit {
		return metrics.OutcomeVideoMetaMissing
	}
	rec.OriginWidth = formatNumber(r.width)
	rec.OriginHeight = formatNumber(r.height)
	rec.Duration = "0"
	return metrics.OutcomeVideoFallback
}

// lookupVideo fetches the video row for id. The cursor is closed before
// returning.
func (m *Mapper) lookupVideo(ctx context.Context, id string) (videoMeta, bool, error) {
	var meta videoMeta

	rows, err := m.resolver.Query(ctx, query.VideoLookup(id))
	if err != nil {
		return meta, false, err
	}
	if rows == nil {
		return meta, false, nil
	}
	defer rows.Close()

	cols, err := newColumnIndex(rows, query.ColumnWidth, query.ColumnHeight, query.ColumnDuration)
	if err != nil {
		return meta, false, err
	}
	if !rows.Next() {
		return meta, false, rows.Err()
	}

	values, err := cols.scan(rows)
	if err != nil {
		return meta, false, err
	}
	if meta.width, err = toFloat(values[query.ColumnWidth]); err != nil {
		return meta, false, fmt.Errorf("%s: %w", query.ColumnWidth, err)
	}
	if meta.height, err = toFloat(values[query.ColumnHeight]); err != nil {
		return meta, false, fmt.Errorf("%s: %w", query.ColumnHeight, err)
	}
	if meta.durationMs, err = toInt(values[query.ColumnDuration]); err != nil {
		return meta, false, fmt.Errorf("%s: %w", query.ColumnDuration, err)
	}
	return meta, true, nil
}

func scanRow(rows *sql.Rows, cols columnIndex) (row, error) {
	var r row

	values, err := cols.scan(rows)
	if err != nil {
		return r, err
	}

	id, ok := toString(values[query.ColumnID])
	if !ok || id == "" {
		return r, fmt.Errorf("%s is null", query.ColumnID)
	}
	r.id = id

	r.mimeType, _ = toString(values[query.ColumnMimeType])
	if r.mimeType == "" {
		return r, fmt.Errorf("%s: %w", id, ErrMissingMimeType)
	}

	r.bucketName, _ = toString(values[query.ColumnBucketDisplayName])
	r.path, _ = toString(values[query.ColumnData])
	r.name, _ = toString(values[query.ColumnDisplayName])

	if r.width, err = toFloat(values[query.ColumnWidth]); err != nil {
		return r, fmt.Errorf("%s %s: %w", id, query.ColumnWidth, err)
	}
	if r.height, err = toFloat(values[query.ColumnHeight]); err != nil {
		return r, fmt.Errorf("%s %s: %w", id, query.ColumnHeight, err)
	}
	if r.size, err = toInt(values[query.ColumnSize]); err != nil {
		return r, fmt.Errorf("%s %s: %w", id, query.ColumnSize, err)
	}
	return r, nil
}
