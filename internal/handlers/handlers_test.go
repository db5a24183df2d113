package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-picker/internal/indexer"
	"media-picker/internal/mapper"
	"media-picker/internal/mediaindex"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
	"media-picker/internal/query"
)

// =============================================================================
// Test fixtures
// =============================================================================

type mockIndexer struct {
	mu       sync.Mutex
	ready    bool
	status   indexer.HealthStatus
	indexing bool
	triggers int
}

func (m *mockIndexer) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *mockIndexer) GetHealthStatus() indexer.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockIndexer) TriggerIndex() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexing {
		return false
	}
	m.triggers++
	return true
}

// failingIndex fails every read.
type failingIndex struct{}

var errIndexDown = errors.New("index unavailable")

func (failingIndex) Query(context.Context, query.Query) (*sql.Rows, error) {
	return nil, errIndexDown
}

func (failingIndex) Buckets(context.Context) ([]mediaindex.Bucket, error) {
	return nil, errIndexDown
}

func (failingIndex) Stats(context.Context) (metrics.Stats, error) {
	return metrics.Stats{}, errIndexDown
}

// setupTestHandlers opens a seeded index:
//
//	bucket 7: 10 jpeg, 11 png, 12 gif, 13 mp4 (1280x720, 4500ms)
//	bucket 9: 20 jpeg
func setupTestHandlers(t *testing.T) (*Handlers, *mockIndexer) {
	t.Helper()

	ctx := context.Background()
	ix, err := mediaindex.Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	entry := func(id int64, bucket, name, mime string, mt mediatypes.MediaType) mediaindex.Entry {
		return mediaindex.Entry{
			ID:          id,
			Path:        "/media/album" + bucket + "/" + name,
			DisplayName: name,
			Size:        2048,
			MimeType:    mime,
			MediaType:   mt,
			BucketID:    bucket,
			BucketName:  "album" + bucket,
			Width:       640,
			Height:      480,
			ModTime:     time.Unix(1700000000+id, 0),
		}
	}
	entries := []mediaindex.Entry{
		entry(10, "7", "a.jpg", "image/jpeg", mediatypes.MediaTypeImage),
		entry(11, "7", "b.png", "image/png", mediatypes.MediaTypeImage),
		entry(12, "7", "c.gif", "image/gif", mediatypes.MediaTypeImage),
		entry(13, "7", "d.mp4", "video/mp4", mediatypes.MediaTypeVideo),
		entry(20, "9", "e.jpg", "image/jpeg", mediatypes.MediaTypeImage),
	}

	tx, err := ix.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	for i := range entries {
		id, err := ix.UpsertEntry(ctx, tx, &entries[i])
		if err != nil {
			_ = ix.EndBatch(tx, err)
			t.Fatalf("UpsertEntry failed: %v", err)
		}
		if entries[i].MediaType == mediatypes.MediaTypeVideo {
			meta := mediaindex.VideoMeta{Width: 1280, Height: 720, DurationMs: 4500}
			if err := ix.UpsertVideo(ctx, tx, id, meta); err != nil {
				_ = ix.EndBatch(tx, err)
				t.Fatalf("UpsertVideo failed: %v", err)
			}
		}
	}
	if err := ix.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch failed: %v", err)
	}

	idx := &mockIndexer{ready: true, status: indexer.HealthStatus{Ready: true, Uptime: "1m0s"}}
	return New(ix, idx), idx
}

func getMedia(t *testing.T, h *Handlers, rawQuery string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/media?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	h.ListMedia(rec, req)
	return rec
}

func decodeRecords(t *testing.T, rec *httptest.ResponseRecorder) []mapper.Record {
	t.Helper()

	var records []mapper.Record
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode records: %v", err)
	}
	return records
}

func identifiers(records []mapper.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Identifier
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// ListMedia
// =============================================================================

func TestListMedia(t *testing.T) {
	h, _ := setupTestHandlers(t)

	tests := []struct {
		name     string
		rawQuery string
		want     []string
	}{
		{name: "all buckets", rawQuery: "", want: []string{"20", "13", "12", "11", "10"}},
		{name: "single bucket", rawQuery: "bucket=7", want: []string{"13", "12", "11", "10"}},
		{name: "inverted", rawQuery: "bucket=7&inverted=true", want: []string{"10", "11", "12", "13"}},
		{name: "page", rawQuery: "bucket=7&limit=2&offset=1", want: []string{"12", "11"}},
		{name: "limit without offset", rawQuery: "bucket=7&limit=1", want: []string{"13"}},
		{name: "exclude gif and video", rawQuery: "bucket=7&exclude=gif,video", want: []string{"11", "10"}},
		{name: "exclude ignored", rawQuery: "bucket=7&exclude=gif&ignoreExclusions=true", want: []string{"13", "12", "11", "10"}},
		{name: "unknown bucket", rawQuery: "bucket=12345", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := getMedia(t, h, tt.rawQuery)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			got := identifiers(decodeRecords(t, rec))
			if !equalStrings(got, tt.want) {
				t.Errorf("identifiers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListMediaVideoRecord(t *testing.T) {
	h, _ := setupTestHandlers(t)

	records := decodeRecords(t, getMedia(t, h, "bucket=7&limit=1&offset=0"))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	want := mapper.Record{
		Identifier:   "13",
		MediaID:      "13",
		BucketID:     "7",
		BucketName:   "album7",
		OriginName:   "d.mp4",
		OriginPath:   "/media/album7/d.mp4",
		FileType:     "video/mp4",
		MimeType:     "video/mp4",
		OriginWidth:  "1280",
		OriginHeight: "720",
		Duration:     "4",
	}
	if records[0] != want {
		t.Errorf("record = %+v\nwant %+v", records[0], want)
	}
}

func TestListMediaMapShape(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := getMedia(t, h, "bucket=7&shape=map&limit=1&offset=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var maps []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&maps); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(maps) != 1 {
		t.Fatalf("got %d maps, want 1", len(maps))
	}

	m := maps[0]
	if m[mapper.KeyFilePath] != "/media/album7/d.mp4" {
		t.Errorf("filePath = %v", m[mapper.KeyFilePath])
	}
	if m[mapper.KeyWidth] != 1280.0 || m[mapper.KeyHeight] != 720.0 {
		t.Errorf("dimensions = %v x %v", m[mapper.KeyWidth], m[mapper.KeyHeight])
	}
	if m[mapper.KeyDuration] != 4.5 {
		t.Errorf("duration = %v, want 4.5", m[mapper.KeyDuration])
	}
}

func TestListMediaEmptyResultIsArray(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := getMedia(t, h, "bucket=404")
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
	if got := rec.Header().Get("X-Result-Count"); got != "0" {
		t.Errorf("X-Result-Count = %q, want 0", got)
	}
}

func TestListMediaBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)

	tests := []string{
		"bucket=abc",
		"limit=-1",
		"limit=ten",
		"offset=1.5",
		"inverted=maybe",
		"strict=2",
		"ignoreExclusions=yes please",
		"exclude=tiff",
		"shape=xml",
		"videoFallback=guess",
	}

	for _, rawQuery := range tests {
		t.Run(rawQuery, func(t *testing.T) {
			rec := getMedia(t, h, rawQuery)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("expected JSON error body, got %v (%v)", body, err)
			}
		})
	}
}

func TestListMediaQueryFailure(t *testing.T) {
	h := New(failingIndex{}, &mockIndexer{})

	rec := getMedia(t, h, "bucket=7")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestParseMediaRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/media?bucket=7&limit=5&offset=10&inverted=1&strict=true&exclude=jpg,+video&videoFallback=omit", nil)

	got, shape, err := parseMediaRequest(req)
	if err != nil {
		t.Fatalf("parseMediaRequest failed: %v", err)
	}

	if shape != shapeRecord {
		t.Errorf("shape = %q, want %q", shape, shapeRecord)
	}
	if got.Query.BucketID != "7" || got.Query.Limit != 5 || got.Query.Offset != 10 || !got.Query.Inverted {
		t.Errorf("query = %+v", got.Query)
	}
	if got.Mapping.Policy != mapper.Strict {
		t.Errorf("policy = %s, want strict", got.Mapping.Policy)
	}
	if got.Mapping.VideoFallback != mapper.FallbackOmit {
		t.Errorf("videoFallback = %s, want omit", got.Mapping.VideoFallback)
	}
	wantExclude := []mediatypes.MimeType{mediatypes.MimeJPEG, mediatypes.MimeVideo}
	if len(got.Mapping.Exclude) != len(wantExclude) {
		t.Fatalf("exclude = %v, want %v", got.Mapping.Exclude, wantExclude)
	}
	for i := range wantExclude {
		if got.Mapping.Exclude[i] != wantExclude[i] {
			t.Errorf("exclude[%d] = %s, want %s", i, got.Mapping.Exclude[i], wantExclude[i])
		}
	}
}

func TestParseMediaRequestDefaults(t *testing.T) {
	got, shape, err := parseMediaRequest(httptest.NewRequest(http.MethodGet, "/api/media", nil))
	if err != nil {
		t.Fatalf("parseMediaRequest failed: %v", err)
	}

	if got.Query != query.NewRequest(query.AllBuckets) {
		t.Errorf("query = %+v", got.Query)
	}
	if got.Mapping.Policy != mapper.Lenient || got.Mapping.VideoFallback != mapper.FallbackZero {
		t.Errorf("mapping = %+v", got.Mapping)
	}
	if shape != shapeRecord {
		t.Errorf("shape = %q", shape)
	}
}

// =============================================================================
// Buckets and reindex
// =============================================================================

func TestListBuckets(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.ListBuckets(rec, httptest.NewRequest(http.MethodGet, "/api/buckets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var buckets []mediaindex.Bucket
	if err := json.NewDecoder(rec.Body).Decode(&buckets); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	want := []struct {
		id    string
		count int
	}{
		{query.AllBuckets, 5},
		{"7", 4},
		{"9", 1},
	}
	if len(buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(buckets), len(want), buckets)
	}
	for i, w := range want {
		if buckets[i].ID != w.id || buckets[i].Count != w.count {
			t.Errorf("bucket[%d] = %+v, want id %s count %d", i, buckets[i], w.id, w.count)
		}
	}
}

func TestListBucketsFailure(t *testing.T) {
	h := New(failingIndex{}, &mockIndexer{})

	rec := httptest.NewRecorder()
	h.ListBuckets(rec, httptest.NewRequest(http.MethodGet, "/api/buckets", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestTriggerReindex(t *testing.T) {
	h, idx := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.TriggerReindex(rec, httptest.NewRequest(http.MethodPost, "/api/reindex", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if idx.triggers != 1 {
		t.Errorf("triggers = %d, want 1", idx.triggers)
	}

	idx.indexing = true
	rec = httptest.NewRecorder()
	h.TriggerReindex(rec, httptest.NewRequest(http.MethodPost, "/api/reindex", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
