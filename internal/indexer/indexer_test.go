package indexer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"media-picker/internal/mediaindex"
	"media-picker/internal/query"
)

type fakeProber struct {
	mu    sync.Mutex
	calls int
	meta  mediaindex.VideoMeta
	err   error
}

func (f *fakeProber) ProbeVideo(context.Context, string) (mediaindex.VideoMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.meta, f.err
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
}

func writeGIF(t *testing.T, path string, w, h int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer f.Close()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	if err := gif.Encode(f, img, nil); err != nil {
		t.Fatalf("gif encode failed: %v", err)
	}
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func setupIndexer(t *testing.T, mediaDir string, prober VideoProber) (*Indexer, *mediaindex.Index) {
	t.Helper()

	ix, err := mediaindex.Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	idx := New(ix, mediaDir, 0)
	idx.SetProber(prober)
	idx.SetWalkerConfig(WalkerConfig{NumWorkers: 2, BatchSize: 2, ChannelBuffer: 4, SkipHidden: true})
	t.Cleanup(idx.Stop)
	return idx, ix
}

type indexedRow struct {
	id     int64
	path   string
	mime   string
	bucket string
	width  int
	height int
}

func listRows(t *testing.T, ix *mediaindex.Index) map[string]indexedRow {
	t.Helper()

	rows, err := ix.Query(context.Background(), query.Plan(query.NewRequest(query.AllBuckets)))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	out := make(map[string]indexedRow)
	for rows.Next() {
		var r indexedRow
		var bucketName, name string
		var size int64
		if err := rows.Scan(&r.id, &r.mime, &r.bucket, &bucketName, &r.path, &name, &r.width, &r.height, &size); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		out[filepath.Base(r.path)] = r
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error: %v", err)
	}
	return out
}

func TestIndexPopulatesIndex(t *testing.T) {
	mediaDir := t.TempDir()
	writePNG(t, filepath.Join(mediaDir, "Camera", "a.png"), 3, 2)
	writePNG(t, filepath.Join(mediaDir, "Camera", "mislabelled.jpg"), 5, 4)
	writeFile(t, filepath.Join(mediaDir, "Camera", "clip.mp4"), "not really a video")
	writeFile(t, filepath.Join(mediaDir, "Camera", "notes.txt"), "hello")
	writePNG(t, filepath.Join(mediaDir, ".hidden", "secret.png"), 1, 1)
	writePNG(t, filepath.Join(mediaDir, "Screenshots", "b.png"), 7, 9)

	prober := &fakeProber{meta: mediaindex.VideoMeta{Width: 1280, Height: 720, DurationMs: 4500}}
	idx, ix := setupIndexer(t, mediaDir, prober)

	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	rows := listRows(t, ix)
	if len(rows) != 4 {
		t.Fatalf("indexed %d rows, want 4: %v", len(rows), rows)
	}

	if r := rows["a.png"]; r.mime != "image/png" || r.width != 3 || r.height != 2 {
		t.Errorf("a.png = %+v", r)
	}
	if r := rows["mislabelled.jpg"]; r.mime != "image/png" {
		t.Errorf("sniffed mime = %q, want image/png", r.mime)
	}
	if r := rows["clip.mp4"]; r.mime != "video/mp4" || r.width != 1280 {
		t.Errorf("clip.mp4 = %+v", r)
	}
	if rows["a.png"].bucket != rows["clip.mp4"].bucket {
		t.Error("files in one directory landed in different buckets")
	}
	if rows["a.png"].bucket == rows["b.png"].bucket {
		t.Error("files in different directories share a bucket")
	}
	if prober.calls != 1 {
		t.Errorf("prober called %d times, want 1", prober.calls)
	}

	video, err := ix.Query(context.Background(), query.VideoLookup(formatID(rows["clip.mp4"].id)))
	if err != nil {
		t.Fatalf("video lookup failed: %v", err)
	}
	defer video.Close()
	if !video.Next() {
		t.Fatal("expected a video row")
	}
	var id, w, h, ms int64
	if err := video.Scan(&id, &w, &h, &ms); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if ms != 4500 {
		t.Errorf("duration = %d, want 4500", ms)
	}

	if !idx.IsReady() {
		t.Error("IsReady() = false after a completed run")
	}
	if idx.LastIndexTime().IsZero() {
		t.Error("LastIndexTime() not set")
	}
}

func TestIndexProbeFailureSkipsVideoRow(t *testing.T) {
	mediaDir := t.TempDir()
	writeFile(t, filepath.Join(mediaDir, "Movies", "broken.mp4"), "garbage")

	idx, ix := setupIndexer(t, mediaDir, &fakeProber{err: errors.New("moov atom not found")})
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	rows := listRows(t, ix)
	r, ok := rows["broken.mp4"]
	if !ok {
		t.Fatal("video without metadata was not indexed")
	}

	video, err := ix.Query(context.Background(), query.VideoLookup(formatID(r.id)))
	if err != nil {
		t.Fatalf("video lookup failed: %v", err)
	}
	defer video.Close()
	if video.Next() {
		t.Error("unexpected video row for a file that failed to probe")
	}
}

func TestReindexRemovesMissingAndKeepsIDs(t *testing.T) {
	mediaDir := t.TempDir()
	keep := filepath.Join(mediaDir, "Camera", "keep.png")
	gone := filepath.Join(mediaDir, "Camera", "gone.png")
	writePNG(t, keep, 2, 2)
	writePNG(t, gone, 2, 2)

	idx, ix := setupIndexer(t, mediaDir, &fakeProber{})
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("first Index failed: %v", err)
	}
	before := listRows(t, ix)

	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("second Index failed: %v", err)
	}
	after := listRows(t, ix)

	if _, ok := after["gone.png"]; ok {
		t.Error("deleted file still indexed")
	}
	if after["keep.png"].id != before["keep.png"].id {
		t.Errorf("row id changed: %d -> %d", before["keep.png"].id, after["keep.png"].id)
	}
}

func TestStoreSkipsCleanupAfterUpsertFailure(t *testing.T) {
	tests := []struct {
		name      string
		collide   bool
		wantStale bool
	}{
		{name: "clean run removes stale rows"},
		{name: "failed upsert keeps stale rows", collide: true, wantStale: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaDir := t.TempDir()
			writePNG(t, filepath.Join(mediaDir, "Camera", "a.png"), 2, 2)
			writePNG(t, filepath.Join(mediaDir, "Camera", "b.png"), 2, 2)

			idx, ix := setupIndexer(t, mediaDir, &fakeProber{})
			if err := idx.Index(context.Background()); err != nil {
				t.Fatalf("Index failed: %v", err)
			}
			before := listRows(t, ix)

			startTime := time.Now()
			entry := func(name string) mediaindex.Entry {
				return mediaindex.Entry{
					Path:        filepath.Join(mediaDir, "Camera", name),
					DisplayName: name,
					MimeType:    "image/png",
					BucketID:    "Camera",
					BucketName:  "Camera",
					ModTime:     startTime,
					IndexedAt:   startTime,
				}
			}

			files := []scannedFile{{entry: entry("a.png")}}
			if tt.collide {
				// Reusing a.png's row id for a new path makes the upsert fail.
				c := entry("c.png")
				c.ID = before["a.png"].id
				files = append(files, scannedFile{entry: c})
			}

			if err := idx.store(context.Background(), files, startTime); err != nil {
				t.Fatalf("store failed: %v", err)
			}
			after := listRows(t, ix)

			if _, ok := after["a.png"]; !ok {
				t.Error("refreshed row was removed")
			}
			if _, ok := after["b.png"]; ok != tt.wantStale {
				t.Errorf("b.png indexed = %v, want %v", ok, tt.wantStale)
			}
			if _, ok := after["c.png"]; ok {
				t.Error("failed upsert left a row for c.png")
			}
		})
	}
}

func TestIndexOrdersIDsByModTime(t *testing.T) {
	mediaDir := t.TempDir()
	older := filepath.Join(mediaDir, "Camera", "z-older.png")
	newer := filepath.Join(mediaDir, "Camera", "a-newer.png")
	writePNG(t, older, 1, 1)
	writePNG(t, newer, 1, 1)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	idx, ix := setupIndexer(t, mediaDir, &fakeProber{})
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	rows := listRows(t, ix)
	if rows["z-older.png"].id >= rows["a-newer.png"].id {
		t.Errorf("older file id %d should be below newer file id %d", rows["z-older.png"].id, rows["a-newer.png"].id)
	}
}

func TestIndexAnimatedGIF(t *testing.T) {
	mediaDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(mediaDir, "Memes"), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	writeGIF(t, filepath.Join(mediaDir, "Memes", "dance.gif"), 4, 3)

	idx, ix := setupIndexer(t, mediaDir, &fakeProber{})
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	r := listRows(t, ix)["dance.gif"]
	if r.mime != "image/gif" || r.width != 4 || r.height != 3 {
		t.Errorf("dance.gif = %+v", r)
	}
}

func TestIndexMissingMediaDir(t *testing.T) {
	idx, _ := setupIndexer(t, filepath.Join(t.TempDir(), "missing"), &fakeProber{})

	if err := idx.Index(context.Background()); err == nil {
		t.Error("expected error for missing media directory")
	}
	if idx.IsIndexing() {
		t.Error("IsIndexing() still true after failure")
	}
}

func TestIndexRejectsConcurrentRun(t *testing.T) {
	idx, _ := setupIndexer(t, t.TempDir(), &fakeProber{})

	if !idx.tryStartIndexing() {
		t.Fatal("tryStartIndexing() = false on idle indexer")
	}
	if err := idx.Index(context.Background()); !errors.Is(err, ErrIndexInProgress) {
		t.Errorf("Index err = %v, want ErrIndexInProgress", err)
	}
	if idx.TriggerIndex() {
		t.Error("TriggerIndex() = true while indexing")
	}
	if status := idx.GetHealthStatus(); !status.Indexing || status.IndexProgress == nil {
		t.Errorf("health status = %+v, want indexing with progress", status)
	}
	idx.finishIndexing()
	if idx.IsIndexing() {
		t.Error("IsIndexing() = true after finishIndexing")
	}
}

func TestIndexCancelled(t *testing.T) {
	mediaDir := t.TempDir()
	writePNG(t, filepath.Join(mediaDir, "a.png"), 1, 1)

	idx, _ := setupIndexer(t, mediaDir, &fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := idx.Index(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Index err = %v, want context.Canceled", err)
	}
}

func TestStartRunsInitialIndex(t *testing.T) {
	mediaDir := t.TempDir()
	writePNG(t, filepath.Join(mediaDir, "a.png"), 1, 1)

	idx, ix := setupIndexer(t, mediaDir, &fakeProber{})
	done := make(chan struct{})
	idx.SetOnIndexComplete(func() { close(done) })
	idx.Start()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("initial index did not complete")
	}
	if len(listRows(t, ix)) != 1 {
		t.Error("initial index did not write the file")
	}
}
