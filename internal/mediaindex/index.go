package mediaindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
	"media-picker/internal/query"
)

// Default timeout for short index operations
const defaultTimeout = 5 * time.Second

// collectionTables maps a content URI collection onto its table and projection.
var collectionTables = map[string]struct {
	table   string
	columns []string
}{
	query.CollectionFiles: {table: "files", columns: query.FileColumns},
	query.CollectionVideo: {table: "video", columns: query.VideoColumns},
}

// Index is the SQLite-backed media index.
type Index struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	txStart time.Time
}

// Open opens (creating if needed) the media index at dbPath.
// The parent directory must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Index, error) {
	logging.Info("Media index path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Media index permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors while the indexer writes
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open media index: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close media index after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to media index: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ix := &Index{db: db, dbPath: dbPath}

	if err := ix.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close media index after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize media index schema: %w", err)
	}

	logging.Info("Media index ready at %s", dbPath)
	return ix, nil
}

// New wraps an already-open handle whose schema is managed elsewhere.
func New(db *sql.DB) *Index {
	return &Index{db: db}
}

func (ix *Index) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS files (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		_data TEXT NOT NULL UNIQUE,
		_display_name TEXT NOT NULL,
		_size INTEGER NOT NULL DEFAULT 0,
		mime_type TEXT,
		media_type INTEGER NOT NULL DEFAULT 0,
		bucket_id TEXT NOT NULL,
		bucket_display_name TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		date_modified INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_files_media_type ON files(media_type);
	CREATE INDEX IF NOT EXISTS idx_files_bucket_type ON files(bucket_id, media_type);

	CREATE TABLE IF NOT EXISTS video (
		_id INTEGER PRIMARY KEY REFERENCES files(_id) ON DELETE CASCADE,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err = ix.db.ExecContext(ctx, schema)
	return err
}

// Close closes the index connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Query runs q against the collection named by its content URI. The caller
// owns the returned rows and must close them.
func (ix *Index) Query(ctx context.Context, q query.Query) (*sql.Rows, error) {
	collection, id, err := query.ParseURI(q.URI)
	if err != nil {
		return nil, err
	}
	target := collectionTables[collection]

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(target.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(target.table)

	args := append([]any(nil), q.SelectionArgs...)
	var where []string
	if q.Selection != "" {
		where = append(where, "("+q.Selection+")")
	}
	if id != "" {
		where = append(where, query.ColumnID+" = ?")
		args = append(args, id)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if q.SortOrder != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.SortOrder)
	}

	operation := "query_" + collection
	start := time.Now()

	ix.mu.RLock()
	rows, err := ix.db.QueryContext(ctx, b.String(), args...)
	ix.mu.RUnlock()

	recordQuery(operation, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", collection, err)
	}
	return rows, nil
}

// Buckets lists every album holding image or video rows, preceded by the
// synthetic all-albums bucket.
func (ix *Index) Buckets(ctx context.Context) ([]Bucket, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_buckets", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const listQuery = `
	SELECT f.bucket_id, f.bucket_display_name, COUNT(*),
		(SELECT c._data FROM files c
		 WHERE c.bucket_id = f.bucket_id AND c.media_type IN (?, ?)
		 ORDER BY c._id DESC LIMIT 1)
	FROM files f
	WHERE f.media_type IN (?, ?)
	GROUP BY f.bucket_id
	ORDER BY f.bucket_display_name COLLATE NOCASE, f.bucket_id
	`

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rows, err := ix.db.QueryContext(ctx, listQuery,
		mediatypes.MediaTypeImage, mediatypes.MediaTypeVideo,
		mediatypes.MediaTypeImage, mediatypes.MediaTypeVideo)
	if err != nil {
		return nil, fmt.Errorf("bucket query failed: %w", err)
	}
	defer rows.Close()

	all := Bucket{ID: query.AllBuckets, Name: AllBucketsName}
	var buckets []Bucket
	for rows.Next() {
		var b Bucket
		var cover sql.NullString
		if err = rows.Scan(&b.ID, &b.Name, &b.Count, &cover); err != nil {
			return nil, fmt.Errorf("bucket scan failed: %w", err)
		}
		b.CoverPath = cover.String
		all.Count += b.Count
		buckets = append(buckets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("bucket rows error: %w", err)
	}

	if all.Count > 0 {
		err = ix.db.QueryRowContext(ctx,
			"SELECT _data FROM files WHERE media_type IN (?, ?) ORDER BY _id DESC LIMIT 1",
			mediatypes.MediaTypeImage, mediatypes.MediaTypeVideo,
		).Scan(&all.CoverPath)
		if err != nil {
			return nil, fmt.Errorf("cover query failed: %w", err)
		}
	}

	return append([]Bucket{all}, buckets...), nil
}

// Stats counts index rows for the metrics collector.
func (ix *Index) Stats(ctx context.Context) (metrics.Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats metrics.Stats

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	err = ix.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN media_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN media_type = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT bucket_id)
		FROM files WHERE media_type IN (?, ?)
	`, mediatypes.MediaTypeImage, mediatypes.MediaTypeVideo,
		mediatypes.MediaTypeImage, mediatypes.MediaTypeVideo,
	).Scan(&stats.TotalImages, &stats.TotalVideos, &stats.TotalBuckets)
	if err != nil {
		return stats, fmt.Errorf("stats query failed: %w", err)
	}

	stats.OpenConnections = ix.db.Stats().OpenConnections
	return stats, nil
}

// BeginBatch starts a write transaction for the indexer.
// The caller is responsible for calling EndBatch when done.
func (ix *Index) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	ix.mu.Lock()
	txStart := time.Now()
	tx, err := ix.db.BeginTx(ctx, nil)
	ix.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ix.txStart = txStart
	return tx, nil
}

// EndBatch commits or rolls back a transaction.
func (ix *Index) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(ix.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpsertEntry inserts or refreshes a file row and returns its row id.
// A zero Entry.ID lets SQLite assign one.
func (ix *Index) UpsertEntry(ctx context.Context, tx *sql.Tx, e *Entry) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_entry", start, err) }()

	const upsert = `
	INSERT INTO files (_id, _data, _display_name, _size, mime_type, media_type,
		bucket_id, bucket_display_name, width, height, date_modified, updated_at)
	VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(_data) DO UPDATE SET
		_display_name = excluded._display_name,
		_size = excluded._size,
		mime_type = excluded.mime_type,
		media_type = excluded.media_type,
		bucket_id = excluded.bucket_id,
		bucket_display_name = excluded.bucket_display_name,
		width = excluded.width,
		height = excluded.height,
		date_modified = excluded.date_modified,
		updated_at = excluded.updated_at
	RETURNING _id
	`

	seen := e.IndexedAt
	if seen.IsZero() {
		seen = time.Now()
	}

	var id int64
	err = tx.QueryRowContext(ctx, upsert,
		e.ID, e.Path, e.DisplayName, e.Size, nullString(e.MimeType), int(e.MediaType),
		e.BucketID, e.BucketName, e.Width, e.Height, e.ModTime.Unix(), seen.UnixNano(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", e.Path, err)
	}
	e.ID = id
	return id, nil
}

// UpsertVideo stores the video metadata for row id.
func (ix *Index) UpsertVideo(ctx context.Context, tx *sql.Tx, id int64, meta VideoMeta) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_video", start, err) }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO video (_id, width, height, duration) VALUES (?, ?, ?, ?)
	ON CONFLICT(_id) DO UPDATE SET
		width = excluded.width,
		height = excluded.height,
		duration = excluded.duration
	`, id, meta.Width, meta.Height, meta.DurationMs)
	if err != nil {
		return fmt.Errorf("upsert video %d: %w", id, err)
	}
	return nil
}

// DeleteMissing removes rows whose IndexedAt is before cutoff.
// Must be called within a transaction.
func (ix *Index) DeleteMissing(ctx context.Context, tx *sql.Tx, cutoff time.Time) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_missing", start, err) }()

	result, err := tx.ExecContext(ctx, "DELETE FROM files WHERE updated_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// recordQuery records media index query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks the index directory and WAL file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat index directory: %w", err)
	}
	logging.Debug("Media index directory: %s (mode: %v)", dir, dirInfo.Mode())

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Index file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Index file is read-only! %s mode: %v", path, info.Mode())
		}
	}

	return nil
}
