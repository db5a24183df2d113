package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-picker/internal/filesystem"
	"media-picker/internal/logging"
	"media-picker/internal/mediaindex"
	"media-picker/internal/metrics"
)

// Delay between batches to let queries through
const batchDelay = 10 * time.Millisecond

// ErrIndexInProgress is returned by Index when another run is active.
var ErrIndexInProgress = errors.New("index already in progress")

// Indexer keeps the media index in sync with the media directory.
type Indexer struct {
	index         *mediaindex.Index
	mediaDir      string
	indexInterval time.Duration
	prober        VideoProber
	config        WalkerConfig

	ctx    context.Context
	cancel context.CancelFunc

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time

	filesIndexed  atomic.Int64
	indexProgress atomic.Value

	onIndexComplete func()
}

// IndexProgress tracks the current indexing progress
type IndexProgress struct {
	FilesIndexed int64     `json:"filesIndexed"`
	IsIndexing   bool      `json:"isIndexing"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool           `json:"ready"`
	Indexing          bool           `json:"indexing"`
	StartTime         time.Time      `json:"startTime"`
	Uptime            string         `json:"uptime"`
	LastIndexed       time.Time      `json:"lastIndexed,omitempty"`
	InitialIndexError string         `json:"initialIndexError,omitempty"`
	FilesIndexed      int64          `json:"filesIndexed"`
	IndexProgress     *IndexProgress `json:"indexProgress,omitempty"`
}

// New creates an indexer. Videos are probed with ffprobe unless
// SetProber installs something else.
func New(index *mediaindex.Index, mediaDir string, indexInterval time.Duration) *Indexer {
	ctx, cancel := context.WithCancel(context.Background())
	idx := &Indexer{
		index:         index,
		mediaDir:      mediaDir,
		indexInterval: indexInterval,
		prober:        FFProbe{},
		config:        DefaultWalkerConfig(),
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
	}
	idx.indexProgress.Store(IndexProgress{})
	return idx
}

// SetProber replaces the video prober.
func (idx *Indexer) SetProber(p VideoProber) {
	idx.prober = p
}

// SetWalkerConfig sets the parallel walker configuration.
func (idx *Indexer) SetWalkerConfig(config WalkerConfig) {
	idx.config = config
}

// SetOnIndexComplete sets a callback invoked after each successful run.
func (idx *Indexer) SetOnIndexComplete(callback func()) {
	idx.onIndexComplete = callback
}

// Start runs the initial index in the background and schedules periodic
// re-indexing.
func (idx *Indexer) Start() {
	go func() {
		logging.Info("Starting initial index in background...")
		if err := idx.Index(idx.ctx); err != nil {
			logging.Error("Initial index error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
		}
	}()

	if idx.indexInterval > 0 {
		go idx.periodicIndex()
	}
}

// Stop cancels any running index and the periodic schedule.
func (idx *Indexer) Stop() {
	idx.cancel()
}

// Index performs a full index of the media directory: walk, probe, upsert
// in batches, then delete rows for files that have gone away.
func (idx *Indexer) Index(ctx context.Context) error {
	if !idx.tryStartIndexing() {
		logging.Info("Index already in progress, skipping...")
		return ErrIndexInProgress
	}
	defer idx.finishIndexing()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	startTime := time.Now()
	logging.Info("Starting media indexing of %s...", idx.mediaDir)

	if _, err := filesystem.Stat(ctx, idx.mediaDir, filesystem.DefaultRetryConfig()); err != nil {
		metrics.IndexerErrors.Inc()
		return fmt.Errorf("media directory unavailable: %w", err)
	}

	idx.filesIndexed.Store(0)
	idx.indexProgress.Store(IndexProgress{IsIndexing: true, StartedAt: startTime})

	walker := NewParallelWalker(idx.mediaDir, idx.prober, idx.config)
	files, err := walker.Walk(ctx)
	if err != nil {
		metrics.IndexerErrors.Inc()
		return fmt.Errorf("walk error: %w", err)
	}

	// Older files get lower row ids, so the default newest-first order
	// follows modification time.
	slices.SortFunc(files, func(a, b scannedFile) int {
		if c := a.entry.ModTime.Compare(b.entry.ModTime); c != 0 {
			return c
		}
		return strings.Compare(a.entry.Path, b.entry.Path)
	})

	for i := range files {
		files[i].entry.IndexedAt = startTime
	}

	if err := idx.store(ctx, files, startTime); err != nil {
		metrics.IndexerErrors.Inc()
		return err
	}

	idx.finalizeIndex(startTime, int64(len(files)))

	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(time.Since(startTime).Seconds())
	metrics.IndexerFilesProcessed.Add(float64(len(files)))

	return nil
}

// store writes files to the index and then removes rows this run did not
// refresh. A file that failed to upsert keeps its old updated_at, so cleanup
// is skipped for that run.
func (idx *Indexer) store(ctx context.Context, files []scannedFile, startTime time.Time) error {
	failed, err := idx.processBatchedFiles(ctx, files, startTime)
	if err != nil {
		return err
	}

	if failed > 0 {
		logging.Warn("Skipping missing file cleanup: %d files failed to upsert", failed)
		metrics.IndexerErrors.Inc()
		return nil
	}

	if err := idx.cleanupMissingFiles(ctx, startTime); err != nil {
		logging.Error("Error cleaning up missing files: %v", err)
		metrics.IndexerErrors.Inc()
	}
	return nil
}

// processBatchedFiles writes files to the index in batches and returns how
// many files failed to upsert.
func (idx *Indexer) processBatchedFiles(ctx context.Context, files []scannedFile, startTime time.Time) (int, error) {
	total := len(files)
	batchSize := max(idx.config.BatchSize, 1)
	logging.Info("Processing %d files in batches of %d", total, batchSize)

	failed := 0
	for i := 0; i < total; i += batchSize {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		end := min(i+batchSize, total)
		n, err := idx.processBatch(ctx, files[i:end])
		failed += n
		if err != nil {
			return failed, err
		}

		idx.filesIndexed.Store(int64(end))
		idx.indexProgress.Store(IndexProgress{
			FilesIndexed: int64(end),
			IsIndexing:   true,
			StartedAt:    startTime,
		})

		if end < total {
			time.Sleep(batchDelay)
		}
	}

	return failed, nil
}

// processBatch upserts one batch in a single transaction. A file that fails
// to upsert is logged, skipped and counted.
func (idx *Indexer) processBatch(ctx context.Context, files []scannedFile) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	tx, err := idx.index.BeginBatch(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch transaction: %w", err)
	}

	failed := 0
	for i := range files {
		f := &files[i]
		id, err := idx.index.UpsertEntry(ctx, tx, &f.entry)
		if err != nil {
			logging.Warn("Error upserting file %s: %v", f.entry.Path, err)
			failed++
			continue
		}
		if f.video == nil {
			continue
		}
		if err := idx.index.UpsertVideo(ctx, tx, id, *f.video); err != nil {
			logging.Warn("Error upserting video metadata for %s: %v", f.entry.Path, err)
		}
	}

	if err := idx.index.EndBatch(tx, nil); err != nil {
		return failed, fmt.Errorf("failed to commit batch: %w", err)
	}
	return failed, nil
}

// cleanupMissingFiles removes rows that were not refreshed by this run.
func (idx *Indexer) cleanupMissingFiles(ctx context.Context, cutoff time.Time) error {
	tx, err := idx.index.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin cleanup transaction: %w", err)
	}

	deleted, err := idx.index.DeleteMissing(ctx, tx, cutoff)
	if err != nil {
		return idx.index.EndBatch(tx, err)
	}

	if err := idx.index.EndBatch(tx, nil); err != nil {
		return fmt.Errorf("failed to commit cleanup: %w", err)
	}

	if deleted > 0 {
		logging.Info("Removed %d missing files from index", deleted)
	}
	return nil
}

// tryStartIndexing returns false if an index is already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.indexProgress.Store(IndexProgress{FilesIndexed: idx.filesIndexed.Load()})
}

func (idx *Indexer) finalizeIndex(startTime time.Time, totalFiles int64) {
	idx.indexMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.initialIndexComplete = true
	idx.initialIndexError = nil
	idx.indexMu.Unlock()

	logging.Info("Index complete: %d files in %v", totalFiles, time.Since(startTime))

	if idx.onIndexComplete != nil {
		idx.onIndexComplete()
	}
}

func (idx *Indexer) periodicIndex() {
	ticker := time.NewTicker(idx.indexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic re-index triggered")
			if err := idx.Index(idx.ctx); err != nil && !errors.Is(err, ErrIndexInProgress) {
				logging.Error("periodic re-index failed: %v", err)
			}
		case <-idx.ctx.Done():
			return
		}
	}
}

// TriggerIndex starts a re-index in the background. It reports false when
// one is already running.
func (idx *Indexer) TriggerIndex() bool {
	if idx.IsIndexing() {
		return false
	}
	go func() {
		if err := idx.Index(idx.ctx); err != nil && !errors.Is(err, ErrIndexInProgress) {
			logging.Error("manually triggered re-index failed: %v", err)
		}
	}()
	return true
}

// IsReady reports whether the initial index has completed.
func (idx *Indexer) IsReady() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// IsIndexing returns whether an index operation is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed index operation.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// GetProgress returns the current indexing progress.
func (idx *Indexer) GetProgress() IndexProgress {
	if progress, ok := idx.indexProgress.Load().(IndexProgress); ok {
		return progress
	}
	return IndexProgress{}
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Ready:        idx.initialIndexComplete,
		Indexing:     idx.isIndexing,
		StartTime:    idx.startTime,
		Uptime:       time.Since(idx.startTime).String(),
		LastIndexed:  idx.lastIndexTime,
		FilesIndexed: idx.filesIndexed.Load(),
	}

	if idx.isIndexing {
		progress := idx.GetProgress()
		status.IndexProgress = &progress
	}

	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}

	return status
}
