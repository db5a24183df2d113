package indexer

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-picker/internal/logging"
	"media-picker/internal/mediaindex"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
	"media-picker/internal/workers"
)

// WalkerConfig configures the parallel directory walker
type WalkerConfig struct {
	// NumWorkers is the number of probe workers (0 = auto based on CPU)
	NumWorkers int
	// BatchSize is the number of files per index transaction
	BatchSize int
	// ChannelBuffer is the size of the job channel buffer
	ChannelBuffer int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultWalkerConfig returns defaults sized for the available CPUs.
// INDEX_WORKERS overrides the worker count.
func DefaultWalkerConfig() WalkerConfig {
	return WalkerConfig{
		NumWorkers:    workers.ForMixed(8),
		BatchSize:     500,
		ChannelBuffer: 1000,
		SkipHidden:    true,
	}
}

// fileJob is a media file waiting to be probed
type fileJob struct {
	path    string
	relPath string
	info    fs.FileInfo
}

// scannedFile is a probed media file ready for the index
type scannedFile struct {
	entry mediaindex.Entry
	// video is nil for images and for videos that could not be probed
	video *mediaindex.VideoMeta
}

// ParallelWalker walks the media tree and probes files on a worker pool
type ParallelWalker struct {
	config   WalkerConfig
	mediaDir string
	prober   VideoProber

	filesProcessed atomic.Int64
	errorsCount    atomic.Int64
}

// NewParallelWalker creates a walker over mediaDir.
func NewParallelWalker(mediaDir string, prober VideoProber, config WalkerConfig) *ParallelWalker {
	if config.NumWorkers <= 0 {
		config.NumWorkers = workers.ForMixed(8)
	}
	return &ParallelWalker{
		config:   config,
		mediaDir: mediaDir,
		prober:   prober,
	}
}

// Walk returns every media file under the root. Unreadable paths and
// files that fail to probe are logged and skipped.
func (pw *ParallelWalker) Walk(ctx context.Context) ([]scannedFile, error) {
	logging.Info("Starting parallel directory walk with %d workers", pw.config.NumWorkers)
	startTime := time.Now()

	metrics.IndexerParallelWorkers.Set(float64(pw.config.NumWorkers))

	jobs := make(chan fileJob, pw.config.ChannelBuffer)

	var mu sync.Mutex
	var files []scannedFile

	var walkErr error
	go func() {
		defer close(jobs)
		walkErr = pw.walkAndEnqueue(ctx, jobs)
	}()

	workers.Run(ctx, pw.config.NumWorkers, jobs, func(ctx context.Context, job fileJob) {
		file, ok := pw.processFile(ctx, job)
		if !ok {
			return
		}
		pw.filesProcessed.Add(1)
		mu.Lock()
		files = append(files, file)
		mu.Unlock()
	})

	// Drain so the walker goroutine can exit after a cancel
	for range jobs {
	}

	logging.Info("Parallel walk complete: %d files in %v (errors: %d)",
		pw.filesProcessed.Load(), time.Since(startTime), pw.errorsCount.Load())

	if walkErr != nil {
		return files, walkErr
	}
	return files, ctx.Err()
}

// walkAndEnqueue walks the directory tree and sends media files to workers
func (pw *ParallelWalker) walkAndEnqueue(ctx context.Context, jobs chan<- fileJob) error {
	return filepath.WalkDir(pw.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if pw.config.SkipHidden && path != pw.mediaDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !mediatypes.IsMediaFile(ext) {
			return nil
		}

		relPath, err := filepath.Rel(pw.mediaDir, path)
		if err != nil {
			//nolint:nilerr // skip this file but keep walking
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}

		select {
		case jobs <- fileJob{path: path, relPath: relPath, info: info}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

// processFile sniffs the mime type and reads dimensions or duration
func (pw *ParallelWalker) processFile(ctx context.Context, job fileJob) (scannedFile, bool) {
	ext := strings.ToLower(filepath.Ext(job.info.Name()))
	mimeType := detectMimeType(ctx, job.path, ext)

	var mediaType mediatypes.MediaType
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		mediaType = mediatypes.MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		mediaType = mediatypes.MediaTypeVideo
	default:
		mediaType = mediatypes.MediaTypeOf(mediatypes.GetFileType(ext))
	}

	bucketID, bucketName := bucketFor(pw.mediaDir, filepath.Dir(job.relPath))

	file := scannedFile{entry: mediaindex.Entry{
		Path:        job.path,
		DisplayName: job.info.Name(),
		Size:        job.info.Size(),
		MimeType:    mimeType,
		MediaType:   mediaType,
		BucketID:    bucketID,
		BucketName:  bucketName,
		ModTime:     job.info.ModTime(),
	}}

	switch mediaType {
	case mediatypes.MediaTypeImage:
		w, h, err := imageSize(ctx, job.path)
		if err != nil {
			logging.Debug("No dimensions for %s: %v", job.path, err)
		}
		file.entry.Width, file.entry.Height = w, h

	case mediatypes.MediaTypeVideo:
		if pw.prober == nil {
			break
		}
		start := time.Now()
		meta, err := pw.prober.ProbeVideo(ctx, job.path)
		metrics.IndexerProbeDuration.WithLabelValues(string(mediatypes.FileTypeVideo)).Observe(time.Since(start).Seconds())
		if err != nil {
			pw.errorsCount.Add(1)
			logging.Warn("Failed to probe video %s: %v", job.path, err)
			break
		}
		file.entry.Width, file.entry.Height = meta.Width, meta.Height
		file.video = &meta

	default:
		return scannedFile{}, false
	}

	return file, true
}

// Stats returns current processing statistics
func (pw *ParallelWalker) Stats() (files, errors int64) {
	return pw.filesProcessed.Load(), pw.errorsCount.Load()
}
