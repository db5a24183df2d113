package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"  // GIF dimensions
	_ "image/jpeg" // JPEG dimensions
	_ "image/png"  // PNG dimensions
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // BMP dimensions
	_ "golang.org/x/image/tiff" // TIFF dimensions
	_ "golang.org/x/image/webp" // WebP dimensions

	"media-picker/internal/filesystem"
	"media-picker/internal/mediaindex"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
)

// Timeout for a single ffprobe invocation
const probeTimeout = 30 * time.Second

// VideoProber reads the dimensions and duration of a video file.
type VideoProber interface {
	ProbeVideo(ctx context.Context, path string) (mediaindex.VideoMeta, error)
}

// FFProbe probes videos with the ffprobe binary.
type FFProbe struct {
	// Binary is the ffprobe executable; empty means "ffprobe" on PATH.
	Binary string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
		Tags      struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeVideo runs ffprobe on path.
func (p FFProbe) ProbeVideo(ctx context.Context, path string) (mediaindex.VideoMeta, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return mediaindex.VideoMeta{}, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	return parseFFProbe(stdout.Bytes())
}

// parseFFProbe extracts the first video stream's dimensions and the
// container duration, in milliseconds.
func parseFFProbe(data []byte) (mediaindex.VideoMeta, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return mediaindex.VideoMeta{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var meta mediaindex.VideoMeta
	streamDuration := ""
	found := false
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		meta.Width, meta.Height = s.Width, s.Height
		if rot := strings.TrimPrefix(s.Tags.Rotate, "-"); rot == "90" || rot == "270" {
			meta.Width, meta.Height = meta.Height, meta.Width
		}
		streamDuration = s.Duration
		found = true
		break
	}
	if !found {
		return mediaindex.VideoMeta{}, fmt.Errorf("no video stream")
	}

	duration := out.Format.Duration
	if duration == "" {
		duration = streamDuration
	}
	if duration != "" {
		seconds, err := strconv.ParseFloat(duration, 64)
		if err != nil {
			return meta, fmt.Errorf("bad duration %q: %w", duration, err)
		}
		meta.DurationMs = int64(math.Round(seconds * 1000))
	}
	return meta, nil
}

// detectMimeType sniffs the file content and falls back to the extension
// when the content is not recognised as image or video.
func detectMimeType(ctx context.Context, path, ext string) string {
	byExt := mediatypes.GetMimeType(ext)

	f, err := filesystem.Open(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return byExt
	}
	defer f.Close()

	m, err := mimetype.DetectReader(f)
	if err != nil {
		return byExt
	}
	sniffed := mediatypes.NormalizeMimeType(m.String())
	if strings.HasPrefix(sniffed, "image/") || strings.HasPrefix(sniffed, "video/") {
		return sniffed
	}
	return byExt
}

// imageSize decodes only the image header.
func imageSize(ctx context.Context, path string) (width, height int, err error) {
	start := time.Now()
	defer func() {
		metrics.IndexerProbeDuration.WithLabelValues(string(mediatypes.FileTypeImage)).Observe(time.Since(start).Seconds())
	}()

	f, err := filesystem.Open(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
