package mediaindex

import (
	"time"

	"media-picker/internal/mediatypes"
)

// AllBucketsName is the display name of the synthetic "0" bucket.
const AllBucketsName = "All"

// Entry is one row of the files collection as written by the indexer.
type Entry struct {
	ID          int64
	Path        string
	DisplayName string
	Size        int64
	MimeType    string
	MediaType   mediatypes.MediaType
	BucketID    string
	BucketName  string
	Width       int
	Height      int
	ModTime     time.Time
	// IndexedAt marks the indexer run that last saw the file; zero means now.
	IndexedAt time.Time
}

// VideoMeta is one row of the video collection.
type VideoMeta struct {
	Width      int
	Height     int
	DurationMs int64
}

// Bucket is an album in the media index.
type Bucket struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	CoverPath string `json:"coverPath,omitempty"`
}
