package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"media-picker/internal/mediatypes"
)

// Content URIs understood by the media index.
const (
	FilesURI = "content://media/external/file"
	VideoURI = "content://media/external/video/media"
)

// AllBuckets is the bucket id that disables the album filter.
const AllBuckets = "0"

// Collections a content URI can resolve to.
const (
	CollectionFiles = "files"
	CollectionVideo = "video"
)

// Column names shared by the planner and the media index.
const (
	ColumnID                = "_id"
	ColumnData              = "_data"
	ColumnDisplayName       = "_display_name"
	ColumnSize              = "_size"
	ColumnMimeType          = "mime_type"
	ColumnMediaType         = "media_type"
	ColumnBucketID          = "bucket_id"
	ColumnBucketDisplayName = "bucket_display_name"
	ColumnWidth             = "width"
	ColumnHeight            = "height"
	ColumnDuration          = "duration"
)

// FileColumns is the projection returned for the files collection.
var FileColumns = []string{
	ColumnID, ColumnMimeType, ColumnBucketID, ColumnBucketDisplayName,
	ColumnData, ColumnDisplayName, ColumnWidth, ColumnHeight, ColumnSize,
}

// VideoColumns is the projection returned for the video collection.
var VideoColumns = []string{ColumnID, ColumnWidth, ColumnHeight, ColumnDuration}

// ErrUnknownURI is returned when a content URI does not name a known collection.
var ErrUnknownURI = errors.New("unknown content uri")

// Request carries the caller's query parameters. Limit and Offset are only
// applied when both are non-negative.
type Request struct {
	BucketID string
	Inverted bool
	Limit    int
	Offset   int
}

// NewRequest returns a request for bucketID with pagination disabled.
func NewRequest(bucketID string) Request {
	return Request{
		BucketID: bucketID,
		Limit:    -1,
		Offset:   -1,
	}
}

// Paginated reports whether both limit and offset are set.
func (r Request) Paginated() bool {
	return r.Limit >= 0 && r.Offset >= 0
}

// Query is a fully specified media index query.
type Query struct {
	URI           string
	Selection     string
	SelectionArgs []any
	SortOrder     string
}

// Plan builds the primary media query for a request.
func Plan(req Request) Query {
	selection := fmt.Sprintf("%s = %d OR %s = %d",
		ColumnMediaType, mediatypes.MediaTypeImage,
		ColumnMediaType, mediatypes.MediaTypeVideo)

	var args []any
	if req.BucketID != AllBuckets {
		selection = "(" + selection + ") AND " + ColumnBucketID + " = ?"
		args = []any{req.BucketID}
	}

	return Query{
		URI:           FilesURI,
		Selection:     selection,
		SelectionArgs: args,
		SortOrder:     sortOrder(req),
	}
}

func sortOrder(req Request) string {
	dir := "DESC"
	if req.Inverted {
		dir = "ASC"
	}
	sort := ColumnID + " " + dir
	if req.Paginated() {
		sort += " LIMIT " + strconv.Itoa(req.Limit) + " OFFSET " + strconv.Itoa(req.Offset)
	}
	return sort
}

// VideoLookup builds the secondary point query for one video row.
func VideoLookup(id string) Query {
	return Query{URI: VideoURI + "/" + id}
}

// ParseURI splits a content URI into its collection and optional row id.
func ParseURI(uri string) (collection string, id string, err error) {
	switch {
	case uri == FilesURI:
		return CollectionFiles, "", nil
	case uri == VideoURI:
		return CollectionVideo, "", nil
	case strings.HasPrefix(uri, FilesURI+"/"):
		collection, id = CollectionFiles, strings.TrimPrefix(uri, FilesURI+"/")
	case strings.HasPrefix(uri, VideoURI+"/"):
		collection, id = CollectionVideo, strings.TrimPrefix(uri, VideoURI+"/")
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownURI, uri)
	}

	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", "", fmt.Errorf("%w: bad row id in %q", ErrUnknownURI, uri)
	}
	return collection, id, nil
}
