package indexer

import (
	"hash/fnv"
	"path/filepath"
	"strconv"
	"strings"

	"media-picker/internal/query"
)

// bucketFor derives the album of a file from its parent directory. relDir
// is relative to the media root; "." or "" is the root itself. The id is
// stable for a directory regardless of case and never equals the
// all-buckets sentinel.
func bucketFor(mediaDir, relDir string) (id, name string) {
	relDir = filepath.ToSlash(filepath.Clean(relDir))
	if relDir == "." {
		relDir = ""
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(relDir)))
	id = strconv.FormatUint(uint64(h.Sum32()), 10)
	if id == query.AllBuckets {
		id = "1"
	}

	if relDir == "" {
		name = filepath.Base(filepath.Clean(mediaDir))
	} else {
		name = filepath.Base(relDir)
	}
	return id, name
}
