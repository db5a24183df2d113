package mediatypes

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileType represents the type of a media file.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// MediaType is the numeric media_type column stored in the media index.
type MediaType int

const (
	// MediaTypeNone marks rows that are neither image nor video.
	MediaTypeNone MediaType = 0
	// MediaTypeImage marks image rows.
	MediaTypeImage MediaType = 1
	// MediaTypeVideo marks video rows.
	MediaTypeVideo MediaType = 3
)

// MediaTypeOf maps a FileType onto the index media_type value.
func MediaTypeOf(ft FileType) MediaType {
	switch ft {
	case FileTypeImage:
		return MediaTypeImage
	case FileTypeVideo:
		return MediaTypeVideo
	default:
		return MediaTypeNone
	}
}

// AnimatedImageSizeLimit is the largest animated image, in bytes, that is
// handed out by a media query.
const AnimatedImageSizeLimit = 20 * 1024 * 1024

// MimeType is an exclusion category a caller can filter on.
type MimeType string

const (
	MimeJPEG  MimeType = "image/jpeg"
	MimePNG   MimeType = "image/png"
	MimeGIF   MimeType = "image/gif"
	MimeBMP   MimeType = "image/bmp"
	MimeWEBP  MimeType = "image/webp"
	MimeHEIC  MimeType = "image/heic"
	MimeVideo MimeType = "video/*"
)

// mimeAliases folds spellings seen in the wild onto one canonical name.
var mimeAliases = map[string]string{
	"image/jpg":      "image/jpeg",
	"image/pjpeg":    "image/jpeg",
	"image/x-bmp":    "image/bmp",
	"image/x-ms-bmp": "image/bmp",
	"image/x-png":    "image/png",
}

var categoryNames = map[string]MimeType{
	"jpeg":  MimeJPEG,
	"jpg":   MimeJPEG,
	"png":   MimePNG,
	"gif":   MimeGIF,
	"bmp":   MimeBMP,
	"webp":  MimeWEBP,
	"heic":  MimeHEIC,
	"video": MimeVideo,
}

// ParseMimeType accepts either a short category name ("gif", "video") or a
// full mime type ("image/gif").
func ParseMimeType(name string) (MimeType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if mt, ok := categoryNames[key]; ok {
		return mt, nil
	}
	norm := NormalizeMimeType(key)
	for _, mt := range categoryNames {
		if string(mt) == norm {
			return mt, nil
		}
	}
	if strings.HasPrefix(norm, "video/") {
		return MimeVideo, nil
	}
	return "", fmt.Errorf("unknown mime type %q", name)
}

// NormalizeMimeType lowercases, trims, drops parameters and folds aliases.
func NormalizeMimeType(s string) string {
	s, _, _ = strings.Cut(s, ";")
	s = strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := mimeAliases[s]; ok {
		return canonical
	}
	return s
}

// Matches reports whether mimeType belongs to the category m.
func (m MimeType) Matches(mimeType string) bool {
	got := NormalizeMimeType(mimeType)
	if got == "" {
		return false
	}
	if m == MimeVideo {
		return strings.HasPrefix(got, "video/")
	}

	want := NormalizeMimeType(string(m))
	if got == want {
		return true
	}
	if known := mimetype.Lookup(want); known != nil {
		return known.Is(got)
	}
	return false
}

// MatchesAny reports whether mimeType belongs to any of the categories.
func MatchesAny(categories []MimeType, mimeType string) bool {
	for _, c := range categories {
		if c.Matches(mimeType) {
			return true
		}
	}
	return false
}

// IsAnimatedImage reports whether the mime type denotes an animated image format.
func IsAnimatedImage(mimeType string) bool {
	return strings.Contains(strings.ToLower(mimeType), "gif")
}

// IsVideo reports whether the mime type denotes a video.
func IsVideo(mimeType string) bool {
	return strings.Contains(strings.ToLower(mimeType), "video")
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}
