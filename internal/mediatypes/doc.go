// Package mediatypes provides shared type definitions for media classification
// across the media picker.
//
// It sits at the bottom of the import graph: the indexer uses it to classify
// files while scanning, and the row mapper uses it to filter query results.
//
// # File and media types
//
// FileType is the coarse classification derived from a file extension, and
// MediaType is the numeric media_type column stored in the media index:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	ft := mediatypes.GetFileType(ext)       // FileTypeImage
//	mt := mediatypes.MediaTypeOf(ft)        // MediaTypeImage (1)
//
// # Exclusion categories
//
// MimeType values are the categories a caller may exclude from a query.
// Matching is normalised: case, surrounding whitespace and parameters are
// ignored and common aliases are folded, so MimeJPEG matches "image/jpg" and
// "IMAGE/JPEG; q=0.9". MimeVideo matches every video/* type.
//
//	exclude := []mediatypes.MimeType{mediatypes.MimeGIF, mediatypes.MimeVideo}
//	if mediatypes.MatchesAny(exclude, row.MimeType) {
//	    // drop the row
//	}
//
// # Row predicates
//
// IsAnimatedImage and IsVideo are substring tests on the stored mime type,
// matching how rows are classified by the media index.
package mediatypes
