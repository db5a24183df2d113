package mapper

import (
	"strconv"
)

// Record is one media item handed to a listener.
type Record struct {
	Identifier   string `json:"identifier"`
	MediaID      string `json:"mediaId"`
	BucketID     string `json:"bucketId"`
	BucketName   string `json:"bucketName"`
	OriginName   string `json:"originName"`
	OriginPath   string `json:"originPath"`
	FileType     string `json:"fileType"`
	MimeType     string `json:"mimeType"`
	OriginWidth  string `json:"originWidth"`
	OriginHeight string `json:"originHeight"`
	Duration     string `json:"duration"`

	// DurationMs is the raw video duration; zero for images.
	DurationMs int64 `json:"-"`
}

// Map keys produced by ToMap.
const (
	KeyIdentifier  = "identifier"
	KeyMediaID     = "mediaId"
	KeyBucketID    = "bucketId"
	KeyBucketName  = "bucketName"
	KeyName        = "name"
	KeyFilePath    = "filePath"
	KeyFileType    = "fileType"
	KeyMimeType    = "mimeType"
	KeyWidth       = "width"
	KeyHeight      = "height"
	KeyDuration    = "duration"
	KeyThumbPath   = "thumbPath"
	KeyThumbName   = "thumbName"
	KeyThumbWidth  = "thumbWidth"
	KeyThumbHeight = "thumbHeight"
)

// ToMap returns the generic key/value view of r. Dimensions and duration
// are float64; duration is in fractional seconds. Dimensions or duration
// left unset on r are absent from the map.
func (r Record) ToMap() map[string]any {
	m := map[string]any{
		KeyIdentifier:  r.Identifier,
		KeyMediaID:     r.MediaID,
		KeyBucketID:    r.BucketID,
		KeyBucketName:  r.BucketName,
		KeyName:        r.OriginName,
		KeyFilePath:    r.OriginPath,
		KeyFileType:    r.FileType,
		KeyMimeType:    r.MimeType,
		KeyThumbPath:   "",
		KeyThumbName:   "",
		KeyThumbWidth:  0.0,
		KeyThumbHeight: 0.0,
	}

	if v, err := strconv.ParseFloat(r.OriginWidth, 64); err == nil {
		m[KeyWidth] = v
	}
	if v, err := strconv.ParseFloat(r.OriginHeight, 64); err == nil {
		m[KeyHeight] = v
	}
	if r.Duration != "" {
		m[KeyDuration] = float64(r.DurationMs) / 1000
	}
	return m
}

// Maps converts records into their map view, preserving order.
func Maps(records []Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToMap())
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
