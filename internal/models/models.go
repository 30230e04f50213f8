package models

import "time"

// ImageRecord describes one uploaded image and, once compressed, its
// derived artifact. The record store assigns ID on insert.
type ImageRecord struct {
	ID                  int64      `db:"id"`
	OriginalName        string     `db:"original_name"`
	StoredName          string     `db:"stored_name"`
	Extension           string     `db:"extension"`
	SizeBytes           int64      `db:"size_bytes"`
	ContentType         string     `db:"content_type"`
	OriginalPath        string     `db:"original_path"`
	UploadedAt          time.Time  `db:"uploaded_at"`
	IsCompressed        bool       `db:"is_compressed"`
	CompressedSizeBytes int64      `db:"compressed_size_bytes"`
	CompressedPath      string     `db:"compressed_path"`
	CompressedAt        *time.Time `db:"compressed_at"`
}

// Column limits of the images table. Upload input is truncated to fit
// rather than rejected.
const (
	MaxNameLen        = 255
	MaxExtensionLen   = 10
	MaxContentTypeLen = 50
)

// Truncate clips s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
