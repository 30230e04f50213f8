package compress

import (
	"context"

	"imgpress/internal/models"
)

// RecordStore is the catalog of image records. Find returns
// models.ErrNotFound (wrapped) for an unknown id.
type RecordStore interface {
	Find(ctx context.Context, id int64) (*models.ImageRecord, error)
	Insert(ctx context.Context, rec *models.ImageRecord) error
	Update(ctx context.Context, rec *models.ImageRecord) error
	Delete(ctx context.Context, id int64) error
	ListRecent(ctx context.Context, n int) ([]*models.ImageRecord, error)
}

// BlobStore is byte content addressed by path, distinct from the
// metadata record that points at it.
type BlobStore interface {
	Exists(path string) bool
	ReadAll(path string) ([]byte, error)
	WriteAll(path string, data []byte) error
	Delete(path string) error
}

// Compressor is what the orchestrator needs from the engine.
type Compressor interface {
	Compress(data []byte, contentType string, quality int) ([]byte, error)
}
