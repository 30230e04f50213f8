package compress

import (
	"context"
	"fmt"
	"log"
	"path"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"imgpress/internal/models"
)

// CompressedPrefix is the blob-store area holding derived artifacts.
const CompressedPrefix = "compressed"

// Originals above this size leave a lot of garbage behind after decode.
const largeOriginalBytes = 10 << 20

// Orchestrator produces compressed artifacts and caches them in the blob
// store. Compression is one-shot per record: the first write wins and
// later requests, whatever their quality, are served from the artifact.
type Orchestrator struct {
	records RecordStore
	blobs   BlobStore
	engine  Compressor
	group   singleflight.Group
}

func NewOrchestrator(records RecordStore, blobs BlobStore, engine Compressor) *Orchestrator {
	return &Orchestrator{records: records, blobs: blobs, engine: engine}
}

// GetCompressedBytes returns the compressed artifact for a record,
// computing and persisting it on first use. Concurrent calls for the
// same record share a single compression.
func (o *Orchestrator) GetCompressedBytes(ctx context.Context, recordID int64, quality int) ([]byte, error) {
	v, err, _ := o.group.Do(strconv.FormatInt(recordID, 10), func() (any, error) {
		return o.getCompressedBytes(ctx, recordID, quality)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (o *Orchestrator) getCompressedBytes(ctx context.Context, recordID int64, quality int) ([]byte, error) {
	const op = "compress.Orchestrator.GetCompressedBytes"

	rec, err := o.records.Find(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("%s: record %d: %w", op, recordID, err)
	}

	if rec.IsCompressed && rec.CompressedPath != "" && o.blobs.Exists(rec.CompressedPath) {
		data, err := o.blobs.ReadAll(rec.CompressedPath)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: read %s: %w", op, recordID, rec.CompressedPath, err)
		}
		return data, nil
	}

	if rec.OriginalPath == "" || !o.blobs.Exists(rec.OriginalPath) {
		return nil, fmt.Errorf("%s: record %d: original blob %q: %w", op, recordID, rec.OriginalPath, models.ErrNotFound)
	}

	original, err := o.blobs.ReadAll(rec.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("%s: record %d: read %s: %w", op, recordID, rec.OriginalPath, err)
	}

	compressed, err := o.engine.Compress(original, rec.ContentType, quality)
	if err != nil {
		return nil, fmt.Errorf("%s: record %d: %w", op, recordID, err)
	}
	if len(original) > largeOriginalBytes {
		runtime.GC()
	}

	artifactPath := path.Join(CompressedPrefix, "compressed_"+rec.StoredName)
	if err := o.blobs.WriteAll(artifactPath, compressed); err != nil {
		return nil, fmt.Errorf("%s: record %d: write %s: %w", op, recordID, artifactPath, err)
	}

	now := time.Now().UTC()
	rec.IsCompressed = true
	rec.CompressedSizeBytes = int64(len(compressed))
	rec.CompressedPath = artifactPath
	rec.CompressedAt = &now
	if err := o.records.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: record %d: %w", op, recordID, err)
	}

	log.Printf("%s: record %d compressed %d -> %d bytes", op, recordID, rec.SizeBytes, rec.CompressedSizeBytes)
	return compressed, nil
}
