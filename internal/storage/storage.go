package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"imgpress/internal/models"
)

const recordColumns = `id, original_name, stored_name, extension, size_bytes, content_type,
	 original_path, uploaded_at, is_compressed,
	 COALESCE(compressed_size_bytes, 0), COALESCE(compressed_path, ''), compressed_at`

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Storage) Find(ctx context.Context, id int64) (*models.ImageRecord, error) {
	const op = "storage.Find"
	rec, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM images WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: id %d: %w", op, id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	return rec, nil
}

func (s *Storage) Insert(ctx context.Context, rec *models.ImageRecord) error {
	const op = "storage.Insert"
	err := s.pool.QueryRow(ctx,
		`INSERT INTO images (original_name, stored_name, extension, size_bytes, content_type,
		 original_path, uploaded_at, is_compressed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		rec.OriginalName, rec.StoredName, rec.Extension, rec.SizeBytes, rec.ContentType,
		rec.OriginalPath, rec.UploadedAt, rec.IsCompressed).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, rec *models.ImageRecord) error {
	const op = "storage.Update"
	tag, err := s.pool.Exec(ctx,
		`UPDATE images SET is_compressed = $2, compressed_size_bytes = $3,
		 compressed_path = $4, compressed_at = $5 WHERE id = $1`,
		rec.ID, rec.IsCompressed, nullableInt64(rec.CompressedSizeBytes),
		nullableString(rec.CompressedPath), rec.CompressedAt)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: id %d: %w", op, rec.ID, models.ErrNotFound)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, id int64) error {
	const op = "storage.Delete"
	_, err := s.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	return nil
}

func (s *Storage) ListRecent(ctx context.Context, n int) ([]*models.ImageRecord, error) {
	const op = "storage.ListRecent"
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM images ORDER BY uploaded_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	defer rows.Close()

	var records []*models.ImageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ImageRecord, error) {
	var rec models.ImageRecord
	err := row.Scan(&rec.ID, &rec.OriginalName, &rec.StoredName, &rec.Extension,
		&rec.SizeBytes, &rec.ContentType, &rec.OriginalPath, &rec.UploadedAt,
		&rec.IsCompressed, &rec.CompressedSizeBytes, &rec.CompressedPath, &rec.CompressedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// compressed_size_bytes and compressed_path stay NULL until the record
// is compressed; zero values must not masquerade as artifacts.
func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
