package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/downytube/backend/internal/db"
	"github.com/downytube/backend/internal/models"
)

// UploadRepository exposes data access for completed uploads.
type UploadRepository interface {
	Record(ctx context.Context, record models.UploadRecord) error
	FindBySourceID(ctx context.Context, sourceID string) (models.UploadRecord, error)
	List(ctx context.Context, limit int) ([]models.UploadRecord, error)
}

// PostgresUploadRepository provides PostgreSQL-backed persistence for the
// upload history.
type PostgresUploadRepository struct {
	pool db.Pool
}

// NewPostgresUploadRepository constructs an upload repository backed by PostgreSQL.
func NewPostgresUploadRepository(pool db.Pool) *PostgresUploadRepository {
	return &PostgresUploadRepository{pool: pool}
}

// Record persists one completed upload.
func (r *PostgresUploadRepository) Record(ctx context.Context, record models.UploadRecord) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO uploads (id, source_id, video_id, youtube_url, title, kind, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, record.ID, record.SourceID, record.VideoID, record.YouTubeURL, record.Title, record.Kind, record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert upload: %w", err)
	}

	return nil
}

// FindBySourceID returns the most recent upload made from the given source
// video, used to skip already-synced items.
func (r *PostgresUploadRepository) FindBySourceID(ctx context.Context, sourceID string) (models.UploadRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.UploadRecord{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, source_id, video_id, youtube_url, title, kind, created_at
        FROM uploads
        WHERE source_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `, sourceID)

	var record models.UploadRecord
	if err := row.Scan(&record.ID, &record.SourceID, &record.VideoID, &record.YouTubeURL, &record.Title, &record.Kind, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UploadRecord{}, ErrNotFound
		}
		return models.UploadRecord{}, fmt.Errorf("select upload by source id: %w", err)
	}

	return record, nil
}

// List returns uploads in reverse chronological order. A non-positive limit
// falls back to 100.
func (r *PostgresUploadRepository) List(ctx context.Context, limit int) ([]models.UploadRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, source_id, video_id, youtube_url, title, kind, created_at
        FROM uploads
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var records []models.UploadRecord
	for rows.Next() {
		var record models.UploadRecord
		if err := rows.Scan(&record.ID, &record.SourceID, &record.VideoID, &record.YouTubeURL, &record.Title, &record.Kind, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}

	return records, nil
}

var _ UploadRepository = (*PostgresUploadRepository)(nil)
