package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/dbx"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
)

const selectColumns = `id, original_name, size, mime_type, s3_key, s3_bucket, status, is_active,
	upload_date, expires_at, download_count, upload_id, original_size, client_id`

// PostgresRepository implements the ledger over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.FileRecord) error {
	query := `
		INSERT INTO files (id, original_name, size, mime_type, s3_key, s3_bucket, status, is_active,
			upload_date, expires_at, upload_id, client_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.OriginalName, f.Size, f.MimeType, f.StorageKey, f.StorageBucket, string(f.Status), f.IsActive,
		f.UploadDate, f.ExpiresAt, nullString(f.MultipartUploadID), nullString(f.ClientID))
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.FileRecord, error) {
	var (
		f            models.FileRecord
		status       string
		uploadID     sql.NullString
		originalSize sql.NullInt64
		clientID     sql.NullString
	)
	err := s.Scan(&f.ID, &f.OriginalName, &f.Size, &f.MimeType, &f.StorageKey, &f.StorageBucket, &status, &f.IsActive,
		&f.UploadDate, &f.ExpiresAt, &f.DownloadCount, &uploadID, &originalSize, &clientID)
	if err != nil {
		return nil, err
	}
	f.Status = models.Status(status)
	f.MultipartUploadID = uploadID.String
	f.ClientID = clientID.String
	if originalSize.Valid {
		v := originalSize.Int64
		f.OriginalSize = &v
	}
	return &f, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) SetMultipartUploadID(ctx context.Context, id, uploadID string) error {
	n, err := dbx.ExecAffected(ctx, r.db, `UPDATE files SET upload_id = $2 WHERE id = $1`, id, uploadID)
	if err != nil {
		return fmt.Errorf("failed to set upload id: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetOriginalSize(ctx context.Context, id string, size int64) error {
	n, err := dbx.ExecAffected(ctx, r.db, `UPDATE files SET original_size = $2 WHERE id = $1`, id, size)
	if err != nil {
		return fmt.Errorf("failed to set original size: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string, finalSize *int64) (bool, error) {
	var size sql.NullInt64
	if finalSize != nil && *finalSize > 0 {
		size = sql.NullInt64{Int64: *finalSize, Valid: true}
	}

	query := `UPDATE files SET status = 'uploaded', size = COALESCE($2, size) WHERE id = $1 AND status = 'pending'`
	n, err := dbx.ExecAffected(ctx, r.db, query, id, size)
	if err != nil {
		return false, fmt.Errorf("failed to mark uploaded: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	status, err := r.status(ctx, id)
	if err != nil {
		return false, err
	}
	switch status {
	case models.StatusUploaded:
		return false, nil
	case models.StatusFailed:
		return false, common.ErrUploadFailed
	default:
		return false, fmt.Errorf("unexpected status %q after mark uploaded", status)
	}
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string) (bool, error) {
	query := `UPDATE files SET status = 'failed' WHERE id = $1 AND status = 'pending'`
	n, err := dbx.ExecAffected(ctx, r.db, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark failed: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.status(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostgresRepository) MarkInactive(ctx context.Context, id string) (bool, error) {
	query := `UPDATE files SET is_active = false WHERE id = $1 AND is_active = true`
	n, err := dbx.ExecAffected(ctx, r.db, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark inactive: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE files SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE is_active = true ORDER BY upload_date DESC`
	return r.list(ctx, query)
}

func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE expires_at < $1 AND is_active = true`
	return r.list(ctx, query, now)
}

func (r *PostgresRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE is_active = true`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) status(ctx context.Context, id string) (models.Status, error) {
	var s string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM files WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to select status: %w", err)
	}
	return models.Status(s), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
