package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Count(ctx context.Context, period string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count FROM upload_usage WHERE period = ?`, period).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get usage[%s]: %w", period, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Increment(ctx context.Context, period string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO upload_usage (period, count, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(period) DO UPDATE SET count = upload_usage.count + 1, updated_at = excluded.updated_at
		RETURNING count
	`, period, r.now().UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage[%s]: %w", period, err)
	}
	return n, nil
}

func (r *SQLiteRepository) History(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT period, count FROM upload_usage`)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var period string
		var n int
		if err := rows.Scan(&period, &n); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		result[period] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage rows: %w", err)
	}
	return result, nil
}
