package quotas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Reserve is a single conditional upsert: the conflicting row is only bumped
// while it is still under the limit, so concurrent reservations cannot
// overshoot.
func (r *PostgresRepository) Reserve(ctx context.Context, clientID, period string, limit int64) error {
	if limit <= 0 {
		return common.ErrMonthlyLimitReached
	}

	query := `
		INSERT INTO upload_quotas (client_id, period, count, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (client_id, period) DO UPDATE
			SET count = upload_quotas.count + 1, updated_at = NOW()
			WHERE upload_quotas.count < $3`

	n, err := dbx.ExecAffected(ctx, r.db, query, clientID, period, limit)
	if err != nil {
		return fmt.Errorf("failed to reserve quota: %w", err)
	}
	if n == 0 {
		return common.ErrMonthlyLimitReached
	}
	return nil
}

func (r *PostgresRepository) Release(ctx context.Context, clientID, period string) error {
	query := `UPDATE upload_quotas SET count = count - 1, updated_at = NOW()
		WHERE client_id = $1 AND period = $2 AND count > 0`

	if _, err := r.db.ExecContext(ctx, query, clientID, period); err != nil {
		return fmt.Errorf("failed to release quota: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Used(ctx context.Context, clientID, period string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count FROM upload_quotas WHERE client_id = $1 AND period = $2`, clientID, period).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to select quota: %w", err)
	}
	return n, nil
}
