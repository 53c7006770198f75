package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetQuotaUsage returns the number of quotes userID created in period (YYYY-MM).
func (s *Storage) GetQuotaUsage(ctx context.Context, userID, period string) (int, error) {
	const op = "storage.GetQuotaUsage"
	if err := checkContext(ctx, op); err != nil {
		return 0, err
	}

	var used int
	query := `SELECT COALESCE(
			      (SELECT used FROM user_quota_usage WHERE user_id = $1 AND period = $2), 0)`
	if err := s.DB.GetContext(ctx, &used, query, userID, period); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return used, nil
}

// consumeQuota increments the usage of userID in period only while it is
// below limit. It returns ErrQuotaExhausted when the allowance is spent.
func consumeQuota(ctx context.Context, q sqlx.ExecerContext, userID, period string, limit int) error {
	if limit <= 0 {
		return ErrQuotaExhausted
	}
	query := `INSERT INTO user_quota_usage (user_id, period, used)
			  VALUES ($1, $2, 1)
			  ON CONFLICT (user_id, period) DO UPDATE SET used = user_quota_usage.used + 1
			  WHERE user_quota_usage.used < $3`
	res, err := q.ExecContext(ctx, query, userID, period, limit)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuotaExhausted
	}
	return nil
}
