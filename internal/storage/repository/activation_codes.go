package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/solvix/solvix-devis/internal/models"
)

// errUserMissing keeps a missing account apart from an unknown code.
var errUserMissing = errors.New("activating user does not exist")

const codeColumns = `id, code, status, batch_id, notes, created_by, created_at, sold_at, customer_email,
	customer_name, used_at, used_by, device_fingerprint, revoked_at, revoke_reason`

// InsertActivationCodes stores a generated batch in a single statement.
func (s *Storage) InsertActivationCodes(ctx context.Context, codes []models.ActivationCode) error {
	const op = "storage.InsertActivationCodes"
	if err := checkContext(ctx, op); err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}

	query := `INSERT INTO premium_activation_codes (code, status, batch_id, notes, created_by)
			  VALUES (:code, :status, :batch_id, :notes, :created_by)`
	if _, err := s.DB.NamedExecContext(ctx, query, codes); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

func lockCode(ctx context.Context, tx *sqlx.Tx, code string) (*models.ActivationCode, error) {
	var c models.ActivationCode
	query := `SELECT ` + codeColumns + ` FROM premium_activation_codes WHERE code = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &c, query, code); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// MarkCodeSold records the sale of an AVAILABLE code.
func (s *Storage) MarkCodeSold(ctx context.Context, code, customerEmail, customerName string) (*models.ActivationCode, error) {
	const op = "storage.MarkCodeSold"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var result *models.ActivationCode
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		c, err := lockCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if c.Status != models.CodeStatusAvailable {
			return ErrConflict
		}
		query := `UPDATE premium_activation_codes
				  SET status = 'SOLD', sold_at = NOW(), customer_email = $1, customer_name = $2
				  WHERE id = $3
				  RETURNING ` + codeColumns
		var updated models.ActivationCode
		if err = tx.GetContext(ctx, &updated, query, customerEmail, customerName, c.ID); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ActivateCode binds an AVAILABLE or SOLD code to userID and grants premium
// in one transaction. The user row is locked before the code, so concurrent
// activations for one user are serialized. A premium user yields
// ErrAlreadyPremium; a code in any other state yields ErrConflict.
func (s *Storage) ActivateCode(ctx context.Context, code, userID, fingerprint string) (*models.ActivationCode, error) {
	const op = "storage.ActivateCode"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var result *models.ActivationCode
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var premium bool
		if err := tx.GetContext(ctx, &premium,
			`SELECT is_premium FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errUserMissing
			}
			return err
		}
		if premium {
			return ErrAlreadyPremium
		}

		c, err := lockCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if !c.Status.Activatable() {
			return ErrConflict
		}

		query := `UPDATE premium_activation_codes
				  SET status = 'USED', used_at = NOW(), used_by = $1, device_fingerprint = $2
				  WHERE id = $3
				  RETURNING ` + codeColumns
		var updated models.ActivationCode
		if err = tx.GetContext(ctx, &updated, query, userID, fingerprint, c.ID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET is_premium = TRUE, premium_since = NOW() WHERE id = $1 AND NOT is_premium`, userID)
		if err != nil {
			return err
		}
		if err = checkAffected(res); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RevokeCode revokes a code that is not already revoked. When the code was
// USED, its holder loses premium in the same transaction.
func (s *Storage) RevokeCode(ctx context.Context, code, reason string) (*models.ActivationCode, error) {
	const op = "storage.RevokeCode"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var result *models.ActivationCode
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		c, err := lockCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if c.Status == models.CodeStatusRevoked {
			return ErrConflict
		}

		query := `UPDATE premium_activation_codes
				  SET status = 'REVOKED', revoked_at = NOW(), revoke_reason = $1
				  WHERE id = $2
				  RETURNING ` + codeColumns
		var updated models.ActivationCode
		if err = tx.GetContext(ctx, &updated, query, reason, c.ID); err != nil {
			return err
		}

		if c.Status == models.CodeStatusUsed && c.UsedBy != nil {
			if _, err = tx.ExecContext(ctx,
				`UPDATE users SET is_premium = FALSE, premium_since = NULL WHERE id = $1`, *c.UsedBy); err != nil {
				return err
			}
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ActivationCodeStats counts codes per status.
func (s *Storage) ActivationCodeStats(ctx context.Context) (*models.ActivationCodeStats, error) {
	const op = "storage.ActivationCodeStats"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var stats models.ActivationCodeStats
	query := `SELECT COUNT(*) AS total,
			      COUNT(*) FILTER (WHERE status = 'AVAILABLE') AS available,
			      COUNT(*) FILTER (WHERE status = 'SOLD') AS sold,
			      COUNT(*) FILTER (WHERE status = 'USED') AS used,
			      COUNT(*) FILTER (WHERE status = 'REVOKED') AS revoked
			  FROM premium_activation_codes`
	if err := s.DB.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &stats, nil
}

// ListActivationCodes returns codes, newest first, optionally filtered by status.
func (s *Storage) ListActivationCodes(ctx context.Context, filter models.CodeFilter) ([]models.ActivationCode, error) {
	const op = "storage.ListActivationCodes"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	codes := []models.ActivationCode{}
	var err error
	if filter.Status != "" {
		query := `SELECT ` + codeColumns + ` FROM premium_activation_codes WHERE status = $1
				  ORDER BY created_at DESC, code
				  LIMIT $2 OFFSET $3`
		err = s.DB.SelectContext(ctx, &codes, query, filter.Status, filter.Limit, filter.Offset)
	} else {
		query := `SELECT ` + codeColumns + ` FROM premium_activation_codes
				  ORDER BY created_at DESC, code
				  LIMIT $1 OFFSET $2`
		err = s.DB.SelectContext(ctx, &codes, query, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return codes, nil
}
