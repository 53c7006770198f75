package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/solvix/solvix-devis/internal/models"
)

const devisColumns = `id, user_id, client_id, number, issue_date, valid_until, currency, template, status,
	notes, subtotal, total_vat, total_ttc, share_token, created_at, updated_at`

// QuotaCharge asks CreateDevis to consume one unit of the monthly allowance in
// the same transaction as the insert.
type QuotaCharge struct {
	Period string
	Limit  int
}

// CreateDevis assigns the next number of the year to d, then writes the header
// and its lines in one transaction. When charge is not nil the quota unit is
// consumed first and ErrQuotaExhausted aborts the whole write.
func (s *Storage) CreateDevis(ctx context.Context, d *models.Devis, charge *QuotaCharge) error {
	const op = "storage.CreateDevis"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if charge != nil {
			if err := consumeQuota(ctx, tx, d.UserID, charge.Period, charge.Limit); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, d.UserID); err != nil {
			return err
		}
		year := d.IssueDate.Year()
		var seq int
		seqQuery := `SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 10) AS INTEGER)), 0) + 1
					 FROM devis
					 WHERE user_id = $1 AND number LIKE $2`
		if err := tx.GetContext(ctx, &seq, seqQuery, d.UserID, "DEV-"+strconv.Itoa(year)+"-%"); err != nil {
			return err
		}
		d.Number = models.DevisNumber(year, seq)

		query := `INSERT INTO devis (user_id, client_id, number, issue_date, valid_until, currency, template,
				      status, notes, subtotal, total_vat, total_ttc)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				  RETURNING id, created_at, updated_at`
		if err := tx.QueryRowxContext(ctx, query,
			d.UserID, d.ClientID, d.Number, d.IssueDate, d.ValidUntil, d.Currency, d.Template,
			d.Status, d.Notes, d.Subtotal, d.TotalVAT, d.TotalTTC,
		).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return mapError(err)
		}
		return insertArticles(ctx, tx, d.ID, d.Articles)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func insertArticles(ctx context.Context, tx *sqlx.Tx, devisID string, articles []models.ArticleDevis) error {
	if len(articles) == 0 {
		return nil
	}
	for i := range articles {
		articles[i].ID = uuid.NewString()
		articles[i].DevisID = devisID
	}
	query := `INSERT INTO articles_devis (id, devis_id, position, designation, quantity, unit_price,
			      vat_rate, total_ht)
			  VALUES (:id, :devis_id, :position, :designation, :quantity, :unit_price, :vat_rate, :total_ht)`
	_, err := tx.NamedExecContext(ctx, query, articles)
	return err
}

func loadArticles(ctx context.Context, q sqlx.QueryerContext, userID, devisID string) ([]models.ArticleDevis, error) {
	articles := []models.ArticleDevis{}
	query := `SELECT a.id, a.devis_id, a.position, a.designation, a.quantity, a.unit_price, a.vat_rate,
			      a.total_ht
			  FROM articles_devis a
			  JOIN devis d ON d.id = a.devis_id
			  WHERE a.devis_id = $1 AND d.user_id = $2
			  ORDER BY a.position`
	if err := sqlx.SelectContext(ctx, q, &articles, query, devisID, userID); err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *Storage) completeDevis(ctx context.Context, d *models.Devis) error {
	articles, err := loadArticles(ctx, s.DB, d.UserID, d.ID)
	if err != nil {
		return err
	}
	d.Articles = articles

	if d.ClientID != nil {
		var c models.Client
		query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND user_id = $2`
		err = s.DB.GetContext(ctx, &c, query, *d.ClientID, d.UserID)
		switch mapError(err) {
		case nil:
			d.Client = &c
		case ErrNotFound:
		default:
			return err
		}
	}
	return nil
}

// GetDevis returns the quote id owned by userID with its ordered lines and client.
func (s *Storage) GetDevis(ctx context.Context, userID, id string) (*models.Devis, error) {
	const op = "storage.GetDevis"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var d models.Devis
	query := `SELECT ` + devisColumns + ` FROM devis WHERE id = $1 AND user_id = $2`
	if err := s.DB.GetContext(ctx, &d, query, id, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err := s.completeDevis(ctx, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &d, nil
}

// GetDevisByShareToken returns the quote published under token.
func (s *Storage) GetDevisByShareToken(ctx context.Context, token string) (*models.Devis, error) {
	const op = "storage.GetDevisByShareToken"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var d models.Devis
	query := `SELECT ` + devisColumns + ` FROM devis WHERE share_token = $1`
	if err := s.DB.GetContext(ctx, &d, query, token); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err := s.completeDevis(ctx, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &d, nil
}

// ListDevis returns quote headers of userID, newest first.
func (s *Storage) ListDevis(ctx context.Context, userID string, filter models.DevisFilter) ([]models.Devis, error) {
	const op = "storage.ListDevis"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	list := []models.Devis{}
	var err error
	if filter.Status != "" {
		query := `SELECT ` + devisColumns + ` FROM devis WHERE user_id = $1 AND status = $2
				  ORDER BY issue_date DESC, number DESC
				  LIMIT $3 OFFSET $4`
		err = s.DB.SelectContext(ctx, &list, query, userID, filter.Status, filter.Limit, filter.Offset)
	} else {
		query := `SELECT ` + devisColumns + ` FROM devis WHERE user_id = $1
				  ORDER BY issue_date DESC, number DESC
				  LIMIT $2 OFFSET $3`
		err = s.DB.SelectContext(ctx, &list, query, userID, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UpdateDevis rewrites the header of d and replaces all of its lines atomically.
func (s *Storage) UpdateDevis(ctx context.Context, d *models.Devis) error {
	const op = "storage.UpdateDevis"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `UPDATE devis
				  SET client_id = $1, issue_date = $2, valid_until = $3, currency = $4, template = $5,
				      notes = $6, subtotal = $7, total_vat = $8, total_ttc = $9, updated_at = NOW()
				  WHERE id = $10 AND user_id = $11
				  RETURNING number, status, share_token, created_at, updated_at`
		if err := tx.QueryRowxContext(ctx, query,
			d.ClientID, d.IssueDate, d.ValidUntil, d.Currency, d.Template, d.Notes,
			d.Subtotal, d.TotalVAT, d.TotalTTC, d.ID, d.UserID,
		).Scan(&d.Number, &d.Status, &d.ShareToken, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return mapError(err)
		}

		deleteQuery := `DELETE FROM articles_devis a
						USING devis d
						WHERE a.devis_id = d.id AND d.id = $1 AND d.user_id = $2`
		if _, err := tx.ExecContext(ctx, deleteQuery, d.ID, d.UserID); err != nil {
			return err
		}
		return insertArticles(ctx, tx, d.ID, d.Articles)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateDevisStatus moves the quote from one status to another. It returns
// ErrConflict when the stored status is no longer from.
func (s *Storage) UpdateDevisStatus(ctx context.Context, userID, id string, from, to models.DevisStatus) error {
	const op = "storage.UpdateDevisStatus"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	query := `UPDATE devis SET status = $1, updated_at = NOW()
			  WHERE id = $2 AND user_id = $3 AND status = $4`
	res, err := s.DB.ExecContext(ctx, query, to, id, userID, from)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err = checkAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return nil
}

// DeleteDevis removes the quote id owned by userID and its lines.
func (s *Storage) DeleteDevis(ctx context.Context, userID, id string) error {
	const op = "storage.DeleteDevis"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM devis WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err = checkAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetShareToken publishes the quote under token, or withdraws it when token is nil.
func (s *Storage) SetShareToken(ctx context.Context, userID, id string, token *string) error {
	const op = "storage.SetShareToken"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	query := `UPDATE devis SET share_token = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`
	res, err := s.DB.ExecContext(ctx, query, token, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err = checkAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ExpireOverdueDevis marks every sent quote whose validity ended before day as
// expired and returns them.
func (s *Storage) ExpireOverdueDevis(ctx context.Context, day time.Time) ([]models.ExpiredDevis, error) {
	const op = "storage.ExpireOverdueDevis"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	expired := []models.ExpiredDevis{}
	query := `UPDATE devis SET status = 'expired', updated_at = NOW()
			  WHERE status = 'sent' AND valid_until < $1
			  RETURNING id, user_id, number`
	if err := s.DB.SelectContext(ctx, &expired, query, day); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expired, nil
}
