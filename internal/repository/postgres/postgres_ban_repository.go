package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
)

type PostgresBanRepository struct {
	db *sql.DB
}

func NewPostgresBanRepository(db *sql.DB) *PostgresBanRepository {
	return &PostgresBanRepository{db: db}
}

func (r *PostgresBanRepository) Create(ctx context.Context, ban *models.Ban) error {
	if ban == nil {
		return fmt.Errorf("%w: ban is nil", pkgerrors.ErrInvalidParameters)
	}
	query := `
		INSERT INTO bans (user_id, reason, expires, admin_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ban.UserID, ban.Reason, ban.Expires, ban.AdminID,
	).Scan(&ban.ID, &ban.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ban: %w", err)
	}
	return nil
}

func (r *PostgresBanRepository) ActiveBan(ctx context.Context, userID int64) (*models.Ban, error) {
	var ban models.Ban
	query := `
		SELECT id, user_id, reason, expires, admin_id, created_at
		FROM bans
		WHERE user_id = $1 AND (expires IS NULL OR expires > now())
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&ban.ID, &ban.UserID, &ban.Reason, &ban.Expires, &ban.AdminID, &ban.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active ban: %w", err)
	}
	return &ban, nil
}

func (r *PostgresBanRepository) ExpireActive(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bans SET expires = now()
		WHERE user_id = $1 AND (expires IS NULL OR expires > now())
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to expire bans: %w", err)
	}
	return nil
}

func (r *PostgresBanRepository) List(ctx context.Context, limit int) ([]models.Ban, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, reason, expires, admin_id, created_at
		FROM bans ORDER BY created_at DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	defer rows.Close()

	var out []models.Ban
	for rows.Next() {
		var ban models.Ban
		if err := rows.Scan(&ban.ID, &ban.UserID, &ban.Reason, &ban.Expires, &ban.AdminID, &ban.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		out = append(out, ban)
	}
	return out, rows.Err()
}
