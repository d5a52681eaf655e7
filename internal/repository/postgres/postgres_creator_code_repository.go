package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/lib/pq"
)

type PostgresCreatorCodeRepository struct {
	db *sql.DB
}

func NewPostgresCreatorCodeRepository(db *sql.DB) *PostgresCreatorCodeRepository {
	return &PostgresCreatorCodeRepository{db: db}
}

func (r *PostgresCreatorCodeRepository) Create(ctx context.Context, code *models.CreatorCode) error {
	if code == nil || code.Code == "" {
		return fmt.Errorf("%w: code is required", pkgerrors.ErrInvalidParameters)
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO creator_codes (code, creator_id) VALUES ($1, $2)
		RETURNING id, uses, created_at
	`, code.Code, code.CreatorID).Scan(&code.ID, &code.Uses, &code.CreatedAt)
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pkgerrors.ErrCodeExists
	}
	if err != nil {
		return fmt.Errorf("failed to create creator code: %w", err)
	}
	return nil
}

func (r *PostgresCreatorCodeRepository) GetByCode(ctx context.Context, code string) (*models.CreatorCode, error) {
	var cc models.CreatorCode
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, creator_id, uses, created_at FROM creator_codes WHERE code = $1
	`, code).Scan(&cc.ID, &cc.Code, &cc.CreatorID, &cc.Uses, &cc.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creator code: %w", err)
	}
	return &cc, nil
}

func (r *PostgresCreatorCodeRepository) IncrementUses(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE creator_codes SET uses = uses + 1 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to increment code uses: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment code uses: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrCodeNotFound
	}
	return nil
}

func (r *PostgresCreatorCodeRepository) List(ctx context.Context) ([]models.CreatorCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, creator_id, uses, created_at FROM creator_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator codes: %w", err)
	}
	defer rows.Close()

	var out []models.CreatorCode
	for rows.Next() {
		var cc models.CreatorCode
		if err := rows.Scan(&cc.ID, &cc.Code, &cc.CreatorID, &cc.Uses, &cc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan creator code: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
