package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
)

type PostgresReportRepository struct {
	db *sql.DB
}

func NewPostgresReportRepository(db *sql.DB) *PostgresReportRepository {
	return &PostgresReportRepository{db: db}
}

const reportColumns = `id, match_id, reporter_id, accused_id, status, evidence,
	resolved_at, resolved_by, created_at`

func (r *PostgresReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("%w: report is nil", pkgerrors.ErrInvalidParameters)
	}
	query := `
		INSERT INTO reports (match_id, reporter_id, accused_id, evidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		report.MatchID, report.ReporterID, report.AccusedID, report.Evidence,
	).Scan(&report.ID, &report.Status, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *PostgresReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	var report models.Report
	err := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id,
	).Scan(&report.ID, &report.MatchID, &report.ReporterID, &report.AccusedID,
		&report.Status, &report.Evidence, &report.ResolvedAt, &report.ResolvedBy, &report.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

func (r *PostgresReportRepository) List(ctx context.Context, limit int) ([]models.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		var report models.Report
		if err := rows.Scan(&report.ID, &report.MatchID, &report.ReporterID, &report.AccusedID,
			&report.Status, &report.Evidence, &report.ResolvedAt, &report.ResolvedBy, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (r *PostgresReportRepository) Resolve(ctx context.Context, id int64, status models.ReportStatus, adminID int64) error {
	if status != models.ReportResolved && status != models.ReportDismissed {
		return fmt.Errorf("%w: resolution must be resolved or dismissed", pkgerrors.ErrInvalidParameters)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $1, resolved_at = now(), resolved_by = $2
		WHERE id = $3 AND status = 'pending'
	`, status, adminID, id)
	if err != nil {
		return fmt.Errorf("failed to resolve report: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve report: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrReportNotFound
	}
	return nil
}

// ExistsBetween checks for report history between two users inside a
// match they both played, in either direction. Status is ignored on
// purpose: a dismissed report still blocks joining.
func (r *PostgresReportRepository) ExistsBetween(ctx context.Context, userA, userB int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM reports r
			JOIN match_players a ON a.match_id = r.match_id AND a.user_id = $1
			JOIN match_players b ON b.match_id = r.match_id AND b.user_id = $2
			WHERE (r.reporter_id = $1 AND r.accused_id = $2)
			   OR (r.reporter_id = $2 AND r.accused_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check report history: %w", err)
	}
	return exists, nil
}
