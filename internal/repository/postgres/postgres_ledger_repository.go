package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/infrastructure/observability"
	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// debitUserTx decrements the balance inside dbTx. The guard and the
// decrement are one statement; zero rows means the user is missing or
// cannot cover the amount.
func debitUserTx(ctx context.Context, dbTx *sql.Tx, userID, amount int64) error {
	var balance int64
	query := `
		UPDATE users
		SET coins = coins - $1
		WHERE id = $2 AND coins >= $1
		RETURNING coins
	`
	err := dbTx.QueryRowContext(ctx, query, amount, userID).Scan(&balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		var exists bool
		if probeErr := dbTx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID,
		).Scan(&exists); probeErr != nil {
			return fmt.Errorf("failed to probe user %d: %w", userID, probeErr)
		}
		if !exists {
			return pkgerrors.ErrUserNotFound
		}
		return pkgerrors.ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("failed to debit user %d: %w", userID, err)
	}
	return nil
}

func creditUserTx(ctx context.Context, dbTx *sql.Tx, userID, amount int64) error {
	res, err := dbTx.ExecContext(ctx,
		`UPDATE users SET coins = coins + $1 WHERE id = $2`, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, err)
	}
	if rows == 0 {
		return pkgerrors.ErrUserNotFound
	}
	return nil
}

func insertTransactionTx(ctx context.Context, dbTx *sql.Tx, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (type, amount, from_user_id, to_user_id, fee, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := dbTx.QueryRowContext(ctx, query,
		tx.Type, tx.Amount, tx.From, tx.To, tx.Fee, tx.Description,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(dbTx); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) observe(ctx context.Context, op string, tx *models.Transaction, fn func(*sql.Tx) error) (err error) {
	tracer := otel.Tracer("ledger-repository")
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("type", string(tx.Type)),
		attribute.Int64("amount", tx.Amount),
	)

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues(op, status).Inc()
		observability.RepositoryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	err = r.withTx(ctx, fn)
	return err
}

// requireShape refuses transactions whose type maps to a different
// ledger primitive, keeping the audit log classifiable by type alone.
func requireShape(tx *models.Transaction, want models.MovementShape) error {
	shape, ok := tx.Type.Shape()
	if !ok {
		return fmt.Errorf("%w: unknown transaction type %q", pkgerrors.ErrInvalidParameters, tx.Type)
	}
	if shape != want {
		return fmt.Errorf("%w: %q entries are %s-shaped, cannot record as a %s",
			pkgerrors.ErrInvalidParameters, tx.Type, shape, want)
	}
	return nil
}

func (r *PostgresLedgerRepository) Debit(ctx context.Context, tx *models.Transaction) error {
	if tx.From == nil {
		return fmt.Errorf("%w: debit requires a from user", pkgerrors.ErrInvalidParameters)
	}
	if err := requireShape(tx, models.ShapeDebit); err != nil {
		return err
	}
	return r.observe(ctx, "Debit", tx, func(dbTx *sql.Tx) error {
		if err := debitUserTx(ctx, dbTx, *tx.From, tx.Amount); err != nil {
			return err
		}
		return insertTransactionTx(ctx, dbTx, tx)
	})
}

func (r *PostgresLedgerRepository) Credit(ctx context.Context, tx *models.Transaction) error {
	if tx.To == nil {
		return fmt.Errorf("%w: credit requires a to user", pkgerrors.ErrInvalidParameters)
	}
	if err := requireShape(tx, models.ShapeCredit); err != nil {
		return err
	}
	return r.observe(ctx, "Credit", tx, func(dbTx *sql.Tx) error {
		if err := creditUserTx(ctx, dbTx, *tx.To, tx.Amount); err != nil {
			return err
		}
		return insertTransactionTx(ctx, dbTx, tx)
	})
}

func (r *PostgresLedgerRepository) Transfer(ctx context.Context, tx *models.Transaction) error {
	if tx.From == nil || tx.To == nil {
		return fmt.Errorf("%w: transfer requires both users", pkgerrors.ErrInvalidParameters)
	}
	if err := requireShape(tx, models.ShapeTransfer); err != nil {
		return err
	}
	return r.observe(ctx, "Transfer", tx, func(dbTx *sql.Tx) error {
		if err := debitUserTx(ctx, dbTx, *tx.From, tx.Amount); err != nil {
			return err
		}
		if err := creditUserTx(ctx, dbTx, *tx.To, tx.Amount); err != nil {
			return err
		}
		return insertTransactionTx(ctx, dbTx, tx)
	})
}

func (r *PostgresLedgerRepository) HistoryForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, type, amount, from_user_id, to_user_id, fee, description, created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.queryTransactions(ctx, query, userID, limit)
}

func (r *PostgresLedgerRepository) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, type, amount, from_user_id, to_user_id, fee, description, created_at
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.queryTransactions(ctx, query, limit)
}

func (r *PostgresLedgerRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.From, &tx.To, &tx.Fee, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
