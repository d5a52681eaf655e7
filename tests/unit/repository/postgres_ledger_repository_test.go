package repository_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/CeoSolace/stealth-bte/internal/models"
	repository "github.com/CeoSolace/stealth-bte/internal/repository/postgres"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresLedgerRepository_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresLedgerRepository(db)
	ctx := context.Background()

	fromID := int64(7)

	t.Run("MissingFromUser", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeWithdrawal, Amount: 100}
		err := repo.Debit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		tx := &models.Transaction{
			Type:        models.TypeWithdrawal,
			Amount:      100,
			From:        &fromID,
			Fee:         3,
			Description: "Withdrawal of 100 coins",
		}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
			WithArgs(tx.Amount, fromID).
			WillReturnRows(sqlmock.NewRows([]string{"coins"}).AddRow(int64(900)))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(string(tx.Type), tx.Amount, fromID, nil, tx.Fee, tx.Description).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
		mock.ExpectCommit()

		err := repo.Debit(ctx, tx)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), tx.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeWithdrawal, Amount: 5000, From: &fromID}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
			WithArgs(tx.Amount, fromID).
			WillReturnRows(sqlmock.NewRows([]string{"coins"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
			WithArgs(fromID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := repo.Debit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeWithdrawal, Amount: 100, From: &fromID}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
			WithArgs(tx.Amount, fromID).
			WillReturnRows(sqlmock.NewRows([]string{"coins"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
			WithArgs(fromID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err := repo.Debit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresLedgerRepository_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresLedgerRepository(db)
	ctx := context.Background()

	toID := int64(3)

	t.Run("Success", func(t *testing.T) {
		tx := &models.Transaction{
			Type:        models.TypeCoinPurchase,
			Amount:      500,
			To:          &toID,
			Description: "Purchased 500 coins",
		}
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET coins = coins + $1 WHERE id = $2`)).
			WithArgs(tx.Amount, toID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(string(tx.Type), tx.Amount, nil, toID, tx.Fee, tx.Description).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), time.Now()))
		mock.ExpectCommit()

		err := repo.Credit(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeCoinPurchase, Amount: 500, To: &toID}
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET coins = coins + $1 WHERE id = $2`)).
			WithArgs(tx.Amount, toID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Credit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresLedgerRepository_Transfer(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresLedgerRepository(db)
	ctx := context.Background()

	fromID, toID := int64(7), int64(3)

	t.Run("Success", func(t *testing.T) {
		tx := &models.Transaction{
			Type:        models.TypeDiscordTransfer,
			Amount:      50,
			From:        &fromID,
			To:          &toID,
			Description: "Discord transfer",
		}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
			WithArgs(tx.Amount, fromID).
			WillReturnRows(sqlmock.NewRows([]string{"coins"}).AddRow(int64(950)))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET coins = coins + $1 WHERE id = $2`)).
			WithArgs(tx.Amount, toID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(string(tx.Type), tx.Amount, fromID, toID, tx.Fee, tx.Description).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), time.Now()))
		mock.ExpectCommit()

		err := repo.Transfer(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DebitFailureRollsBack", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeDiscordTransfer, Amount: 50, From: &fromID, To: &toID}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
			WithArgs(tx.Amount, fromID).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.Transfer(ctx, tx)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresLedgerRepository_HistoryForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresLedgerRepository(db)
	ctx := context.Background()

	userID := int64(7)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions`)).
		WithArgs(userID, 10).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "type", "amount", "from_user_id", "to_user_id", "fee", "description", "created_at"}).
			AddRow(int64(2), "match_prize", int64(40), nil, userID, int64(0), "Prize", now).
			AddRow(int64(1), "match_entry", int64(10), userID, nil, int64(0), "Entry", now))

	history, err := repo.HistoryForUser(ctx, userID, 10)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, models.TypeMatchPrize, history[0].Type)
	assert.Equal(t, userID, *history[1].From)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A transaction whose type belongs to another primitive is refused
// before any SQL runs, so the log never holds a row whose From/To
// layout contradicts its type.
func TestPostgresLedgerRepository_ShapePerType(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresLedgerRepository(db)
	ctx := context.Background()

	userID := int64(7)
	otherID := int64(9)

	t.Run("DebitRefusesCreditShapedType", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeMatchPrize, Amount: 40, From: &userID}
		err := repo.Debit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	})

	t.Run("CreditRefusesDebitShapedType", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeMatchEntry, Amount: 10, To: &userID}
		err := repo.Credit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	})

	t.Run("TransferRefusesDebitShapedType", func(t *testing.T) {
		tx := &models.Transaction{Type: models.TypeWithdrawal, Amount: 10, From: &userID, To: &otherID}
		err := repo.Transfer(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
