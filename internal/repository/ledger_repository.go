package repository

import (
	"context"

	"github.com/CeoSolace/stealth-bte/internal/models"
)

// LedgerRepository is the only writer of user coin balances. Every
// mutation pairs a balance-guarded update with an appended transaction
// row inside a single store transaction.
type LedgerRepository interface {
	// Debit decrements the balance if it covers amount and appends the
	// transaction record. The check and the decrement are one atomic
	// unit; a concurrent debit on the same user cannot produce a
	// negative balance.
	Debit(ctx context.Context, tx *models.Transaction) error
	// Credit increments the balance and appends the transaction record.
	Credit(ctx context.Context, tx *models.Transaction) error
	// Transfer debits From and credits To as one unit recorded by a
	// single transaction row. If the debit fails nothing is written.
	Transfer(ctx context.Context, tx *models.Transaction) error

	HistoryForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	ListRecent(ctx context.Context, limit int) ([]models.Transaction, error)
}
