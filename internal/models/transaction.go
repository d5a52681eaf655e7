package models

import "time"

type TransactionType string

const (
	TypeCoinPurchase    TransactionType = "coin_purchase"
	TypeMatchEntry      TransactionType = "match_entry"
	TypeMatchRefund     TransactionType = "match_refund"
	TypeMatchPrize      TransactionType = "match_prize"
	TypeCreatorBonus    TransactionType = "creator_bonus"
	TypeDiscordTransfer TransactionType = "discord_transfer"
	TypeWithdrawal      TransactionType = "withdrawal"
)

// MovementShape is the ledger primitive a transaction type is recorded
// with. Each type maps to exactly one shape so a replay of the audit
// log can classify every row by its type alone.
type MovementShape int

const (
	ShapeDebit MovementShape = iota
	ShapeCredit
	ShapeTransfer
)

func (s MovementShape) String() string {
	switch s {
	case ShapeDebit:
		return "debit"
	case ShapeCredit:
		return "credit"
	case ShapeTransfer:
		return "transfer"
	}
	return "unknown"
}

// Shape returns the single primitive allowed to record t.
func (t TransactionType) Shape() (MovementShape, bool) {
	switch t {
	case TypeMatchEntry, TypeWithdrawal:
		return ShapeDebit, true
	case TypeCoinPurchase, TypeMatchRefund, TypeMatchPrize, TypeCreatorBonus:
		return ShapeCredit, true
	case TypeDiscordTransfer:
		return ShapeTransfer, true
	}
	return 0, false
}

func (t TransactionType) Valid() bool {
	_, ok := t.Shape()
	return ok
}

// Transaction is an immutable ledger entry. Amount is always positive;
// direction is encoded by From/To. A debit-only entry has From set, a
// credit-only entry has To set, a transfer has both.
type Transaction struct {
	ID          int64           `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	From        *int64          `json:"from,omitempty"`
	To          *int64          `json:"to,omitempty"`
	Fee         int64           `json:"fee,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
