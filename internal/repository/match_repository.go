package repository

import (
	"context"

	"github.com/CeoSolace/stealth-bte/internal/models"
)

type MatchRepository interface {
	// Create inserts the match in active status with the creator as the
	// sole player. The creator's entry debit happens through the ledger
	// before this call.
	Create(ctx context.Context, match *models.Match) error
	// GetByID loads the match with players and votes, votes in
	// submission order.
	GetByID(ctx context.Context, id int64) (*models.Match, error)
	ListRecent(ctx context.Context, limit int) ([]models.Match, error)

	// Join atomically re-checks status, capacity and membership under a
	// row lock, debits the entry fee and appends the player. Two
	// concurrent joins cannot both take the last slot.
	Join(ctx context.Context, matchID, userID int64) error

	// AddVote appends a vote under the match row lock after the status,
	// participant, duplicate and nominee checks. Returns the match with
	// players and the full vote list in submission order.
	AddVote(ctx context.Context, matchID, voterID, nomineeID int64) (*models.Match, error)

	// Settle flips active -> completed, sets the winner, credits the
	// prize and bumps win/loss counters as one unit. Returns false
	// without side effects when the match is no longer active.
	Settle(ctx context.Context, matchID, winnerID, prize int64, description string) (bool, error)

	// Cancel flips active -> cancelled; terminal.
	Cancel(ctx context.Context, matchID int64) error

	CountByStatus(ctx context.Context, status models.MatchStatus) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}
