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
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

const matchColumns = `id, title, description, entry_fee, max_players, prize_pool,
	is_tournament, creator_id, winner_id, status, created_at, updated_at`

func scanMatch(row interface{ Scan(...any) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.EntryFee,
		&m.MaxPlayers,
		&m.PrizePool,
		&m.IsTournament,
		&m.CreatorID,
		&m.WinnerID,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresMatchRepository) observe(ctx context.Context, op string, matchID int64, fn func(context.Context) error) (err error) {
	tracer := otel.Tracer("match-repository")
	ctx, span := tracer.Start(ctx, op)
	span.SetAttributes(attribute.Int64("match_id", matchID))
	defer span.End()

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

	err = fn(ctx)
	return err
}

func (r *PostgresMatchRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
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

func (r *PostgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	if match == nil {
		return fmt.Errorf("%w: match is nil", pkgerrors.ErrInvalidParameters)
	}
	return r.observe(ctx, "CreateMatch", 0, func(ctx context.Context) error {
		return r.withTx(ctx, func(dbTx *sql.Tx) error {
			query := `
				INSERT INTO matches (title, description, entry_fee, max_players,
					prize_pool, is_tournament, creator_id, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
				RETURNING id, status, created_at, updated_at
			`
			err := dbTx.QueryRowContext(ctx, query,
				match.Title, match.Description, match.EntryFee, match.MaxPlayers,
				match.PrizePool, match.IsTournament, match.CreatorID,
			).Scan(&match.ID, &match.Status, &match.CreatedAt, &match.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to create match: %w", err)
			}

			var joinedAt time.Time
			err = dbTx.QueryRowContext(ctx,
				`INSERT INTO match_players (match_id, user_id) VALUES ($1, $2) RETURNING joined_at`,
				match.ID, match.CreatorID,
			).Scan(&joinedAt)
			if err != nil {
				return fmt.Errorf("failed to seat creator: %w", err)
			}
			match.Players = []models.Player{{UserID: match.CreatorID, JoinedAt: joinedAt}}
			return nil
		})
	})
}

func (r *PostgresMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	match, err := scanMatch(r.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.Players, err = r.loadPlayers(ctx, r.db, id); err != nil {
		return nil, err
	}
	if match.Votes, err = r.loadVotes(ctx, r.db, id); err != nil {
		return nil, err
	}
	return match, nil
}

func (r *PostgresMatchRepository) ListRecent(ctx context.Context, limit int) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PostgresMatchRepository) loadPlayers(ctx context.Context, q querier, matchID int64) ([]models.Player, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, joined_at FROM match_players WHERE match_id = $1 ORDER BY joined_at, user_id`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.UserID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// loadVotes returns votes ordered by insertion id, which is the
// submission order the settlement tie-break depends on.
func (r *PostgresMatchRepository) loadVotes(ctx context.Context, q querier, matchID int64) ([]models.Vote, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT voter_id, winner_id, voted_at FROM match_votes WHERE match_id = $1 ORDER BY id`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.VoterID, &v.WinnerID, &v.VotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// lockMatch reads the match row FOR UPDATE, serializing joins, votes
// and settlement per match for the rest of the transaction.
func lockMatch(ctx context.Context, dbTx *sql.Tx, matchID int64) (*models.Match, error) {
	match, err := scanMatch(dbTx.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, matchID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	return match, nil
}

func (r *PostgresMatchRepository) Join(ctx context.Context, matchID, userID int64) error {
	return r.observe(ctx, "JoinMatch", matchID, func(ctx context.Context) error {
		return r.withTx(ctx, func(dbTx *sql.Tx) error {
			match, err := lockMatch(ctx, dbTx, matchID)
			if err != nil {
				return err
			}
			if match.Status != models.MatchActive {
				return pkgerrors.ErrMatchNotActive
			}

			var playerCount int
			if err := dbTx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM match_players WHERE match_id = $1`, matchID,
			).Scan(&playerCount); err != nil {
				return fmt.Errorf("failed to count players: %w", err)
			}
			if playerCount >= match.MaxPlayers {
				return pkgerrors.ErrMatchFull
			}

			cost := match.EntryCost()
			if err := debitUserTx(ctx, dbTx, userID, cost); err != nil {
				return err
			}
			entry := &models.Transaction{
				Type:        models.TypeMatchEntry,
				Amount:      cost,
				From:        &userID,
				Description: fmt.Sprintf("Entry fee for match: %s", match.Title),
			}
			if err := insertTransactionTx(ctx, dbTx, entry); err != nil {
				return err
			}

			_, err = dbTx.ExecContext(ctx,
				`INSERT INTO match_players (match_id, user_id) VALUES ($1, $2)`, matchID, userID)
			var pqErr *pq.Error
			if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
				return pkgerrors.ErrAlreadyJoined
			}
			if err != nil {
				return fmt.Errorf("failed to add player: %w", err)
			}
			return nil
		})
	})
}

func (r *PostgresMatchRepository) AddVote(ctx context.Context, matchID, voterID, nomineeID int64) (*models.Match, error) {
	var out *models.Match
	err := r.observe(ctx, "AddVote", matchID, func(ctx context.Context) error {
		return r.withTx(ctx, func(dbTx *sql.Tx) error {
			match, err := lockMatch(ctx, dbTx, matchID)
			if err != nil {
				return err
			}
			if match.Status != models.MatchActive {
				return pkgerrors.ErrMatchNotVotable
			}

			if match.Players, err = r.loadPlayers(ctx, dbTx, matchID); err != nil {
				return err
			}
			if !match.HasPlayer(voterID) {
				return pkgerrors.ErrNotAParticipant
			}
			if !match.HasPlayer(nomineeID) {
				return pkgerrors.ErrInvalidNominee
			}

			var votedAt time.Time
			err = dbTx.QueryRowContext(ctx,
				`INSERT INTO match_votes (match_id, voter_id, winner_id) VALUES ($1, $2, $3) RETURNING voted_at`,
				matchID, voterID, nomineeID,
			).Scan(&votedAt)
			var pqErr *pq.Error
			if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
				return pkgerrors.ErrAlreadyVoted
			}
			if err != nil {
				return fmt.Errorf("failed to add vote: %w", err)
			}

			if match.Votes, err = r.loadVotes(ctx, dbTx, matchID); err != nil {
				return err
			}
			out = match
			return nil
		})
	})
	return out, err
}

func (r *PostgresMatchRepository) Settle(ctx context.Context, matchID, winnerID, prize int64, description string) (bool, error) {
	settled := false
	err := r.observe(ctx, "SettleMatch", matchID, func(ctx context.Context) error {
		return r.withTx(ctx, func(dbTx *sql.Tx) error {
			// Status guard makes settlement at-most-once: the loser of a
			// race sees zero rows and walks away without crediting.
			res, err := dbTx.ExecContext(ctx, `
				UPDATE matches
				SET status = 'completed', winner_id = $1, updated_at = now()
				WHERE id = $2 AND status = 'active'
			`, winnerID, matchID)
			if err != nil {
				return fmt.Errorf("failed to complete match: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to complete match: %w", err)
			}
			if rows == 0 {
				return nil
			}

			if err := creditUserTx(ctx, dbTx, winnerID, prize); err != nil {
				return err
			}
			prizeTx := &models.Transaction{
				Type:        models.TypeMatchPrize,
				Amount:      prize,
				To:          &winnerID,
				Description: description,
			}
			if err := insertTransactionTx(ctx, dbTx, prizeTx); err != nil {
				return err
			}

			if _, err := dbTx.ExecContext(ctx, `
				UPDATE users
				SET matches_played = matches_played + 1,
				    wins = wins + CASE WHEN id = $1 THEN 1 ELSE 0 END,
				    losses = losses + CASE WHEN id = $1 THEN 0 ELSE 1 END
				WHERE id IN (SELECT user_id FROM match_players WHERE match_id = $2)
			`, winnerID, matchID); err != nil {
				return fmt.Errorf("failed to update player records: %w", err)
			}

			settled = true
			return nil
		})
	})
	return settled, err
}

func (r *PostgresMatchRepository) Cancel(ctx context.Context, matchID int64) error {
	return r.observe(ctx, "CancelMatch", matchID, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE matches SET status = 'cancelled', updated_at = now()
			WHERE id = $1 AND status = 'active'
		`, matchID)
		if err != nil {
			return fmt.Errorf("failed to cancel match: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to cancel match: %w", err)
		}
		if rows == 0 {
			var exists bool
			if probeErr := r.db.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, matchID,
			).Scan(&exists); probeErr != nil {
				return fmt.Errorf("failed to probe match: %w", probeErr)
			}
			if !exists {
				return pkgerrors.ErrMatchNotFound
			}
			return pkgerrors.ErrMatchNotActive
		}
		return nil
	})
}

func (r *PostgresMatchRepository) CountByStatus(ctx context.Context, status models.MatchStatus) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

func (r *PostgresMatchRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}
