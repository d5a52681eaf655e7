package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the schema. Statements are idempotent so the server
// can run them on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			discord_id TEXT UNIQUE NOT NULL,
			username TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
			wins BIGINT NOT NULL DEFAULT 0,
			losses BIGINT NOT NULL DEFAULT 0,
			matches_played BIGINT NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'user',
			is_banned BOOLEAN NOT NULL DEFAULT FALSE,
			ban_expires TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_login TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS friends (
			user_id BIGINT NOT NULL REFERENCES users(id),
			friend_id BIGINT NOT NULL REFERENCES users(id),
			PRIMARY KEY (user_id, friend_id)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			entry_fee BIGINT NOT NULL,
			max_players INT NOT NULL,
			prize_pool BIGINT NOT NULL,
			is_tournament BOOLEAN NOT NULL DEFAULT FALSE,
			creator_id BIGINT NOT NULL REFERENCES users(id),
			winner_id BIGINT REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'active'
				CHECK (status IN ('active', 'completed', 'cancelled')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id BIGINT NOT NULL REFERENCES matches(id),
			user_id BIGINT NOT NULL REFERENCES users(id),
			joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (match_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_votes (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id),
			voter_id BIGINT NOT NULL REFERENCES users(id),
			winner_id BIGINT NOT NULL REFERENCES users(id),
			voted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (match_id, voter_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id),
			reporter_id BIGINT NOT NULL REFERENCES users(id),
			accused_id BIGINT NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'resolved', 'dismissed')),
			evidence TEXT NOT NULL DEFAULT '',
			resolved_at TIMESTAMPTZ,
			resolved_by BIGINT REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS bans (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			reason TEXT NOT NULL,
			expires TIMESTAMPTZ,
			admin_id BIGINT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS creator_codes (
			id BIGSERIAL PRIMARY KEY,
			code TEXT UNIQUE NOT NULL,
			creator_id BIGINT NOT NULL REFERENCES users(id),
			uses BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL CHECK (type IN (
				'coin_purchase', 'match_entry', 'match_refund', 'match_prize',
				'creator_bonus', 'discord_transfer', 'withdrawal')),
			amount BIGINT NOT NULL CHECK (amount > 0),
			from_user_id BIGINT REFERENCES users(id),
			to_user_id BIGINT REFERENCES users(id),
			fee BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_match ON reports(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_user ON match_players(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
