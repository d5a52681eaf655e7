package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/lib/pq"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, discord_id, username, avatar, coins, wins, losses,
	matches_played, role, is_banned, ban_expires, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.DiscordID,
		&user.Username,
		&user.Avatar,
		&user.Coins,
		&user.Wins,
		&user.Losses,
		&user.MatchesPlayed,
		&user.Role,
		&user.IsBanned,
		&user.BanExpires,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) Upsert(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("%w: user is nil", pkgerrors.ErrInvalidParameters)
	}
	if user.DiscordID == "" || user.Username == "" {
		return fmt.Errorf("%w: discord id and username are required", pkgerrors.ErrInvalidParameters)
	}

	query := `
		INSERT INTO users (discord_id, username, avatar, last_login)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (discord_id) DO UPDATE
		SET username = EXCLUDED.username,
		    avatar = EXCLUDED.avatar,
		    last_login = now()
		RETURNING ` + userColumns
	stored, err := scanUser(r.db.QueryRowContext(ctx, query, user.DiscordID, user.Username, user.Avatar))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	*user = *stored
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE discord_id = $1`, discordID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by discord id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", pkgerrors.ErrInvalidParameters)
	}
	// Display names are not uniquely constrained; take the earliest.
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY id LIMIT 1`, username))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) AddFriend(ctx context.Context, userID, friendID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friends (user_id, friend_id) VALUES ($1, $2)`, userID, friendID)
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return pkgerrors.ErrAlreadyFriends
		case "23503":
			return pkgerrors.ErrUserNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) RemoveFriend(ctx context.Context, userID, friendID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM friends WHERE user_id = $1 AND friend_id = $2`, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrNotFriends
	}
	return nil
}

func (r *PostgresUserRepository) AreFriends(ctx context.Context, userID, friendID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = $1 AND friend_id = $2)`,
		userID, friendID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

func (r *PostgresUserRepository) Friends(ctx context.Context, userID int64) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN friends f ON f.friend_id = u.id
		WHERE f.user_id = $1
		ORDER BY u.username
	`
	return r.queryUsers(ctx, query, userID)
}

func (r *PostgresUserRepository) SetBanState(ctx context.Context, userID int64, banned bool, expires *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_banned = $1, ban_expires = $2 WHERE id = $3`,
		banned, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to set ban state: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set ban state: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) TopByCoins(ctx context.Context, limit int) ([]models.User, error) {
	return r.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY coins DESC, id LIMIT $1`, limit)
}

func (r *PostgresUserRepository) TopByWins(ctx context.Context, limit int) ([]models.User, error) {
	return r.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY wins DESC, id LIMIT $1`, limit)
}

func (r *PostgresUserRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepository) TotalCoins(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(coins), 0) FROM users`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum coins: %w", err)
	}
	return total, nil
}

func (r *PostgresUserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}
