package repository

import (
	"context"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
)

type UserRepository interface {
	// Upsert creates the user on first login and refreshes
	// username/avatar/last_login on every later one.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	AddFriend(ctx context.Context, userID, friendID int64) error
	RemoveFriend(ctx context.Context, userID, friendID int64) error
	AreFriends(ctx context.Context, userID, friendID int64) (bool, error)
	Friends(ctx context.Context, userID int64) ([]models.User, error)

	SetBanState(ctx context.Context, userID int64, banned bool, expires *time.Time) error

	TopByCoins(ctx context.Context, limit int) ([]models.User, error)
	TopByWins(ctx context.Context, limit int) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	TotalCoins(ctx context.Context) (int64, error)
}
