package repository

import (
	"context"

	"github.com/CeoSolace/stealth-bte/internal/models"
)

type BanRepository interface {
	Create(ctx context.Context, ban *models.Ban) error
	// ActiveBan returns the most recent ban still in force, or nil.
	ActiveBan(ctx context.Context, userID int64) (*models.Ban, error)
	// ExpireActive sets the expiry of every active ban for the user to
	// now, ending them.
	ExpireActive(ctx context.Context, userID int64) error
	List(ctx context.Context, limit int) ([]models.Ban, error)
}
