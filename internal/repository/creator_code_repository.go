package repository

import (
	"context"

	"github.com/CeoSolace/stealth-bte/internal/models"
)

type CreatorCodeRepository interface {
	Create(ctx context.Context, code *models.CreatorCode) error
	GetByCode(ctx context.Context, code string) (*models.CreatorCode, error)
	IncrementUses(ctx context.Context, code string) error
	List(ctx context.Context) ([]models.CreatorCode, error)
}
