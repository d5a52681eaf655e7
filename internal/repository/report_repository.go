package repository

import (
	"context"

	"github.com/CeoSolace/stealth-bte/internal/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, limit int) ([]models.Report, error)
	// Resolve marks the report resolved or dismissed with the acting
	// admin recorded.
	Resolve(ctx context.Context, id int64, status models.ReportStatus, adminID int64) error

	// ExistsBetween reports whether any report links the two users, in
	// either direction, inside a match they both played. Report status
	// is deliberately ignored: a dismissed report still blocks.
	ExistsBetween(ctx context.Context, userA, userB int64) (bool, error)
}
