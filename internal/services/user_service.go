package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
	"github.com/CeoSolace/stealth-bte/internal/repository"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

type PlatformStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalCoins    int64 `json:"totalCoins"`
	ActiveMatches int64 `json:"activeMatches"`
	TotalMatches  int64 `json:"totalMatches"`
}

type UserService interface {
	// EnsureUser upserts the identity record on login callback.
	EnsureUser(ctx context.Context, discordID, username, avatar string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)

	AddFriend(ctx context.Context, caller models.Caller, friendUsername string) error
	RemoveFriend(ctx context.Context, caller models.Caller, friendID int64) error
	Friends(ctx context.Context, userID int64) ([]models.User, error)

	// IsBanned resolves the effective ban: the stored flag or any ban
	// record that has not yet expired.
	IsBanned(ctx context.Context, userID int64) (bool, error)

	Richest(ctx context.Context, limit int) ([]models.User, error)
	MostWins(ctx context.Context, limit int) ([]models.User, error)
	Stats(ctx context.Context) (*PlatformStats, error)
}

type userService struct {
	userRepo  repository.UserRepository
	banRepo   repository.BanRepository
	matchRepo repository.MatchRepository
}

func NewUserService(
	userRepo repository.UserRepository,
	banRepo repository.BanRepository,
	matchRepo repository.MatchRepository,
) *userService {
	return &userService{
		userRepo:  userRepo,
		banRepo:   banRepo,
		matchRepo: matchRepo,
	}
}

func (s *userService) EnsureUser(ctx context.Context, discordID, username, avatar string) (*models.User, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "EnsureUser")
	defer span.End()

	if discordID == "" || username == "" {
		span.SetStatus(codes.Error, "missing identity fields")
		return nil, pkgerrors.ErrInvalidParameters
	}

	user := &models.User{
		DiscordID: discordID,
		Username:  username,
		Avatar:    avatar,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		span.RecordError(err)
		slog.Error("failed to upsert user", "discord_id", discordID, "error", err)
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	return s.userRepo.GetByDiscordID(ctx, discordID)
}

func (s *userService) AddFriend(ctx context.Context, caller models.Caller, friendUsername string) error {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "AddFriend")
	defer span.End()

	friend, err := s.userRepo.GetByUsername(ctx, friendUsername)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if friend.ID == caller.UserID {
		return pkgerrors.ErrSelfFriend
	}

	// The relation is symmetric. The two directional rows are written
	// sequentially; a failure between them leaves a one-sided relation
	// that the second write path repairs on a later attempt.
	if err := s.userRepo.AddFriend(ctx, caller.UserID, friend.ID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.userRepo.AddFriend(ctx, friend.ID, caller.UserID); err != nil && err != pkgerrors.ErrAlreadyFriends {
		span.RecordError(err)
		slog.Error("failed to write reverse friendship", "user_id", friend.ID, "friend_id", caller.UserID, "error", err)
		return err
	}

	slog.Info("friendship added", "user_id", caller.UserID, "friend_id", friend.ID)
	return nil
}

func (s *userService) RemoveFriend(ctx context.Context, caller models.Caller, friendID int64) error {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "RemoveFriend")
	defer span.End()

	if err := s.userRepo.RemoveFriend(ctx, caller.UserID, friendID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.userRepo.RemoveFriend(ctx, friendID, caller.UserID); err != nil && err != pkgerrors.ErrNotFriends {
		span.RecordError(err)
		slog.Error("failed to remove reverse friendship", "user_id", friendID, "friend_id", caller.UserID, "error", err)
		return err
	}

	slog.Info("friendship removed", "user_id", caller.UserID, "friend_id", friendID)
	return nil
}

func (s *userService) Friends(ctx context.Context, userID int64) ([]models.User, error) {
	return s.userRepo.Friends(ctx, userID)
}

func (s *userService) IsBanned(ctx context.Context, userID int64) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.IsBanned {
		if user.BanExpires == nil || user.BanExpires.After(time.Now()) {
			return true, nil
		}
	}
	ban, err := s.banRepo.ActiveBan(ctx, userID)
	if err != nil {
		return false, err
	}
	return ban != nil, nil
}

func (s *userService) Richest(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.userRepo.TopByCoins(ctx, limit)
}

func (s *userService) MostWins(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.userRepo.TopByWins(ctx, limit)
}

func (s *userService) Stats(ctx context.Context) (*PlatformStats, error) {
	totalUsers, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	totalCoins, err := s.userRepo.TotalCoins(ctx)
	if err != nil {
		return nil, err
	}
	activeMatches, err := s.matchRepo.CountByStatus(ctx, models.MatchActive)
	if err != nil {
		return nil, err
	}
	totalMatches, err := s.matchRepo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		TotalUsers:    totalUsers,
		TotalCoins:    totalCoins,
		ActiveMatches: activeMatches,
		TotalMatches:  totalMatches,
	}, nil
}
