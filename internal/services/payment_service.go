package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/infrastructure/redis"
	"github.com/CeoSolace/stealth-bte/internal/models"
	"github.com/CeoSolace/stealth-bte/internal/repository"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// creatorBonusPercent of the purchased coins goes to the code owner.
const creatorBonusPercent = 5

// PaymentService is the inbound boundary for the external payment
// collaborator. It never talks to the payment provider; it only turns
// confirmed purchases into ledger credits.
type PaymentService interface {
	Confirm(ctx context.Context, discordID string, coins int64, creatorCode, requestID string) error

	// Creator code administration.
	CreateCreatorCode(ctx context.Context, caller models.Caller, code string, creatorID int64) (*models.CreatorCode, error)
	ListCreatorCodes(ctx context.Context, caller models.Caller) ([]models.CreatorCode, error)
}

type paymentService struct {
	userRepo    repository.UserRepository
	codeRepo    repository.CreatorCodeRepository
	ledger      LedgerService
	redisClient redis.RedisClient
}

func NewPaymentService(
	userRepo repository.UserRepository,
	codeRepo repository.CreatorCodeRepository,
	ledger LedgerService,
	redisClient redis.RedisClient,
) *paymentService {
	return &paymentService{
		userRepo:    userRepo,
		codeRepo:    codeRepo,
		ledger:      ledger,
		redisClient: redisClient,
	}
}

func (s *paymentService) Confirm(ctx context.Context, discordID string, coins int64, creatorCode, requestID string) error {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ConfirmPurchase")
	defer span.End()

	if discordID == "" || requestID == "" {
		span.SetStatus(codes.Error, "missing fields")
		return pkgerrors.ErrInvalidParameters
	}
	if coins <= 0 {
		return pkgerrors.ErrInvalidAmount
	}

	// Payment providers redeliver confirmations; the request key makes
	// the credit land once.
	requestKey := fmt.Sprintf("request:%s", requestID)
	ok, err := s.redisClient.SetNX(ctx, requestKey, "processed", 24*time.Hour)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to set request key", "request_id", requestID, "error", err)
		return err
	}
	if !ok {
		slog.Warn("purchase already processed", "request_id", requestID, "discord_id", discordID)
		span.SetStatus(codes.Error, "request already processed")
		return pkgerrors.ErrRequestAlreadyProcessed
	}

	user, err := s.userRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		s.redisClient.Del(ctx, requestKey)
		span.RecordError(err)
		return err
	}

	if _, err := s.ledger.Credit(ctx, user.ID, coins, models.TypeCoinPurchase,
		fmt.Sprintf("Purchase of %d coins", coins)); err != nil {
		s.redisClient.Del(ctx, requestKey)
		span.RecordError(err)
		return err
	}

	if creatorCode != "" {
		s.applyCreatorBonus(ctx, creatorCode, user, coins)
	}

	slog.Info("purchase credited", "user_id", user.ID, "coins", coins, "request_id", requestID)
	return nil
}

// applyCreatorBonus pays the code owner. A bad code never blocks the
// purchase credit, which has already landed.
func (s *paymentService) applyCreatorBonus(ctx context.Context, code string, buyer *models.User, coins int64) {
	cc, err := s.codeRepo.GetByCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrCodeNotFound) {
			slog.Warn("unknown creator code on purchase", "code", code, "user_id", buyer.ID)
		} else {
			slog.Error("failed to look up creator code", "code", code, "error", err)
		}
		return
	}

	bonus := coins * creatorBonusPercent / 100
	if bonus < 1 {
		bonus = 1
	}
	if _, err := s.ledger.Credit(ctx, cc.CreatorID, bonus, models.TypeCreatorBonus,
		fmt.Sprintf("Creator bonus for code %s (purchase by %s)", cc.Code, buyer.Username)); err != nil {
		slog.Error("failed to credit creator bonus", "code", code, "creator_id", cc.CreatorID, "error", err)
		return
	}
	if err := s.codeRepo.IncrementUses(ctx, code); err != nil {
		slog.Error("failed to increment code uses", "code", code, "error", err)
	}

	slog.Info("creator bonus credited", "code", code, "creator_id", cc.CreatorID, "bonus", bonus)
}

func (s *paymentService) CreateCreatorCode(ctx context.Context, caller models.Caller, code string, creatorID int64) (*models.CreatorCode, error) {
	if !caller.IsAdmin() {
		return nil, pkgerrors.ErrForbidden
	}
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", pkgerrors.ErrInvalidParameters)
	}
	if _, err := s.userRepo.GetByID(ctx, creatorID); err != nil {
		return nil, err
	}

	cc := &models.CreatorCode{Code: code, CreatorID: creatorID}
	if err := s.codeRepo.Create(ctx, cc); err != nil {
		return nil, err
	}
	slog.Info("creator code created", "code", code, "creator_id", creatorID, "admin_id", caller.UserID)
	return cc, nil
}

func (s *paymentService) ListCreatorCodes(ctx context.Context, caller models.Caller) ([]models.CreatorCode, error) {
	if !caller.IsAdmin() {
		return nil, pkgerrors.ErrForbidden
	}
	return s.codeRepo.List(ctx)
}
