package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/infrastructure/kafka"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/observability"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/redis"
	"github.com/CeoSolace/stealth-bte/internal/models"
	"github.com/CeoSolace/stealth-bte/internal/repository"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// LedgerService is the sole mover of coins. Every balance change goes
// through Debit, Credit or Transfer and leaves exactly one transaction
// record behind.
type LedgerService interface {
	Debit(ctx context.Context, userID, amount, fee int64, txType models.TransactionType, description string) (*models.Transaction, error)
	Credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.Transaction, error)
	Transfer(ctx context.Context, fromID, toID, amount int64, txType models.TransactionType, description string) (*models.Transaction, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	// InvalidateBalance drops cached balances for users whose coins were
	// moved outside the Debit/Credit/Transfer primitives, such as match
	// entry and prize movements applied inside a repository transaction.
	InvalidateBalance(ctx context.Context, userIDs ...int64)
	History(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	Recent(ctx context.Context, limit int) ([]models.Transaction, error)
}

type ledgerService struct {
	ledgerRepo  repository.LedgerRepository
	userRepo    repository.UserRepository
	redisClient redis.RedisClient
	producer    kafka.KafkaProducer
}

func NewLedgerService(
	ledgerRepo repository.LedgerRepository,
	userRepo repository.UserRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
) *ledgerService {
	return &ledgerService{
		ledgerRepo:  ledgerRepo,
		userRepo:    userRepo,
		redisClient: redisClient,
		producer:    producer,
	}
}

func validateMovement(amount int64, txType models.TransactionType, shape models.MovementShape) error {
	if amount <= 0 {
		return pkgerrors.ErrInvalidAmount
	}
	typeShape, ok := txType.Shape()
	if !ok {
		return fmt.Errorf("%w: unknown transaction type %q", pkgerrors.ErrInvalidParameters, txType)
	}
	if typeShape != shape {
		return fmt.Errorf("%w: %q entries are %s-shaped, cannot record as a %s",
			pkgerrors.ErrInvalidParameters, txType, typeShape, shape)
	}
	return nil
}

func (s *ledgerService) Debit(ctx context.Context, userID, amount, fee int64, txType models.TransactionType, description string) (*models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "Debit")
	defer span.End()

	if err := validateMovement(amount, txType, models.ShapeDebit); err != nil {
		span.SetStatus(codes.Error, "invalid movement")
		return nil, err
	}
	if fee < 0 || fee > amount {
		span.SetStatus(codes.Error, "invalid movement")
		return nil, pkgerrors.ErrInvalidAmount
	}

	tx := &models.Transaction{
		Type:        txType,
		Amount:      amount,
		From:        &userID,
		Fee:         fee,
		Description: description,
	}
	if err := s.ledgerRepo.Debit(ctx, tx); err != nil {
		span.RecordError(err)
		slog.Error("debit failed", "user_id", userID, "amount", amount, "type", txType, "error", err)
		return nil, err
	}

	s.afterMovement(ctx, tx)
	slog.Info("debit applied", "user_id", userID, "amount", amount, "type", txType, "transaction_id", tx.ID)
	return tx, nil
}

func (s *ledgerService) Credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "Credit")
	defer span.End()

	if err := validateMovement(amount, txType, models.ShapeCredit); err != nil {
		span.SetStatus(codes.Error, "invalid movement")
		return nil, err
	}

	tx := &models.Transaction{
		Type:        txType,
		Amount:      amount,
		To:          &userID,
		Description: description,
	}
	if err := s.ledgerRepo.Credit(ctx, tx); err != nil {
		span.RecordError(err)
		slog.Error("credit failed", "user_id", userID, "amount", amount, "type", txType, "error", err)
		return nil, err
	}

	s.afterMovement(ctx, tx)
	slog.Info("credit applied", "user_id", userID, "amount", amount, "type", txType, "transaction_id", tx.ID)
	return tx, nil
}

func (s *ledgerService) Transfer(ctx context.Context, fromID, toID, amount int64, txType models.TransactionType, description string) (*models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "Transfer")
	defer span.End()

	if err := validateMovement(amount, txType, models.ShapeTransfer); err != nil {
		span.SetStatus(codes.Error, "invalid movement")
		return nil, err
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", pkgerrors.ErrInvalidParameters)
	}

	tx := &models.Transaction{
		Type:        txType,
		Amount:      amount,
		From:        &fromID,
		To:          &toID,
		Description: description,
	}
	if err := s.ledgerRepo.Transfer(ctx, tx); err != nil {
		span.RecordError(err)
		slog.Error("transfer failed", "from_user_id", fromID, "to_user_id", toID, "amount", amount, "error", err)
		return nil, err
	}

	s.afterMovement(ctx, tx)
	slog.Info("transfer applied", "from_user_id", fromID, "to_user_id", toID, "amount", amount, "transaction_id", tx.ID)
	return tx, nil
}

// afterMovement drops stale balance cache entries, counts the volume
// and publishes the transaction to the outbound event stream.
func (s *ledgerService) afterMovement(ctx context.Context, tx *models.Transaction) {
	observability.LedgerVolume.WithLabelValues(string(tx.Type)).Add(float64(tx.Amount))

	for _, id := range []*int64{tx.From, tx.To} {
		if id != nil {
			s.InvalidateBalance(ctx, *id)
		}
	}

	eventBytes, err := json.Marshal(tx)
	if err != nil {
		slog.Error("failed to marshal transaction event", "transaction_id", tx.ID, "error", err)
		return
	}
	if err := s.producer.Send(ctx, kafka.TopicEvents, tx.ID, eventBytes); err != nil {
		slog.Error("failed to publish transaction event", "transaction_id", tx.ID, "error", err)
	}
}

func balanceKey(userID int64) string {
	return fmt.Sprintf("user:%d:balance", userID)
}

func (s *ledgerService) InvalidateBalance(ctx context.Context, userIDs ...int64) {
	for _, id := range userIDs {
		if err := s.redisClient.Del(ctx, balanceKey(id)); err != nil {
			slog.Error("failed to invalidate balance cache", "user_id", id, "error", err)
		}
	}
}

func (s *ledgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "Balance")
	defer span.End()

	key := balanceKey(userID)
	if cached, err := s.redisClient.Get(ctx, key); err == nil {
		var balance int64
		if err := json.Unmarshal([]byte(cached), &balance); err == nil {
			return balance, nil
		}
		slog.Error("failed to unmarshal cached balance", "user_id", userID, "error", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	if err := s.redisClient.Set(ctx, key, user.Coins, 5*time.Minute); err != nil {
		slog.Error("failed to cache balance", "user_id", userID, "error", err)
	}
	return user.Coins, nil
}

func (s *ledgerService) History(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.ledgerRepo.HistoryForUser(ctx, userID, limit)
}

func (s *ledgerService) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.ledgerRepo.ListRecent(ctx, limit)
}
