package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// WithdrawalFeePercent is the platform cut on withdrawals.
const WithdrawalFeePercent = 3

type WithdrawalResult struct {
	NetAmount int64 `json:"amount"`
	Fee       int64 `json:"fee"`
}

type WithdrawService interface {
	// Withdraw debits the full gross amount and returns the net payable
	// externally. The fee is retained as platform revenue and recorded
	// on the transaction row.
	Withdraw(ctx context.Context, caller models.Caller, amount int64) (*WithdrawalResult, error)
}

type withdrawService struct {
	ledger LedgerService
}

func NewWithdrawService(ledger LedgerService) *withdrawService {
	return &withdrawService{ledger: ledger}
}

func (s *withdrawService) Withdraw(ctx context.Context, caller models.Caller, amount int64) (*WithdrawalResult, error) {
	tracer := otel.Tracer("withdraw-service")
	ctx, span := tracer.Start(ctx, "Withdraw")
	span.SetAttributes(attribute.Int64("amount", amount))
	defer span.End()

	if amount <= 0 {
		return nil, pkgerrors.ErrInvalidAmount
	}

	fee := amount * WithdrawalFeePercent / 100
	net := amount - fee

	tx, err := s.ledger.Debit(ctx, caller.UserID, amount, fee, models.TypeWithdrawal,
		fmt.Sprintf("Withdrawal of %d coins (%d%% fee: %d)", amount, WithdrawalFeePercent, fee))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.Info("withdrawal processed",
		"user_id", caller.UserID,
		"gross", amount,
		"fee", fee,
		"net", net,
		"transaction_id", tx.ID)
	return &WithdrawalResult{NetAmount: net, Fee: fee}, nil
}
