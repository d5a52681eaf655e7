package service

import (
	"context"
	"testing"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerServiceForTest(balances map[int64]int64) (*ledgerService, *fakeLedgerRepo, *fakeUserRepo, *fakeRedis, *fakeProducer) {
	ledgerRepo := newFakeLedgerRepo(balances)
	userRepo := newFakeUserRepo(
		&models.User{ID: 1, DiscordID: "d1", Username: "alpha", Coins: balances[1]},
		&models.User{ID: 2, DiscordID: "d2", Username: "bravo", Coins: balances[2]},
	)
	redisClient := newFakeRedis()
	producer := &fakeProducer{}
	svc := NewLedgerService(ledgerRepo, userRepo, redisClient, producer)
	return svc, ledgerRepo, userRepo, redisClient, producer
}

func TestLedgerService_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidAmount", func(t *testing.T) {
		svc, _, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100})
		_, err := svc.Debit(ctx, 1, 0, 0, models.TypeWithdrawal, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
		_, err = svc.Debit(ctx, 1, -5, 0, models.TypeWithdrawal, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
	})

	t.Run("InvalidFee", func(t *testing.T) {
		svc, _, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100})
		_, err := svc.Debit(ctx, 1, 10, -1, models.TypeWithdrawal, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
		_, err = svc.Debit(ctx, 1, 10, 11, models.TypeWithdrawal, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
	})

	t.Run("UnknownType", func(t *testing.T) {
		svc, _, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100})
		_, err := svc.Debit(ctx, 1, 10, 0, models.TransactionType("gift"), "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		svc, repo, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 5})
		_, err := svc.Debit(ctx, 1, 10, 0, models.TypeWithdrawal, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.Equal(t, int64(5), repo.Balances[1])
	})

	t.Run("SuccessPublishesAndInvalidatesCache", func(t *testing.T) {
		svc, repo, _, redisClient, producer := newLedgerServiceForTest(map[int64]int64{1: 100})
		redisClient.Store[balanceKey(1)] = "100"

		tx, err := svc.Debit(ctx, 1, 30, 0, models.TypeWithdrawal, "Withdrawal")
		require.NoError(t, err)
		assert.Equal(t, int64(70), repo.Balances[1])
		assert.Equal(t, int64(30), tx.Amount)
		assert.NotContains(t, redisClient.Store, balanceKey(1))
		assert.NotEmpty(t, producer.Sent)
	})

	t.Run("FeeLandsOnTheRecord", func(t *testing.T) {
		svc, repo, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100})
		tx, err := svc.Debit(ctx, 1, 100, 3, models.TypeWithdrawal, "Withdrawal")
		require.NoError(t, err)
		assert.Equal(t, int64(3), tx.Fee)
		require.Len(t, repo.Transactions, 1)
		assert.Equal(t, int64(3), repo.Transactions[0].Fee)
	})
}

// Every transaction type belongs to exactly one primitive; the wrong
// primitive refuses it so the audit log stays classifiable by type.
func TestLedgerService_ShapePerType(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100, 2: 100})

	_, err := svc.Credit(ctx, 1, 10, models.TypeMatchEntry, "x")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	_, err = svc.Credit(ctx, 1, 10, models.TypeWithdrawal, "x")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	_, err = svc.Debit(ctx, 1, 10, 0, models.TypeMatchPrize, "x")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	_, err = svc.Debit(ctx, 1, 10, 0, models.TypeMatchRefund, "x")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	_, err = svc.Transfer(ctx, 1, 2, 10, models.TypeCoinPurchase, "x")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)

	assert.Empty(t, repo.Transactions)
	assert.Equal(t, int64(100), repo.Balances[1])
	assert.Equal(t, int64(100), repo.Balances[2])
}

func TestLedgerService_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("SelfTransfer", func(t *testing.T) {
		svc, _, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100})
		_, err := svc.Transfer(ctx, 1, 1, 10, models.TypeDiscordTransfer, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidParameters)
	})

	t.Run("Success", func(t *testing.T) {
		svc, repo, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 100, 2: 0})
		tx, err := svc.Transfer(ctx, 1, 2, 40, models.TypeDiscordTransfer, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(60), repo.Balances[1])
		assert.Equal(t, int64(40), repo.Balances[2])
		assert.Equal(t, int64(1), *tx.From)
		assert.Equal(t, int64(2), *tx.To)
	})

	t.Run("DebitFailureMovesNothing", func(t *testing.T) {
		svc, repo, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 10, 2: 0})
		_, err := svc.Transfer(ctx, 1, 2, 40, models.TypeDiscordTransfer, "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.Equal(t, int64(10), repo.Balances[1])
		assert.Equal(t, int64(0), repo.Balances[2])
	})
}

func TestLedgerService_Balance(t *testing.T) {
	ctx := context.Background()

	t.Run("CacheMissReadsStoreAndCaches", func(t *testing.T) {
		svc, _, _, redisClient, _ := newLedgerServiceForTest(map[int64]int64{1: 250})
		balance, err := svc.Balance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(250), balance)
		assert.Contains(t, redisClient.Store, balanceKey(1))
	})

	t.Run("CacheHitSkipsStore", func(t *testing.T) {
		svc, _, userRepo, redisClient, _ := newLedgerServiceForTest(map[int64]int64{1: 250})
		redisClient.Store[balanceKey(1)] = "777"
		delete(userRepo.Users, 1)

		balance, err := svc.Balance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(777), balance)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		svc, _, _, _, _ := newLedgerServiceForTest(map[int64]int64{})
		_, err := svc.Balance(ctx, 404)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	})

	t.Run("InvalidateDropsCachedValue", func(t *testing.T) {
		svc, _, _, redisClient, _ := newLedgerServiceForTest(map[int64]int64{1: 250})
		redisClient.Store[balanceKey(1)] = "777"

		svc.InvalidateBalance(ctx, 1)
		assert.NotContains(t, redisClient.Store, balanceKey(1))

		balance, err := svc.Balance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(250), balance)
	})
}

// Coins enter only through purchase credits and leave only through
// withdrawal debits; entry fees sunk minus prizes paid is the pool the
// platform still holds. The sum of balances must account for every
// coin across any sequence of movements.
func TestLedgerService_Conservation(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := newLedgerServiceForTest(map[int64]int64{1: 0, 2: 0})

	var purchased, entriesSunk, prizesPaid, withdrawnGross int64

	checkSum := func() {
		t.Helper()
		total := repo.Balances[1] + repo.Balances[2]
		assert.Equal(t, purchased-(entriesSunk-prizesPaid)-withdrawnGross, total)
	}

	_, err := svc.Credit(ctx, 1, 1000, models.TypeCoinPurchase, "Purchase")
	require.NoError(t, err)
	purchased += 1000
	checkSum()

	_, err = svc.Credit(ctx, 2, 400, models.TypeCoinPurchase, "Purchase")
	require.NoError(t, err)
	purchased += 400
	checkSum()

	_, err = svc.Debit(ctx, 1, 10, 0, models.TypeMatchEntry, "Entry fee for match: Clash")
	require.NoError(t, err)
	entriesSunk += 10
	checkSum()

	_, err = svc.Debit(ctx, 2, 10, 0, models.TypeMatchEntry, "Entry fee for match: Clash")
	require.NoError(t, err)
	entriesSunk += 10
	checkSum()

	_, err = svc.Credit(ctx, 1, 20, models.TypeMatchPrize, "Prize from match: Clash")
	require.NoError(t, err)
	prizesPaid += 20
	checkSum()

	// Transfers move coins between users without creating or destroying any.
	_, err = svc.Transfer(ctx, 1, 2, 50, models.TypeDiscordTransfer, "Transfer")
	require.NoError(t, err)
	checkSum()

	_, err = svc.Debit(ctx, 2, 100, 3, models.TypeWithdrawal, "Withdrawal")
	require.NoError(t, err)
	withdrawnGross += 100
	checkSum()

	assert.Equal(t, int64(960), repo.Balances[1])
	assert.Equal(t, int64(340), repo.Balances[2])

	// The audit log must classify by type alone: every row's From/To
	// layout matches its type's shape.
	require.Len(t, repo.Transactions, 7)
	for _, tx := range repo.Transactions {
		shape, ok := tx.Type.Shape()
		require.True(t, ok, "type %q has no shape", tx.Type)
		switch shape {
		case models.ShapeDebit:
			assert.NotNil(t, tx.From, "debit %q missing from", tx.Type)
			assert.Nil(t, tx.To, "debit %q carries a to", tx.Type)
		case models.ShapeCredit:
			assert.Nil(t, tx.From, "credit %q carries a from", tx.Type)
			assert.NotNil(t, tx.To, "credit %q missing to", tx.Type)
		case models.ShapeTransfer:
			assert.NotNil(t, tx.From, "transfer missing from")
			assert.NotNil(t, tx.To, "transfer missing to")
		}
	}
}
