package service

import (
	"context"
	"fmt"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
)

// In-memory fakes for the collaborator interfaces. Each one records
// enough call state for assertions and fails only where a test tells
// it to.

type movement struct {
	UserID int64
	FromID int64
	ToID   int64
	Amount int64
	Fee    int64
	Type   models.TransactionType
}

type fakeLedger struct {
	Debits      []movement
	Credits     []movement
	Transfers   []movement
	Invalidated []int64

	DebitErr    error
	CreditErr   error
	TransferErr error
}

func (f *fakeLedger) Debit(ctx context.Context, userID, amount, fee int64, txType models.TransactionType, description string) (*models.Transaction, error) {
	if f.DebitErr != nil {
		return nil, f.DebitErr
	}
	f.Debits = append(f.Debits, movement{UserID: userID, Amount: amount, Fee: fee, Type: txType})
	return &models.Transaction{ID: int64(len(f.Debits)), Type: txType, Amount: amount, From: &userID, Fee: fee, Description: description}, nil
}

func (f *fakeLedger) Credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.Transaction, error) {
	if f.CreditErr != nil {
		return nil, f.CreditErr
	}
	f.Credits = append(f.Credits, movement{UserID: userID, Amount: amount, Type: txType})
	return &models.Transaction{ID: int64(len(f.Credits)), Type: txType, Amount: amount, To: &userID, Description: description}, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, fromID, toID, amount int64, txType models.TransactionType, description string) (*models.Transaction, error) {
	if f.TransferErr != nil {
		return nil, f.TransferErr
	}
	f.Transfers = append(f.Transfers, movement{FromID: fromID, ToID: toID, Amount: amount, Type: txType})
	return &models.Transaction{ID: int64(len(f.Transfers)), Type: txType, Amount: amount, From: &fromID, To: &toID}, nil
}

func (f *fakeLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (f *fakeLedger) InvalidateBalance(ctx context.Context, userIDs ...int64) {
	f.Invalidated = append(f.Invalidated, userIDs...)
}

func (f *fakeLedger) History(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	return nil, nil
}

type fakeMatchRepo struct {
	Matches map[int64]*models.Match

	CreateErr  error
	JoinErr    error
	AddVoteErr error

	Joined       []movement
	SettleCalls  int
	SettledPrize int64
	SettleResult bool
	CancelErr    error
	Cancelled    []int64
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{Matches: make(map[int64]*models.Match), SettleResult: true}
}

func (f *fakeMatchRepo) Create(ctx context.Context, match *models.Match) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	match.ID = int64(len(f.Matches) + 1)
	match.Status = models.MatchActive
	match.Players = []models.Player{{UserID: match.CreatorID, JoinedAt: time.Now()}}
	f.Matches[match.ID] = match
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	match, ok := f.Matches[id]
	if !ok {
		return nil, pkgerrors.ErrMatchNotFound
	}
	return match, nil
}

func (f *fakeMatchRepo) ListRecent(ctx context.Context, limit int) ([]models.Match, error) {
	var out []models.Match
	for _, m := range f.Matches {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeMatchRepo) Join(ctx context.Context, matchID, userID int64) error {
	if f.JoinErr != nil {
		return f.JoinErr
	}
	match, ok := f.Matches[matchID]
	if !ok {
		return pkgerrors.ErrMatchNotFound
	}
	match.Players = append(match.Players, models.Player{UserID: userID, JoinedAt: time.Now()})
	f.Joined = append(f.Joined, movement{UserID: userID})
	return nil
}

func (f *fakeMatchRepo) AddVote(ctx context.Context, matchID, voterID, nomineeID int64) (*models.Match, error) {
	if f.AddVoteErr != nil {
		return nil, f.AddVoteErr
	}
	match, ok := f.Matches[matchID]
	if !ok {
		return nil, pkgerrors.ErrMatchNotFound
	}
	if match.Status != models.MatchActive {
		return nil, pkgerrors.ErrMatchNotVotable
	}
	if !match.HasPlayer(voterID) {
		return nil, pkgerrors.ErrNotAParticipant
	}
	if !match.HasPlayer(nomineeID) {
		return nil, pkgerrors.ErrInvalidNominee
	}
	if match.HasVoteFrom(voterID) {
		return nil, pkgerrors.ErrAlreadyVoted
	}
	match.Votes = append(match.Votes, models.Vote{VoterID: voterID, WinnerID: nomineeID, VotedAt: time.Now()})
	return match, nil
}

func (f *fakeMatchRepo) Settle(ctx context.Context, matchID, winnerID, prize int64, description string) (bool, error) {
	f.SettleCalls++
	if !f.SettleResult {
		return false, nil
	}
	match, ok := f.Matches[matchID]
	if !ok {
		return false, pkgerrors.ErrMatchNotFound
	}
	match.Status = models.MatchCompleted
	match.WinnerID = &winnerID
	f.SettledPrize = prize
	return true, nil
}

func (f *fakeMatchRepo) Cancel(ctx context.Context, matchID int64) error {
	if f.CancelErr != nil {
		return f.CancelErr
	}
	f.Cancelled = append(f.Cancelled, matchID)
	return nil
}

func (f *fakeMatchRepo) CountByStatus(ctx context.Context, status models.MatchStatus) (int64, error) {
	return 0, nil
}

func (f *fakeMatchRepo) CountAll(ctx context.Context) (int64, error) {
	return int64(len(f.Matches)), nil
}

type fakeUserRepo struct {
	Users       map[int64]*models.User
	Friendships map[string]bool
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{Users: make(map[int64]*models.User), Friendships: make(map[string]bool)}
	for _, u := range users {
		f.Users[u.ID] = u
	}
	return f
}

func friendKey(a, b int64) string { return fmt.Sprintf("%d:%d", a, b) }

func (f *fakeUserRepo) Upsert(ctx context.Context, user *models.User) error {
	for _, u := range f.Users {
		if u.DiscordID == user.DiscordID {
			user.ID = u.ID
			user.Coins = u.Coins
			f.Users[u.ID] = user
			return nil
		}
	}
	user.ID = int64(len(f.Users) + 1)
	f.Users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := f.Users[id]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	for _, u := range f.Users {
		if u.DiscordID == discordID {
			return u, nil
		}
	}
	return nil, pkgerrors.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pkgerrors.ErrUserNotFound
}

func (f *fakeUserRepo) AddFriend(ctx context.Context, userID, friendID int64) error {
	key := friendKey(userID, friendID)
	if f.Friendships[key] {
		return pkgerrors.ErrAlreadyFriends
	}
	f.Friendships[key] = true
	return nil
}

func (f *fakeUserRepo) RemoveFriend(ctx context.Context, userID, friendID int64) error {
	key := friendKey(userID, friendID)
	if !f.Friendships[key] {
		return pkgerrors.ErrNotFriends
	}
	delete(f.Friendships, key)
	return nil
}

func (f *fakeUserRepo) AreFriends(ctx context.Context, userID, friendID int64) (bool, error) {
	return f.Friendships[friendKey(userID, friendID)], nil
}

func (f *fakeUserRepo) Friends(ctx context.Context, userID int64) ([]models.User, error) {
	var out []models.User
	for key := range f.Friendships {
		var a, b int64
		fmt.Sscanf(key, "%d:%d", &a, &b)
		if a == userID {
			if u, ok := f.Users[b]; ok {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) SetBanState(ctx context.Context, userID int64, banned bool, expires *time.Time) error {
	user, ok := f.Users[userID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	user.IsBanned = banned
	user.BanExpires = expires
	return nil
}

func (f *fakeUserRepo) TopByCoins(ctx context.Context, limit int) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) TopByWins(ctx context.Context, limit int) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(f.Users)), nil
}

func (f *fakeUserRepo) TotalCoins(ctx context.Context) (int64, error) {
	var total int64
	for _, u := range f.Users {
		total += u.Coins
	}
	return total, nil
}

type fakeReportRepo struct {
	Reports []models.Report
	// Blocked pairs feed ExistsBetween, both directions.
	Blocked map[string]bool
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{Blocked: make(map[string]bool)}
}

func (f *fakeReportRepo) block(a, b int64) {
	f.Blocked[friendKey(a, b)] = true
	f.Blocked[friendKey(b, a)] = true
}

func (f *fakeReportRepo) Create(ctx context.Context, report *models.Report) error {
	report.ID = int64(len(f.Reports) + 1)
	report.Status = models.ReportPending
	f.Reports = append(f.Reports, *report)
	f.block(report.ReporterID, report.AccusedID)
	return nil
}

func (f *fakeReportRepo) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	for i := range f.Reports {
		if f.Reports[i].ID == id {
			return &f.Reports[i], nil
		}
	}
	return nil, pkgerrors.ErrReportNotFound
}

func (f *fakeReportRepo) List(ctx context.Context, limit int) ([]models.Report, error) {
	return f.Reports, nil
}

func (f *fakeReportRepo) Resolve(ctx context.Context, id int64, status models.ReportStatus, adminID int64) error {
	for i := range f.Reports {
		if f.Reports[i].ID == id {
			f.Reports[i].Status = status
			return nil
		}
	}
	return pkgerrors.ErrReportNotFound
}

func (f *fakeReportRepo) ExistsBetween(ctx context.Context, userA, userB int64) (bool, error) {
	return f.Blocked[friendKey(userA, userB)], nil
}

type fakeBanRepo struct {
	Bans []models.Ban
}

func (f *fakeBanRepo) Create(ctx context.Context, ban *models.Ban) error {
	ban.ID = int64(len(f.Bans) + 1)
	f.Bans = append(f.Bans, *ban)
	return nil
}

func (f *fakeBanRepo) ActiveBan(ctx context.Context, userID int64) (*models.Ban, error) {
	now := time.Now()
	for i := range f.Bans {
		if f.Bans[i].UserID == userID && f.Bans[i].Active(now) {
			return &f.Bans[i], nil
		}
	}
	return nil, nil
}

func (f *fakeBanRepo) ExpireActive(ctx context.Context, userID int64) error {
	now := time.Now()
	for i := range f.Bans {
		if f.Bans[i].UserID == userID {
			f.Bans[i].Expires = &now
		}
	}
	return nil
}

func (f *fakeBanRepo) List(ctx context.Context, limit int) ([]models.Ban, error) {
	return f.Bans, nil
}

type fakeCodeRepo struct {
	Codes map[string]*models.CreatorCode
	Uses  map[string]int
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{Codes: make(map[string]*models.CreatorCode), Uses: make(map[string]int)}
}

func (f *fakeCodeRepo) Create(ctx context.Context, code *models.CreatorCode) error {
	if _, ok := f.Codes[code.Code]; ok {
		return pkgerrors.ErrCodeExists
	}
	code.ID = int64(len(f.Codes) + 1)
	f.Codes[code.Code] = code
	return nil
}

func (f *fakeCodeRepo) GetByCode(ctx context.Context, code string) (*models.CreatorCode, error) {
	cc, ok := f.Codes[code]
	if !ok {
		return nil, pkgerrors.ErrCodeNotFound
	}
	return cc, nil
}

func (f *fakeCodeRepo) IncrementUses(ctx context.Context, code string) error {
	f.Uses[code]++
	return nil
}

func (f *fakeCodeRepo) List(ctx context.Context) ([]models.CreatorCode, error) {
	var out []models.CreatorCode
	for _, cc := range f.Codes {
		out = append(out, *cc)
	}
	return out, nil
}

type fakeRedis struct {
	Store map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{Store: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	val, ok := f.Store[key]
	if !ok {
		return "", pkgerrors.ErrInternal
	}
	return val, nil
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.Store[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if _, ok := f.Store[key]; ok {
		return false, nil
	}
	f.Store[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) Del(ctx context.Context, key string) error {
	delete(f.Store, key)
	return nil
}

func (f *fakeRedis) Close() error { return nil }

type fakeProducer struct {
	Sent []string
}

func (f *fakeProducer) Send(ctx context.Context, topic string, key int64, value []byte) error {
	f.Sent = append(f.Sent, topic)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

type fakeLedgerRepo struct {
	Balances     map[int64]int64
	Transactions []models.Transaction
}

func newFakeLedgerRepo(balances map[int64]int64) *fakeLedgerRepo {
	return &fakeLedgerRepo{Balances: balances}
}

func (f *fakeLedgerRepo) Debit(ctx context.Context, tx *models.Transaction) error {
	balance, ok := f.Balances[*tx.From]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	if balance < tx.Amount {
		return pkgerrors.ErrInsufficientFunds
	}
	f.Balances[*tx.From] = balance - tx.Amount
	tx.ID = int64(len(f.Transactions) + 1)
	f.Transactions = append(f.Transactions, *tx)
	return nil
}

func (f *fakeLedgerRepo) Credit(ctx context.Context, tx *models.Transaction) error {
	if _, ok := f.Balances[*tx.To]; !ok {
		return pkgerrors.ErrUserNotFound
	}
	f.Balances[*tx.To] += tx.Amount
	tx.ID = int64(len(f.Transactions) + 1)
	f.Transactions = append(f.Transactions, *tx)
	return nil
}

func (f *fakeLedgerRepo) Transfer(ctx context.Context, tx *models.Transaction) error {
	if err := f.Debit(ctx, &models.Transaction{Type: tx.Type, Amount: tx.Amount, From: tx.From}); err != nil {
		return err
	}
	f.Balances[*tx.To] += tx.Amount
	tx.ID = int64(len(f.Transactions))
	f.Transactions[len(f.Transactions)-1] = *tx
	return nil
}

func (f *fakeLedgerRepo) HistoryForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	return f.Transactions, nil
}

func (f *fakeLedgerRepo) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	return f.Transactions, nil
}
