package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/CeoSolace/stealth-bte/internal/infrastructure/kafka"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/observability"
	"github.com/CeoSolace/stealth-bte/internal/models"
	"github.com/CeoSolace/stealth-bte/internal/repository"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CreateMatchRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	EntryFee     int64  `json:"entryFee"`
	MaxPlayers   int    `json:"maxPlayers"`
	IsTournament bool   `json:"isTournament"`
}

func (r CreateMatchRequest) validate() error {
	if r.Title == "" || r.Description == "" {
		return fmt.Errorf("%w: title and description are required", pkgerrors.ErrInvalidParameters)
	}
	if r.EntryFee < models.MinEntryFee {
		return fmt.Errorf("%w: minimum entry fee is %d coins", pkgerrors.ErrInvalidParameters, models.MinEntryFee)
	}
	if r.MaxPlayers < models.MinMaxPlayers || r.MaxPlayers > models.MaxMaxPlayers {
		return fmt.Errorf("%w: max players must be between %d and %d",
			pkgerrors.ErrInvalidParameters, models.MinMaxPlayers, models.MaxMaxPlayers)
	}
	return nil
}

type VoteOutcome struct {
	Settled  bool   `json:"settled"`
	WinnerID *int64 `json:"winner_id,omitempty"`
}

type MatchService interface {
	Create(ctx context.Context, caller models.Caller, req CreateMatchRequest) (*models.Match, error)
	Join(ctx context.Context, caller models.Caller, matchID int64) error
	// CastVote records a participant's nomination and settles the match
	// once a nominee reaches quorum.
	CastVote(ctx context.Context, caller models.Caller, matchID, nomineeID int64) (*VoteOutcome, error)
	Get(ctx context.Context, matchID int64) (*models.Match, error)
	Recent(ctx context.Context, limit int) ([]models.Match, error)
	// Invite generates a single-use invite code; creator only.
	Invite(ctx context.Context, caller models.Caller, matchID int64) (string, error)
	Cancel(ctx context.Context, caller models.Caller, matchID int64) error
}

type matchService struct {
	matchRepo  repository.MatchRepository
	userRepo   repository.UserRepository
	reportRepo repository.ReportRepository
	ledger     LedgerService
	users      UserService
	producer   kafka.KafkaProducer
}

func NewMatchService(
	matchRepo repository.MatchRepository,
	userRepo repository.UserRepository,
	reportRepo repository.ReportRepository,
	ledger LedgerService,
	users UserService,
	producer kafka.KafkaProducer,
) *matchService {
	return &matchService{
		matchRepo:  matchRepo,
		userRepo:   userRepo,
		reportRepo: reportRepo,
		ledger:     ledger,
		users:      users,
		producer:   producer,
	}
}

func (s *matchService) Create(ctx context.Context, caller models.Caller, req CreateMatchRequest) (*models.Match, error) {
	tracer := otel.Tracer("match-service")
	ctx, span := tracer.Start(ctx, "CreateMatch")
	defer span.End()

	if err := req.validate(); err != nil {
		span.SetStatus(codes.Error, "invalid parameters")
		return nil, err
	}
	if err := s.refuseBanned(ctx, caller.UserID); err != nil {
		return nil, err
	}

	match := &models.Match{
		Title:        req.Title,
		Description:  req.Description,
		EntryFee:     req.EntryFee,
		MaxPlayers:   req.MaxPlayers,
		IsTournament: req.IsTournament,
		PrizePool:    models.PrizePoolFor(req.EntryFee, req.MaxPlayers, req.IsTournament),
		CreatorID:    caller.UserID,
	}

	kind := "match"
	if req.IsTournament {
		kind = "tournament"
	}
	entryCost := match.EntryCost()
	if _, err := s.ledger.Debit(ctx, caller.UserID, entryCost, 0, models.TypeMatchEntry,
		fmt.Sprintf("Entry fee for %s: %s", kind, req.Title)); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		span.RecordError(err)
		// The debit already landed; hand the coins back.
		if _, refundErr := s.ledger.Credit(ctx, caller.UserID, entryCost, models.TypeMatchRefund,
			fmt.Sprintf("Refund: failed to create %s: %s", kind, req.Title)); refundErr != nil {
			slog.Error("failed to refund entry after create failure",
				"user_id", caller.UserID, "amount", entryCost, "error", refundErr)
		}
		return nil, err
	}

	slog.Info("match created",
		"match_id", match.ID,
		"creator_id", caller.UserID,
		"entry_fee", match.EntryFee,
		"prize_pool", match.PrizePool,
		"is_tournament", match.IsTournament)
	return match, nil
}

func (s *matchService) Join(ctx context.Context, caller models.Caller, matchID int64) error {
	tracer := otel.Tracer("match-service")
	ctx, span := tracer.Start(ctx, "JoinMatch")
	span.SetAttributes(attribute.Int64("match_id", matchID))
	defer span.End()

	if err := s.refuseBanned(ctx, caller.UserID); err != nil {
		return err
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if match.Status != models.MatchActive {
		return pkgerrors.ErrMatchNotActive
	}
	if match.HasPlayer(caller.UserID) {
		return pkgerrors.ErrAlreadyJoined
	}
	if len(match.Players) >= match.MaxPlayers {
		return pkgerrors.ErrMatchFull
	}

	// Cheater-avoidance gate: report history inside a shared match
	// blocks the join unless the two have since become friends.
	for _, p := range match.Players {
		reported, err := s.reportRepo.ExistsBetween(ctx, caller.UserID, p.UserID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !reported {
			continue
		}
		friends, err := s.userRepo.AreFriends(ctx, caller.UserID, p.UserID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !friends {
			slog.Info("join blocked by report history",
				"match_id", matchID, "user_id", caller.UserID, "other_id", p.UserID)
			return pkgerrors.ErrBlockedByReport
		}
	}

	// The repository re-checks status, capacity and membership under
	// the match row lock; the checks above only fail fast.
	if err := s.matchRepo.Join(ctx, matchID, caller.UserID); err != nil {
		span.RecordError(err)
		return err
	}
	// The entry debit ran inside the repository transaction.
	s.ledger.InvalidateBalance(ctx, caller.UserID)

	slog.Info("player joined", "match_id", matchID, "user_id", caller.UserID)
	return nil
}

// decideWinner replays the votes in submission order and returns the
// first nominee whose running tally reaches quorum. With an even player
// count two nominees can both reach quorum in theory; first past the
// post wins.
func decideWinner(players []models.Player, votes []models.Vote) (int64, bool) {
	quorum := models.Quorum(len(players))
	tally := make(map[int64]int, len(players))
	for _, v := range votes {
		tally[v.WinnerID]++
		if tally[v.WinnerID] >= quorum {
			return v.WinnerID, true
		}
	}
	return 0, false
}

func (s *matchService) CastVote(ctx context.Context, caller models.Caller, matchID, nomineeID int64) (*VoteOutcome, error) {
	tracer := otel.Tracer("match-service")
	ctx, span := tracer.Start(ctx, "CastVote")
	span.SetAttributes(
		attribute.Int64("match_id", matchID),
		attribute.Int64("nominee_id", nomineeID),
	)
	defer span.End()

	match, err := s.matchRepo.AddVote(ctx, matchID, caller.UserID, nomineeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	winnerID, reached := decideWinner(match.Players, match.Votes)
	if !reached {
		observability.SettlementsTotal.WithLabelValues("pending").Inc()
		return &VoteOutcome{Settled: false}, nil
	}

	settled, err := s.matchRepo.Settle(ctx, matchID, winnerID, match.PrizePool,
		fmt.Sprintf("Prize from match: %s", match.Title))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	// Either branch from here means the prize was credited inside a
	// repository transaction, past the ledger's cache invalidation.
	s.ledger.InvalidateBalance(ctx, winnerID)
	if !settled {
		// A concurrent vote settled first; the winner is already paid.
		observability.SettlementsTotal.WithLabelValues("lost_race").Inc()
		return &VoteOutcome{Settled: true, WinnerID: &winnerID}, nil
	}

	observability.SettlementsTotal.WithLabelValues("settled").Inc()
	slog.Info("match settled",
		"match_id", matchID,
		"winner_id", winnerID,
		"prize_pool", match.PrizePool)
	s.publishSettlement(ctx, match, winnerID)

	return &VoteOutcome{Settled: true, WinnerID: &winnerID}, nil
}

func (s *matchService) publishSettlement(ctx context.Context, match *models.Match, winnerID int64) {
	event := map[string]interface{}{
		"event_type": "match_settled",
		"match_id":   match.ID,
		"winner_id":  winnerID,
		"prize_pool": match.PrizePool,
		"title":      match.Title,
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal settlement event", "match_id", match.ID, "error", err)
		return
	}
	if err := s.producer.Send(ctx, kafka.TopicEvents, match.ID, eventBytes); err != nil {
		slog.Error("failed to publish settlement event", "match_id", match.ID, "error", err)
	}
}

func (s *matchService) Get(ctx context.Context, matchID int64) (*models.Match, error) {
	return s.matchRepo.GetByID(ctx, matchID)
}

func (s *matchService) Recent(ctx context.Context, limit int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.matchRepo.ListRecent(ctx, limit)
}

func (s *matchService) Invite(ctx context.Context, caller models.Caller, matchID int64) (string, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return "", err
	}
	if match.CreatorID != caller.UserID {
		return "", fmt.Errorf("%w: only match creator can generate invite", pkgerrors.ErrForbidden)
	}
	return fmt.Sprintf("MATCH_%d_%s", matchID, uuid.NewString()[:8]), nil
}

func (s *matchService) Cancel(ctx context.Context, caller models.Caller, matchID int64) error {
	if !caller.IsAdmin() {
		return pkgerrors.ErrForbidden
	}
	if err := s.matchRepo.Cancel(ctx, matchID); err != nil {
		return err
	}
	slog.Info("match cancelled", "match_id", matchID, "admin_id", caller.UserID)
	return nil
}

func (s *matchService) refuseBanned(ctx context.Context, userID int64) error {
	banned, err := s.users.IsBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return pkgerrors.ErrBanned
	}
	return nil
}
