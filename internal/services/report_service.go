package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
	"github.com/CeoSolace/stealth-bte/internal/repository"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type ReportService interface {
	// ReportCheater files a pending report. Both users must have played
	// the match. The report feeds the join-prevention gate.
	ReportCheater(ctx context.Context, caller models.Caller, matchID, accusedID int64, evidence string) (*models.Report, error)
	ResolveReport(ctx context.Context, caller models.Caller, reportID int64, status models.ReportStatus) error
	ListReports(ctx context.Context, caller models.Caller, limit int) ([]models.Report, error)

	IssueBan(ctx context.Context, caller models.Caller, userID int64, reason string, duration time.Duration) (*models.Ban, error)
	LiftBan(ctx context.Context, caller models.Caller, userID int64) error
	ListBans(ctx context.Context, caller models.Caller, limit int) ([]models.Ban, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	banRepo    repository.BanRepository
	userRepo   repository.UserRepository
	matchRepo  repository.MatchRepository
}

func NewReportService(
	reportRepo repository.ReportRepository,
	banRepo repository.BanRepository,
	userRepo repository.UserRepository,
	matchRepo repository.MatchRepository,
) *reportService {
	return &reportService{
		reportRepo: reportRepo,
		banRepo:    banRepo,
		userRepo:   userRepo,
		matchRepo:  matchRepo,
	}
}

func (s *reportService) ReportCheater(ctx context.Context, caller models.Caller, matchID, accusedID int64, evidence string) (*models.Report, error) {
	tracer := otel.Tracer("report-service")
	ctx, span := tracer.Start(ctx, "ReportCheater")
	span.SetAttributes(attribute.Int64("match_id", matchID))
	defer span.End()

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !match.HasPlayer(caller.UserID) {
		return nil, pkgerrors.ErrNotAParticipant
	}
	if !match.HasPlayer(accusedID) {
		return nil, pkgerrors.ErrNotAParticipant
	}
	if accusedID == caller.UserID {
		return nil, pkgerrors.ErrInvalidParameters
	}

	report := &models.Report{
		MatchID:    matchID,
		ReporterID: caller.UserID,
		AccusedID:  accusedID,
		Evidence:   evidence,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.Info("cheater report filed",
		"report_id", report.ID,
		"match_id", matchID,
		"reporter_id", caller.UserID,
		"accused_id", accusedID)
	return report, nil
}

func (s *reportService) ResolveReport(ctx context.Context, caller models.Caller, reportID int64, status models.ReportStatus) error {
	if !caller.IsAdmin() {
		return pkgerrors.ErrForbidden
	}
	if err := s.reportRepo.Resolve(ctx, reportID, status, caller.UserID); err != nil {
		return err
	}
	slog.Info("report resolved", "report_id", reportID, "status", status, "admin_id", caller.UserID)
	return nil
}

func (s *reportService) ListReports(ctx context.Context, caller models.Caller, limit int) ([]models.Report, error) {
	if !caller.IsAdmin() {
		return nil, pkgerrors.ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.reportRepo.List(ctx, limit)
}

func (s *reportService) IssueBan(ctx context.Context, caller models.Caller, userID int64, reason string, duration time.Duration) (*models.Ban, error) {
	tracer := otel.Tracer("report-service")
	ctx, span := tracer.Start(ctx, "IssueBan")
	span.SetAttributes(attribute.Int64("user_id", userID))
	defer span.End()

	if !caller.IsAdmin() {
		return nil, pkgerrors.ErrForbidden
	}
	if reason == "" {
		return nil, pkgerrors.ErrInvalidParameters
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var expires *time.Time
	if duration > 0 {
		t := time.Now().Add(duration)
		expires = &t
	}

	ban := &models.Ban{
		UserID:  userID,
		Reason:  reason,
		Expires: expires,
		AdminID: caller.UserID,
	}
	if err := s.banRepo.Create(ctx, ban); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.userRepo.SetBanState(ctx, userID, true, expires); err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.Info("ban issued", "ban_id", ban.ID, "user_id", userID, "admin_id", caller.UserID, "permanent", expires == nil)
	return ban, nil
}

func (s *reportService) LiftBan(ctx context.Context, caller models.Caller, userID int64) error {
	if !caller.IsAdmin() {
		return pkgerrors.ErrForbidden
	}
	if err := s.banRepo.ExpireActive(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.SetBanState(ctx, userID, false, nil); err != nil {
		return err
	}
	slog.Info("ban lifted", "user_id", userID, "admin_id", caller.UserID)
	return nil
}

func (s *reportService) ListBans(ctx context.Context, caller models.Caller, limit int) ([]models.Ban, error) {
	if !caller.IsAdmin() {
		return nil, pkgerrors.ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.banRepo.List(ctx, limit)
}
