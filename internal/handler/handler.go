package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/config"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/auth"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/redis"
	"github.com/CeoSolace/stealth-bte/internal/models"
	service "github.com/CeoSolace/stealth-bte/internal/services"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/gorilla/mux"
)

type Handler struct {
	users       service.UserService
	matches     service.MatchService
	reports     service.ReportService
	withdrawals service.WithdrawService
	payments    service.PaymentService
	ledger      service.LedgerService
	redisClient redis.RedisClient
	cfg         *config.Config
}

func New(
	users service.UserService,
	matches service.MatchService,
	reports service.ReportService,
	withdrawals service.WithdrawService,
	payments service.PaymentService,
	ledger service.LedgerService,
	redisClient redis.RedisClient,
	cfg *config.Config,
) *Handler {
	return &Handler{
		users:       users,
		matches:     matches,
		reports:     reports,
		withdrawals: withdrawals,
		payments:    payments,
		ledger:      ledger,
		redisClient: redisClient,
		cfg:         cfg,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrMatchNotFound),
		errors.Is(err, pkgerrors.ErrReportNotFound),
		errors.Is(err, pkgerrors.ErrCodeNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrForbidden),
		errors.Is(err, pkgerrors.ErrBanned):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrAlreadyJoined),
		errors.Is(err, pkgerrors.ErrAlreadyVoted),
		errors.Is(err, pkgerrors.ErrAlreadyFriends),
		errors.Is(err, pkgerrors.ErrNotFriends),
		errors.Is(err, pkgerrors.ErrMatchNotActive),
		errors.Is(err, pkgerrors.ErrMatchNotVotable),
		errors.Is(err, pkgerrors.ErrMatchFull),
		errors.Is(err, pkgerrors.ErrNotAParticipant),
		errors.Is(err, pkgerrors.ErrCodeExists),
		errors.Is(err, pkgerrors.ErrRequestAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrInvalidParameters),
		errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInsufficientFunds),
		errors.Is(err, pkgerrors.ErrInvalidNominee),
		errors.Is(err, pkgerrors.ErrBlockedByReport),
		errors.Is(err, pkgerrors.ErrSelfFriend):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		body.Error = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func caller(r *http.Request) (models.Caller, bool) {
	return auth.CallerFrom(r.Context())
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/auth/session", h.CreateSession).Methods("POST")
	r.HandleFunc("/api/stats", h.Stats).Methods("GET")
	r.HandleFunc("/api/leaderboard/richest", h.Richest).Methods("GET")
	r.HandleFunc("/api/leaderboard/most-wins", h.MostWins).Methods("GET")
	r.HandleFunc("/api/payments/confirm", h.ConfirmPayment).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/api/me", h.Me).Methods("GET")
	r.HandleFunc("/api/balance", h.Balance).Methods("GET")
	r.HandleFunc("/api/history", h.History).Methods("GET")
	r.HandleFunc("/api/withdraw", h.Withdraw).Methods("POST")

	r.HandleFunc("/api/friends", h.ListFriends).Methods("GET")
	r.HandleFunc("/api/friends", h.AddFriend).Methods("POST")
	r.HandleFunc("/api/friends/remove", h.RemoveFriend).Methods("POST")

	r.HandleFunc("/api/matches", h.CreateMatch).Methods("POST")
	r.HandleFunc("/api/matches/recent", h.RecentMatches).Methods("GET")
	r.HandleFunc("/api/matches/{id:[0-9]+}", h.GetMatch).Methods("GET")
	r.HandleFunc("/api/matches/{id:[0-9]+}/join", h.JoinMatch).Methods("POST")
	r.HandleFunc("/api/matches/{id:[0-9]+}/vote", h.VoteWinner).Methods("POST")
	r.HandleFunc("/api/matches/{id:[0-9]+}/report", h.ReportCheater).Methods("POST")
	r.HandleFunc("/api/matches/{id:[0-9]+}/invite", h.InviteToMatch).Methods("POST")
}

func (h *Handler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/api/admin/ban", h.ManageBan).Methods("POST")
	r.HandleFunc("/api/admin/bans", h.ListBans).Methods("GET")
	r.HandleFunc("/api/admin/reports", h.ListReports).Methods("GET")
	r.HandleFunc("/api/admin/reports/resolve", h.ResolveReport).Methods("POST")
	r.HandleFunc("/api/admin/transfers", h.ListTransfers).Methods("GET")
	r.HandleFunc("/api/admin/creator-codes", h.ListCreatorCodes).Methods("GET")
	r.HandleFunc("/api/admin/creator-codes", h.CreateCreatorCode).Methods("POST")
	r.HandleFunc("/api/admin/matches/{id:[0-9]+}/cancel", h.CancelMatch).Methods("POST")
}

// CreateSession is the identity boundary: the external OAuth callback
// service, holding the shared secret, exchanges an authenticated
// Discord identity for a platform session token.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Identity-Secret") != h.cfg.WebhookSecret || h.cfg.WebhookSecret == "" {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}

	var req struct {
		DiscordID string `json:"discord_id"`
		Username  string `json:"username"`
		Avatar    string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}

	user, err := h.users.EnsureUser(r.Context(), req.DiscordID, req.Username, req.Avatar)
	if err != nil {
		h.writeError(w, err)
		return
	}

	token, err := auth.GenerateToken(user, h.cfg.JWTSecret)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.redisClient.Set(r.Context(),
		fmt.Sprintf("user:%d:token", user.ID), token, 24*time.Hour); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	user, err := h.users.GetByID(r.Context(), c.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// Balance serves the cached coin balance; cheaper than Me when the
// client only needs the number.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), c.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	history, err := h.ledger.History(r.Context(), c.UserID, 100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	result, err := h.withdrawals.Withdraw(r.Context(), c, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	friends, err := h.users.Friends(r.Context(), c.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, friends)
}

func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	if err := h.users.AddFriend(r.Context(), c, req.Username); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		FriendID int64 `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FriendID == 0 {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	if err := h.users.RemoveFriend(r.Context(), c, req.FriendID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Richest(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Richest(r.Context(), 25)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) MostWins(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.MostWins(r.Context(), 25)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// ConfirmPayment is the HTTP flavor of the payment confirmation input;
// the kafka consumer is the other. Both funnel into the same service.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Webhook-Secret") != h.cfg.WebhookSecret || h.cfg.WebhookSecret == "" {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		DiscordID   string `json:"discord_id"`
		Coins       int64  `json:"coins"`
		CreatorCode string `json:"creator_code"`
		RequestID   string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	if err := h.payments.Confirm(r.Context(), req.DiscordID, req.Coins, req.CreatorCode, req.RequestID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
