package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	service "github.com/CeoSolace/stealth-bte/internal/services"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/gorilla/mux"
)

func matchID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req service.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	match, err := h.matches.Create(r.Context(), c, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, match)
}

func (h *Handler) RecentMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matches.Recent(r.Context(), 50)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchID(r)
	if err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	match, err := h.matches.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, match)
}

func (h *Handler) JoinMatch(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	id, err := matchID(r)
	if err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	if err := h.matches.Join(r.Context(), c, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) VoteWinner(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	id, err := matchID(r)
	if err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	var req struct {
		WinnerID int64 `json:"winner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WinnerID == 0 {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	outcome, err := h.matches.CastVote(r.Context(), c, id, req.WinnerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) ReportCheater(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	id, err := matchID(r)
	if err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	var req struct {
		AccusedID int64  `json:"accused_id"`
		Evidence  string `json:"evidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccusedID == 0 {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	report, err := h.reports.ReportCheater(r.Context(), c, id, req.AccusedID, req.Evidence)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) InviteToMatch(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	id, err := matchID(r)
	if err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	code, err := h.matches.Invite(r.Context(), c, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"invite_code": code})
}

func (h *Handler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	id, err := matchID(r)
	if err != nil {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	if err := h.matches.Cancel(r.Context(), c, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
