package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
)

// requireAdminKey is a second factor on the destructive admin writes:
// the role claim alone is not enough, the shared admin key must ride
// along in the request header as well.
func (h *Handler) requireAdminKey(r *http.Request) bool {
	return h.cfg.AdminKey != "" && r.Header.Get("X-Admin-Key") == h.cfg.AdminKey
}

func (h *Handler) ManageBan(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok || !h.requireAdminKey(r) {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		UserID     int64  `json:"user_id"`
		Action     string `json:"action"`
		Reason     string `json:"reason"`
		DurationMS int64  `json:"duration_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}

	switch req.Action {
	case "ban":
		ban, err := h.reports.IssueBan(r.Context(), c, req.UserID, req.Reason,
			time.Duration(req.DurationMS)*time.Millisecond)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, ban)
	case "unban":
		if err := h.reports.LiftBan(r.Context(), c, req.UserID); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		h.writeError(w, pkgerrors.ErrInvalidParameters)
	}
}

func (h *Handler) ListBans(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	bans, err := h.reports.ListBans(r.Context(), c, 100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bans)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	reports, err := h.reports.ListReports(r.Context(), c, 100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		ReportID int64  `json:"report_id"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReportID == 0 {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	status := models.ReportStatus(req.Status)
	if status != models.ReportResolved && status != models.ReportDismissed {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	if err := h.reports.ResolveReport(r.Context(), c, req.ReportID, status); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(r); !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	transfers, err := h.ledger.Recent(r.Context(), 100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfers)
}

func (h *Handler) ListCreatorCodes(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	codes, err := h.payments.ListCreatorCodes(r.Context(), c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, codes)
}

func (h *Handler) CreateCreatorCode(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok || !h.requireAdminKey(r) {
		h.writeError(w, pkgerrors.ErrForbidden)
		return
	}
	var req struct {
		Code      string `json:"code"`
		CreatorID int64  `json:"creator_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" || req.CreatorID == 0 {
		h.writeError(w, pkgerrors.ErrInvalidParameters)
		return
	}
	code, err := h.payments.CreateCreatorCode(r.Context(), c, req.Code, req.CreatorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, code)
}
