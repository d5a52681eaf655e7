package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CeoSolace/stealth-bte/internal/infrastructure/auth"
	"github.com/CeoSolace/stealth-bte/internal/models"
	service "github.com/CeoSolace/stealth-bte/internal/services"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pkgerrors.ErrUserNotFound, http.StatusNotFound},
		{pkgerrors.ErrMatchNotFound, http.StatusNotFound},
		{pkgerrors.ErrForbidden, http.StatusForbidden},
		{pkgerrors.ErrBanned, http.StatusForbidden},
		{pkgerrors.ErrAlreadyJoined, http.StatusConflict},
		{pkgerrors.ErrAlreadyVoted, http.StatusConflict},
		{pkgerrors.ErrMatchFull, http.StatusConflict},
		{pkgerrors.ErrMatchNotVotable, http.StatusConflict},
		{pkgerrors.ErrRequestAlreadyProcessed, http.StatusConflict},
		{pkgerrors.ErrInsufficientFunds, http.StatusBadRequest},
		{pkgerrors.ErrInvalidAmount, http.StatusBadRequest},
		{pkgerrors.ErrBlockedByReport, http.StatusBadRequest},
		{pkgerrors.ErrInternal, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", pkgerrors.ErrInsufficientFunds), http.StatusBadRequest},
		{fmt.Errorf("plain failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "error: %v", tt.err)
	}
}

type stubBalanceLedger struct {
	service.LedgerService
	balance int64
	err     error
	asked   []int64
}

func (s *stubBalanceLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	s.asked = append(s.asked, userID)
	return s.balance, s.err
}

func TestHandler_Balance(t *testing.T) {
	t.Run("ReturnsCallerBalance", func(t *testing.T) {
		ledger := &stubBalanceLedger{balance: 420}
		h := &Handler{ledger: ledger}

		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req = req.WithContext(auth.WithCaller(req.Context(), models.Caller{UserID: 7}))
		rec := httptest.NewRecorder()
		h.Balance(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]int64
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, int64(420), body["balance"])
		assert.Equal(t, []int64{7}, ledger.asked)
	})

	t.Run("NoCaller", func(t *testing.T) {
		h := &Handler{ledger: &stubBalanceLedger{}}
		rec := httptest.NewRecorder()
		h.Balance(rec, httptest.NewRequest(http.MethodGet, "/api/balance", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		h := &Handler{ledger: &stubBalanceLedger{err: pkgerrors.ErrUserNotFound}}
		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req = req.WithContext(auth.WithCaller(req.Context(), models.Caller{UserID: 7}))
		rec := httptest.NewRecorder()
		h.Balance(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
