// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/billing"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/models"
)

// AccountHandler covers guest upgrade and the billing status badge
type AccountHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	checker *billing.Checker
}

func NewAccountHandler(db *sql.DB, cfg cliparse.Config, checker *billing.Checker) *AccountHandler {
	return &AccountHandler{db: db, cfg: cfg, checker: checker}
}

// ClaimAnonymousSessions handles POST /api/auth/claim-anonymous-sessions
func (h *AccountHandler) ClaimAnonymousSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	var req models.ClaimAnonymousSessionsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	anonID := req.AnonymousSessionID
	if anonID == "" {
		if c, err := r.Cookie(auth.AnonymousCookieName); err == nil {
			anonID = c.Value
		}
	}
	if anonID == "" {
		middleware.JSONResponse(w, http.StatusOK, models.ClaimAnonymousSessionsResponse{})
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE diagnostics_sessions
		SET user_id = $1, anonymous_session_id = NULL
		WHERE anonymous_session_id = $2 AND user_id IS NULL
	`, userID, anonID)
	if err != nil {
		slog.Error("failed to claim anonymous sessions", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim sessions")
		return
	}
	transferred, err := res.RowsAffected()
	if err != nil {
		slog.Error("failed to count claimed sessions", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim sessions")
		return
	}

	auth.ClearAnonymousCookie(w)
	slog.Info("anonymous sessions claimed", "user_id", userID, "sessions_transferred", transferred)

	middleware.JSONResponse(w, http.StatusOK, models.ClaimAnonymousSessionsResponse{
		GuestUpgraded:       transferred > 0,
		SessionsTransferred: int(transferred),
	})
}

// BillingStatus handles GET /api/billing/status. Anonymous callers get
// status "none". A caller returning from checkout with a grace cookie has
// its cached subscriber lookup dropped so the next gate sees the new row.
func (h *AccountHandler) BillingStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r, h.cfg.JWTSecret)
	if userID != "" && auth.HasValidGrace(r, h.cfg.PaywallSecret) {
		h.checker.Invalidate(userID)
	}
	middleware.JSONResponse(w, http.StatusOK, h.checker.Status(r.Context(), userID))
}
