package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
)

const userSubject = "User"

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	var req domain.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := a.identity.ValidateLogin(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Username and password are required")
			return
		}
		a.logger.Warn("login rejected",
			slog.String("action", "auth_login"),
			slog.String("username", req.Username),
			slog.String("reason", err.Error()),
		)
		a.fail(w, r, userSubject, err)
		return
	}

	view := user.View()
	token, expiresAt, err := a.auth.Issue(view)
	if err != nil {
		a.fail(w, r, userSubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": domain.LoginResponse{
			User:      view,
			Token:     token,
			ExpiresAt: expiresAt.Format(time.RFC3339),
		},
		"user":  view,
		"token": token,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := a.identity.Register(r.Context(), req)
	if err != nil {
		a.fail(w, r, userSubject, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    view,
	})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.identity.ListUsers(r.Context())
	if err != nil {
		a.fail(w, r, userSubject, err)
		return
	}
	writeList(w, users)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	view, err := a.identity.UpdateUser(r.Context(), chi.URLParam(r, "userId"), patch)
	if err != nil {
		a.fail(w, r, userSubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    view,
	})
}

func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	view, err := a.identity.Deactivate(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		a.fail(w, r, userSubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User deactivated",
		"user":    view,
	})
}

// handleSeedUsers creates the default staff accounts that do not exist yet.
func (a *API) handleSeedUsers(w http.ResponseWriter, r *http.Request) {
	created, err := a.identity.SeedDefaultUsers(r.Context())
	if err != nil {
		a.fail(w, r, userSubject, err)
		return
	}
	if created == nil {
		created = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Default users seeded",
		"count":   len(created),
		"data":    created,
	})
}
