package auth_api

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type UserDBLayer interface {
	UpsertUser(ctx context.Context, name, email string) (*models.User, error)
}

type TokenIssuer interface {
	Issue(user models.User) (string, time.Time, error)
}

type Handler struct {
	UserDB  UserDBLayer
	Issuer  TokenIssuer
	Revoked auth.RevocationList
	Logger  *logger.Logger
}

// RegisterPublicRoutes mounts the routes that work without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterRoutes mounts the routes behind auth.Middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
	r.Post("/auth/logout", h.Logout)
}

// Login upserts the user by email and returns a signed token.
// Expected POST request body: {"name": "Ada", "email": "ada@example.com"}
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	name, email, err := validateLogin(req)
	if err != nil {
		utils.WriteServiceError(w, "Invalid login", err)
		return
	}

	user, err := h.UserDB.UpsertUser(r.Context(), name, email)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Failed to upsert user %s: %v", email, err))
		utils.WriteServiceError(w, "Login failed", err)
		return
	}

	token, expiresAt, err := h.Issuer.Issue(*user)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Failed to issue token for %s: %v", user.ID, err))
		utils.WriteServiceError(w, "Login failed", err)
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("User %s logged in", user.ID))
	utils.WriteSuccess(w, http.StatusOK, "Logged in", models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        *user,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Authentication required", models.ErrUnauthorized)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Current user", user)
}

// Logout revokes the token the request was made with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Authentication required", models.ErrUnauthorized)
		return
	}

	if h.Revoked == nil {
		h.Logger.Warn("AUTH", "Logout without a revocation list, token stays valid until expiry")
	} else if err := h.Revoked.Revoke(r.Context(), principal.TokenID, principal.ExpiresAt); err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Failed to revoke token for %s: %v", principal.UserID, err))
		utils.WriteServiceError(w, "Logout failed", err)
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("User %s logged out", principal.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func validateLogin(req models.LoginRequest) (string, string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", models.ErrValidation)
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return "", "", fmt.Errorf("%w: email is invalid", models.ErrValidation)
	}
	return name, strings.ToLower(addr.Address), nil
}
