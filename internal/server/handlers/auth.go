package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/pkg/api"
)

// tokenType is the scheme of issued tokens.
const tokenType = "Bearer"

// AuthHandler обрабатывает запросы авторизации и управления аккаунтом
type AuthHandler struct {
	responder
	service *auth.Service
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового аккаунта, в ответе сразу выдается токен
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, h.tokenResponse(token), http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			h.logger.WarnContext(ctx, "login failed", slog.String("username", req.Username))
		}
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", token.AccountID),
		slog.String("username", token.Username))

	h.sendJSON(w, h.tokenResponse(token), http.StatusOK)
}

func (h *AuthHandler) tokenResponse(token *auth.Token) api.TokenResponse {
	return api.TokenResponse{
		AccountID:   token.AccountID,
		AccessToken: token.Value,
		TokenType:   tokenType,
		ExpiresAt:   token.ExpiresAt,
		ExpiresIn:   int64(token.ExpiresAt.Sub(token.IssuedAt).Seconds()),
	}
}

// Logout обрабатывает POST /api/v1/auth/logout
// Отзывает только предъявленный токен
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := GetToken(r.Context())
	if !ok {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll обрабатывает POST /api/v1/auth/logout-all
// Выход со всех устройств
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	n, err := h.service.LogoutAll(r.Context(), claims.AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, api.RevokeResponse{Revoked: n}, http.StatusOK)
}

// GetAccount обрабатывает GET /api/v1/account
func (h *AuthHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	account, err := h.service.Account(r.Context(), claims.AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, api.AccountResponse{
		ID:               account.ID,
		Username:         account.Username,
		Admin:            account.Admin,
		CreatedAt:        account.CreatedAt,
		SessionExpiresAt: claims.ExpiresAt,
	}, http.StatusOK)
}

// DeleteAccount обрабатывает DELETE /api/v1/account
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), claims.AccountID); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PurgeSessions обрабатывает POST /api/v1/admin/sessions/purge
// Доступно только аккаунтам с глобальным Admin scope
func (h *AuthHandler) PurgeSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	if !claims.Admin {
		h.logger.WarnContext(ctx, "purge denied", slog.String("account_id", claims.AccountID))
		h.sendError(w, "admin scope required", http.StatusForbidden)
		return
	}

	n, err := h.service.PurgeExpiredSessions(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "expired sessions purged",
		slog.String("account_id", claims.AccountID),
		slog.Int("purged", n))

	h.sendJSON(w, api.RevokeResponse{Revoked: n}, http.StatusOK)
}
