package handlers

import (
	"context"
	"net/http"

	"github.com/iudanet/chatter/internal/server/auth"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// ClaimsKey ключ для claims аутентифицированной сессии
	ClaimsKey contextKey = "claims"
	// TokenKey ключ для предъявленного bearer токена
	TokenKey contextKey = "token"
)

// WithSession returns ctx carrying the presented token and its claims.
func WithSession(ctx context.Context, token string, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, TokenKey, token)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims извлекает claims из контекста
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetToken извлекает bearer токен из контекста
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// requireClaims returns the claims or answers 401 if the route was mounted
// without the auth middleware.
func (h responder) requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := GetClaims(r.Context())
	if !ok {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}
