package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/internal/server/handlers"
	"github.com/iudanet/chatter/pkg/api"
)

// Authenticator resolves bearer tokens into session claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthMiddleware создает middleware для проверки bearer токена
// Claims и сам токен кладутся в контекст запроса
func AuthMiddleware(logger *slog.Logger, authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "missing or malformed Authorization header", slog.String("path", r.URL.Path))
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := authenticator.Authenticate(ctx, token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					logger.ErrorContext(ctx, "failed to verify session", slog.Any("error", err))
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				logger.WarnContext(ctx, "invalid session", slog.Any("error", err))
				unauthorized(w, "invalid or expired token")
				return
			}

			setAccountID(ctx, claims.AccountID)
			logger.DebugContext(ctx, "account authenticated",
				slog.String("account_id", claims.AccountID),
				slog.String("username", claims.Username))

			next.ServeHTTP(w, r.WithContext(handlers.WithSession(ctx, token, claims)))
		})
	}
}

// bearerToken извлекает токен из "Authorization: Bearer <token>",
// схема регистронезависима
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="chatter"`)
	writeError(w, http.StatusUnauthorized, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
