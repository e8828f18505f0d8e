// Package server assembles the HTTP API from handlers and middleware.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/internal/server/handlers"
	"github.com/iudanet/chatter/internal/server/middleware"
	"github.com/iudanet/chatter/internal/server/storage"
	"github.com/iudanet/chatter/pkg/api"
)

// APIPrefix is the path prefix of every route.
const APIPrefix = "/api/v1"

// Deps are the collaborators of the router.
type Deps struct {
	Logger  *slog.Logger
	Service *auth.Service
	Store   storage.Storage
	// Limiter guards register and login; nil disables rate limiting
	Limiter *middleware.RateLimiter
	Version string
}

// NewRouter builds the API handler. Middleware order: recovery, access
// log, then rate limiting on register/login and bearer auth on the rest.
func NewRouter(d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Logger, d.Service)
	healthHandler := handlers.NewHealthHandler(d.Logger, d.Store, d.Version)
	channelHandler := handlers.NewChannelHandler(d.Logger, d.Service.Evaluator(), d.Store)
	memberHandler := handlers.NewMemberHandler(d.Logger, d.Service.Evaluator(), d.Store, d.Store)
	messageHandler := handlers.NewMessageHandler(d.Logger, d.Service.Evaluator(), d.Store)

	recovery := middleware.RecoveryMiddleware(d.Logger)
	logging := middleware.LoggingMiddleware(d.Logger, APIPrefix+"/health")

	r := mux.NewRouter()
	// mux не применяет r.Use к 404/405, оборачиваем их сами
	r.NotFoundHandler = recovery(logging(jsonStatus(http.StatusNotFound, "route not found")))
	r.MethodNotAllowedHandler = recovery(logging(jsonStatus(http.StatusMethodNotAllowed, "method not allowed")))
	r.Use(recovery, logging)

	v1 := r.PathPrefix(APIPrefix).Subrouter()
	v1.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Публичные маршруты с rate limit
	public := v1.NewRoute().Subrouter()
	if d.Limiter != nil {
		public.Use(d.Limiter.Middleware)
	}
	public.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	// Защищенные маршруты
	protected := v1.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(d.Logger, d.Service))

	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/auth/logout-all", authHandler.LogoutAll).Methods(http.MethodPost)
	protected.HandleFunc("/account", authHandler.GetAccount).Methods(http.MethodGet)
	protected.HandleFunc("/account", authHandler.DeleteAccount).Methods(http.MethodDelete)
	protected.HandleFunc("/admin/sessions/purge", authHandler.PurgeSessions).Methods(http.MethodPost)

	protected.HandleFunc("/channels", channelHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/channels", channelHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/channels/{id}", channelHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/channels/{id}", channelHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/channels/{id}", channelHandler.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/channels/{id}/members", memberHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/channels/{id}/members", memberHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/channels/{id}/members/{account_id}", memberHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/channels/{id}/members/{account_id}", memberHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/channels/{id}/members/{account_id}", memberHandler.Remove).Methods(http.MethodDelete)

	protected.HandleFunc("/channels/{id}/messages", messageHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/channels/{id}/messages", messageHandler.Post).Methods(http.MethodPost)
	protected.HandleFunc("/channels/{id}/messages/{message_id}", messageHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/channels/{id}/messages/{message_id}", messageHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/channels/{id}/messages/{message_id}", messageHandler.Delete).Methods(http.MethodDelete)

	return r
}

func jsonStatus(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error:   http.StatusText(status),
			Message: message,
		})
	})
}
