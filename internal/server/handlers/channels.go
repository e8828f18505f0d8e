package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/internal/server/storage"
	"github.com/iudanet/chatter/internal/validation"
	"github.com/iudanet/chatter/pkg/api"
)

// ChannelHandler обрабатывает CRUD каналов
type ChannelHandler struct {
	responder
	evaluator *auth.Evaluator
	channels  storage.ChannelStorage
	now       func() time.Time
}

// NewChannelHandler создает handler каналов
func NewChannelHandler(logger *slog.Logger, evaluator *auth.Evaluator, channels storage.ChannelStorage) *ChannelHandler {
	return &ChannelHandler{
		responder: responder{logger: logger},
		evaluator: evaluator,
		channels:  channels,
		now:       time.Now,
	}
}

// Create обрабатывает POST /api/v1/channels
// Создатель канала становится его администратором
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	var req api.CreateChannelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validation.ValidateChannelName(req.Name); err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now().UTC()
	channel := &models.Channel{
		ID:        uuid.New().String(),
		Name:      req.Name,
		CreatedBy: claims.AccountID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.channels.CreateChannel(ctx, channel); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "channel created",
		slog.String("channel_id", channel.ID),
		slog.String("account_id", claims.AccountID))

	h.sendJSON(w, channelResponse(channel, models.RoleAdmin), http.StatusCreated)
}

// List обрабатывает GET /api/v1/channels
// Возвращает каналы, в которых состоит вызывающий
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	channels, err := h.channels.ListAccountChannels(r.Context(), claims.AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := api.ChannelListResponse{Channels: make([]api.ChannelResponse, 0, len(channels))}
	for _, c := range channels {
		resp.Channels = append(resp.Channels, channelResponse(c, ""))
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Get обрабатывает GET /api/v1/channels/{id}
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	role, err := h.evaluator.Can(r.Context(), claims.AccountID, channelID, auth.ActionRead)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	channel, err := h.channels.GetChannel(r.Context(), channelID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, channelResponse(channel, role), http.StatusOK)
}

// Update обрабатывает PATCH /api/v1/channels/{id}
func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	role, err := h.evaluator.Can(ctx, claims.AccountID, channelID, auth.ActionUpdate)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req api.UpdateChannelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Name == nil {
		h.fail(w, r, fmt.Errorf("%w: name is required", auth.ErrInvalidInput))
		return
	}
	if err := validation.ValidateChannelName(*req.Name); err != nil {
		h.fail(w, r, err)
		return
	}

	channel, err := h.channels.GetChannel(ctx, channelID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	channel.Name = *req.Name
	channel.UpdatedAt = h.now().UTC()

	if err := h.channels.UpdateChannel(ctx, channel); err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, channelResponse(channel, role), http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/channels/{id}
// Удаляет канал вместе с участниками и сообщениями
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	if _, err := h.evaluator.Can(ctx, claims.AccountID, channelID, auth.ActionDelete); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.channels.DeleteChannel(ctx, channelID); err != nil {
		// канал уже удален параллельным запросом
		if errors.Is(err, storage.ErrChannelNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "channel deleted",
		slog.String("channel_id", channelID),
		slog.String("account_id", claims.AccountID))

	w.WriteHeader(http.StatusNoContent)
}

func channelResponse(c *models.Channel, role models.Role) api.ChannelResponse {
	return api.ChannelResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Role:      string(role),
	}
}
