package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/internal/server/storage"
	"github.com/iudanet/chatter/internal/validation"
	"github.com/iudanet/chatter/pkg/api"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageHandler обрабатывает сообщения канала
type MessageHandler struct {
	responder
	evaluator *auth.Evaluator
	messages  storage.MessageStorage
	now       func() time.Time
}

// NewMessageHandler создает handler сообщений
func NewMessageHandler(logger *slog.Logger, evaluator *auth.Evaluator, messages storage.MessageStorage) *MessageHandler {
	return &MessageHandler{
		responder: responder{logger: logger},
		evaluator: evaluator,
		messages:  messages,
		now:       time.Now,
	}
}

// List обрабатывает GET /api/v1/channels/{id}/messages?limit=N&before=RFC3339
// Сообщения отдаются от новых к старым
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	if _, err := h.evaluator.Can(r.Context(), claims.AccountID, channelID, auth.ActionRead); err != nil {
		h.fail(w, r, err)
		return
	}

	limit, before, err := parsePage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	messages, err := h.messages.ListMessages(r.Context(), channelID, before, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := api.MessageListResponse{Messages: make([]api.MessageResponse, 0, len(messages))}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, messageResponse(m))
	}
	if len(messages) == limit {
		resp.NextBefore = messages[len(messages)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	h.sendJSON(w, resp, http.StatusOK)
}

func parsePage(r *http.Request) (int, time.Time, error) {
	q := r.URL.Query()

	limit := defaultPageSize
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, time.Time{}, fmt.Errorf("%w: limit must be a positive integer", auth.ErrInvalidInput)
		}
		limit = min(n, maxPageSize)
	}

	var before time.Time
	if s := q.Get("before"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: before must be an RFC 3339 timestamp", auth.ErrInvalidInput)
		}
		before = t
	}
	return limit, before, nil
}

// Post обрабатывает POST /api/v1/channels/{id}/messages
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	if _, err := h.evaluator.Can(ctx, claims.AccountID, channelID, auth.ActionPost); err != nil {
		h.fail(w, r, err)
		return
	}

	var req api.MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validation.ValidateMessage(req.Content); err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now().UTC()
	message := &models.Message{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		AccountID: claims.AccountID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.messages.CreateMessage(ctx, message); err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, messageResponse(message), http.StatusCreated)
}

// Get обрабатывает GET /api/v1/channels/{id}/messages/{message_id}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	if _, err := h.evaluator.Can(r.Context(), claims.AccountID, vars["id"], auth.ActionRead); err != nil {
		h.fail(w, r, err)
		return
	}

	message, err := h.messages.GetMessage(r.Context(), vars["id"], vars["message_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sendJSON(w, messageResponse(message), http.StatusOK)
}

// Update обрабатывает PATCH /api/v1/channels/{id}/messages/{message_id}
// Редактировать может только автор
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	var req api.MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validation.ValidateMessage(req.Content); err != nil {
		h.fail(w, r, err)
		return
	}

	message, ok := h.load(w, r, claims)
	if !ok {
		return
	}
	if err := h.evaluator.CanModifyMessage(ctx, claims.AccountID, message.ChannelID, message.AccountID, auth.ActionUpdate); err != nil {
		h.fail(w, r, err)
		return
	}

	message.Content = req.Content
	message.UpdatedAt = h.now().UTC()
	if err := h.messages.UpdateMessage(ctx, message); err != nil {
		h.fail(w, r, err)
		return
	}

	h.sendJSON(w, messageResponse(message), http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/channels/{id}/messages/{message_id}
// Удалить может автор или администратор канала
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}

	message, ok := h.load(w, r, claims)
	if !ok {
		return
	}
	if err := h.evaluator.CanModifyMessage(ctx, claims.AccountID, message.ChannelID, message.AccountID, auth.ActionDelete); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.messages.DeleteMessage(ctx, message.ChannelID, message.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "message deleted",
		slog.String("channel_id", message.ChannelID),
		slog.String("message_id", message.ID),
		slog.String("by", claims.AccountID))

	w.WriteHeader(http.StatusNoContent)
}

// load fetches the addressed message. Membership is checked first so that
// non-members cannot probe message ids.
func (h *MessageHandler) load(w http.ResponseWriter, r *http.Request, claims *auth.Claims) (*models.Message, bool) {
	vars := mux.Vars(r)

	if _, err := h.evaluator.Can(r.Context(), claims.AccountID, vars["id"], auth.ActionRead); err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	message, err := h.messages.GetMessage(r.Context(), vars["id"], vars["message_id"])
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return message, true
}

func messageResponse(m *models.Message) api.MessageResponse {
	return api.MessageResponse{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AccountID: m.AccountID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
