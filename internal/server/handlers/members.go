package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/internal/server/storage"
	"github.com/iudanet/chatter/pkg/api"
)

// AccountLookup resolves usernames for AddMember.
type AccountLookup interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

// MemberHandler обрабатывает управление участниками канала
type MemberHandler struct {
	responder
	evaluator *auth.Evaluator
	members   storage.MemberStorage
	accounts  AccountLookup
	now       func() time.Time
}

// NewMemberHandler создает handler участников
func NewMemberHandler(logger *slog.Logger, evaluator *auth.Evaluator, members storage.MemberStorage, accounts AccountLookup) *MemberHandler {
	return &MemberHandler{
		responder: responder{logger: logger},
		evaluator: evaluator,
		members:   members,
		accounts:  accounts,
		now:       time.Now,
	}
}

// List обрабатывает GET /api/v1/channels/{id}/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	if _, err := h.evaluator.Can(r.Context(), claims.AccountID, channelID, auth.ActionRead); err != nil {
		h.fail(w, r, err)
		return
	}

	members, err := h.members.ListMembers(r.Context(), channelID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := api.MemberListResponse{Members: make([]api.MemberResponse, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, memberResponse(m))
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Get обрабатывает GET /api/v1/channels/{id}/members/{account_id}
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	if _, err := h.evaluator.Can(r.Context(), claims.AccountID, vars["id"], auth.ActionRead); err != nil {
		h.fail(w, r, err)
		return
	}

	member, err := h.members.GetMember(r.Context(), vars["id"], vars["account_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sendJSON(w, memberResponse(member), http.StatusOK)
}

// Add обрабатывает POST /api/v1/channels/{id}/members
// Аккаунт указывается по account_id или по username
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	channelID := mux.Vars(r)["id"]

	var req api.AddMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	role := models.RoleMember
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	if err := h.evaluator.CanAddMember(ctx, claims.AccountID, channelID, role); err != nil {
		h.fail(w, r, err)
		return
	}

	member := &models.Member{
		ChannelID: channelID,
		AccountID: req.AccountID,
		Role:      role,
		JoinedAt:  h.now().UTC(),
	}
	switch {
	case req.AccountID != "":
	case req.Username != "":
		account, err := h.accounts.GetAccountByUsername(ctx, req.Username)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		member.AccountID = account.ID
		member.Username = account.Username
	default:
		h.fail(w, r, fmt.Errorf("%w: account_id or username is required", auth.ErrInvalidInput))
		return
	}

	if err := h.members.AddMember(ctx, member); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "member added",
		slog.String("channel_id", channelID),
		slog.String("account_id", member.AccountID),
		slog.String("role", string(role)),
		slog.String("by", claims.AccountID))

	h.sendJSON(w, memberResponse(member), http.StatusCreated)
}

// Update обрабатывает PATCH /api/v1/channels/{id}/members/{account_id}
// Смена роли участника
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	channelID, targetID := vars["id"], vars["account_id"]

	var req api.UpdateMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	role := models.Role(req.Role)

	if err := h.evaluator.CanChangeRole(ctx, claims.AccountID, channelID, targetID, role); err != nil {
		h.fail(w, r, err)
		return
	}

	// последнего админа защищает еще и транзакция в хранилище
	if err := h.members.UpdateMemberRole(ctx, channelID, targetID, role); err != nil {
		h.fail(w, r, err)
		return
	}

	member, err := h.members.GetMember(ctx, channelID, targetID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "member role changed",
		slog.String("channel_id", channelID),
		slog.String("account_id", targetID),
		slog.String("role", string(role)),
		slog.String("by", claims.AccountID))

	h.sendJSON(w, memberResponse(member), http.StatusOK)
}

// Remove обрабатывает DELETE /api/v1/channels/{id}/members/{account_id}
// Удаление самого себя означает выход из канала
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.requireClaims(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	channelID, targetID := vars["id"], vars["account_id"]

	if err := h.evaluator.CanRemoveMember(ctx, claims.AccountID, channelID, targetID); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.members.RemoveMember(ctx, channelID, targetID); err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "member removed",
		slog.String("channel_id", channelID),
		slog.String("account_id", targetID),
		slog.String("by", claims.AccountID))

	w.WriteHeader(http.StatusNoContent)
}

func memberResponse(m *models.Member) api.MemberResponse {
	return api.MemberResponse{
		AccountID: m.AccountID,
		Username:  m.Username,
		Role:      string(m.Role),
		JoinedAt:  m.JoinedAt,
	}
}
