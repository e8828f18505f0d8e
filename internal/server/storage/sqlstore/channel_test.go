package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

func TestChannelStorage_CreateChannel_CreatorIsAdmin(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	channel := createTestChannel(t, s, alice, "general")

	got, err := s.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", got.Name)
	assert.Equal(t, alice.ID, got.CreatedBy)

	member, err := s.GetMember(ctx, channel.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, member.Role)

	n, err := s.CountAdmins(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChannelStorage_CreateChannel_UnknownCreator(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	channel := &models.Channel{
		ID:        uuid.New().String(),
		Name:      "orphan",
		CreatedBy: uuid.New().String(),
		CreatedAt: testNow(),
		UpdatedAt: testNow(),
	}
	err := s.CreateChannel(ctx, channel)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	// транзакция откатывается целиком
	_, err = s.GetChannel(ctx, channel.ID)
	assert.ErrorIs(t, err, storage.ErrChannelNotFound)
}

func TestChannelStorage_ListAccountChannels(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	bob := createTestAccount(t, s, "bob")
	c1 := createTestChannel(t, s, alice, "one")
	createTestChannel(t, s, alice, "two")
	c3 := createTestChannel(t, s, bob, "three")
	addTestMember(t, s, c1, bob, models.RoleMember)

	channels, err := s.ListAccountChannels(ctx, bob.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, c := range channels {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{c1.ID, c3.ID}, ids)

	none, err := s.ListAccountChannels(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChannelStorage_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	channel := createTestChannel(t, s, alice, "general")

	channel.Name = "renamed"
	channel.UpdatedAt = testNow().Add(time.Minute)
	require.NoError(t, s.UpdateChannel(ctx, channel))

	got, err := s.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, channel.UpdatedAt.UnixMilli(), got.UpdatedAt.UnixMilli())

	require.NoError(t, s.DeleteChannel(ctx, channel.ID))
	_, err = s.GetChannel(ctx, channel.ID)
	assert.ErrorIs(t, err, storage.ErrChannelNotFound)
	_, err = s.GetMember(ctx, channel.ID, alice.ID)
	assert.ErrorIs(t, err, storage.ErrMemberNotFound, "members cascade")

	assert.ErrorIs(t, s.DeleteChannel(ctx, channel.ID), storage.ErrChannelNotFound)
	assert.ErrorIs(t, s.UpdateChannel(ctx, channel), storage.ErrChannelNotFound)
}

func TestMemberStorage_AddMember(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	bob := createTestAccount(t, s, "bob")
	channel := createTestChannel(t, s, alice, "general")

	tests := []struct {
		wantErr error
		member  *models.Member
		name    string
	}{
		{
			name:   "add member",
			member: &models.Member{ChannelID: channel.ID, AccountID: bob.ID, Role: models.RoleMember},
		},
		{
			name:    "duplicate",
			member:  &models.Member{ChannelID: channel.ID, AccountID: bob.ID, Role: models.RoleAdmin},
			wantErr: storage.ErrMemberExists,
		},
		{
			name:    "unknown account",
			member:  &models.Member{ChannelID: channel.ID, AccountID: uuid.New().String(), Role: models.RoleMember},
			wantErr: storage.ErrAccountNotFound,
		},
		{
			name:    "unknown channel",
			member:  &models.Member{ChannelID: uuid.New().String(), AccountID: bob.ID, Role: models.RoleMember},
			wantErr: storage.ErrChannelNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.member.JoinedAt = testNow()
			err := s.AddMember(ctx, tt.member)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	members, err := s.ListMembers(ctx, channel.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	byName := map[string]models.Role{}
	for _, m := range members {
		byName[m.Username] = m.Role
	}
	assert.Equal(t, map[string]models.Role{"alice": models.RoleAdmin, "bob": models.RoleMember}, byName)
}

func TestMemberStorage_LastAdminGuard(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	bob := createTestAccount(t, s, "bob")
	channel := createTestChannel(t, s, alice, "general")
	addTestMember(t, s, channel, bob, models.RoleMember)

	assert.ErrorIs(t, s.UpdateMemberRole(ctx, channel.ID, alice.ID, models.RoleMember), storage.ErrLastAdmin)
	assert.ErrorIs(t, s.RemoveMember(ctx, channel.ID, alice.ID), storage.ErrLastAdmin)

	// повышаем bob, после чего alice может уйти
	require.NoError(t, s.UpdateMemberRole(ctx, channel.ID, bob.ID, models.RoleAdmin))
	require.NoError(t, s.RemoveMember(ctx, channel.ID, alice.ID))

	n, err := s.CountAdmins(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, s.RemoveMember(ctx, channel.ID, alice.ID), storage.ErrMemberNotFound)
	assert.ErrorIs(t, s.UpdateMemberRole(ctx, channel.ID, alice.ID, models.RoleAdmin), storage.ErrMemberNotFound)
}
