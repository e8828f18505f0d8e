package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

func TestMessageStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	channel := createTestChannel(t, s, alice, "general")
	other := createTestChannel(t, s, alice, "other")

	msg := &models.Message{
		ID:        uuid.New().String(),
		ChannelID: channel.ID,
		AccountID: alice.ID,
		Content:   "hello",
		CreatedAt: testNow(),
		UpdatedAt: testNow(),
	}
	require.NoError(t, s.CreateMessage(ctx, msg))

	got, err := s.GetMessage(ctx, channel.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, alice.ID, got.AccountID)

	// сообщение не видно через чужой канал
	_, err = s.GetMessage(ctx, other.ID, msg.ID)
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)

	msg.Content = "edited"
	msg.UpdatedAt = testNow().Add(time.Second)
	require.NoError(t, s.UpdateMessage(ctx, msg))
	got, err = s.GetMessage(ctx, channel.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	assert.ErrorIs(t, s.DeleteMessage(ctx, other.ID, msg.ID), storage.ErrMessageNotFound)
	require.NoError(t, s.DeleteMessage(ctx, channel.ID, msg.ID))
	assert.ErrorIs(t, s.DeleteMessage(ctx, channel.ID, msg.ID), storage.ErrMessageNotFound)
	assert.ErrorIs(t, s.UpdateMessage(ctx, msg), storage.ErrMessageNotFound)
}

func TestMessageStorage_ListMessages(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, s, "alice")
	channel := createTestChannel(t, s, alice, "general")

	base := testNow().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateMessage(ctx, &models.Message{
			ID:        uuid.New().String(),
			ChannelID: channel.ID,
			AccountID: alice.ID,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: at,
			UpdatedAt: at,
		}))
	}

	tests := []struct {
		before time.Time
		name   string
		want   []string
		limit  int
	}{
		{name: "newest first", limit: 10, want: []string{"m4", "m3", "m2", "m1", "m0"}},
		{name: "limited", limit: 2, want: []string{"m4", "m3"}},
		{name: "cursor", limit: 10, before: base.Add(2 * time.Minute), want: []string{"m1", "m0"}},
		{name: "default limit", limit: 0, want: []string{"m4", "m3", "m2", "m1", "m0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := s.ListMessages(ctx, channel.ID, tt.before, tt.limit)
			require.NoError(t, err)
			got := make([]string, 0, len(msgs))
			for _, m := range msgs {
				got = append(got, m.Content)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
