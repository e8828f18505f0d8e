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
)

// setupTestStorage creates an in-memory SQLite storage with migrations applied
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	s, err := Open(context.Background(), DialectSQLite, ":memory:")
	require.NoError(t, err)

	return s, func() {
		_ = s.Close()
	}
}

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func createTestAccount(t *testing.T, s *Storage, username string) *models.Account {
	t.Helper()

	account := &models.Account{
		ID:       uuid.New().String(),
		Username: username,
		Credential: models.Credential{
			Salt: []byte("0123456789abcdef"),
			Hash: []byte("0123456789abcdef0123456789abcdef"),
		},
		CreatedAt: testNow(),
	}
	require.NoError(t, s.CreateAccount(context.Background(), account))
	return account
}

func createTestChannel(t *testing.T, s *Storage, owner *models.Account, name string) *models.Channel {
	t.Helper()

	now := testNow()
	channel := &models.Channel{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateChannel(context.Background(), channel))
	return channel
}

func addTestMember(t *testing.T, s *Storage, channel *models.Channel, account *models.Account, role models.Role) {
	t.Helper()

	require.NoError(t, s.AddMember(context.Background(), &models.Member{
		ChannelID: channel.ID,
		AccountID: account.ID,
		Role:      role,
		JoinedAt:  testNow(),
	}))
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("mysql"), "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestStorage_Rebind(t *testing.T) {
	query := `SELECT a FROM t WHERE x = ? AND y IN (?, ?)`

	assert.Equal(t, query, New(nil, DialectSQLite).rebind(query))
	assert.Equal(t,
		`SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)`,
		New(nil, DialectPostgres).rebind(query))
}

func TestStorage_ForUpdate(t *testing.T) {
	assert.Empty(t, New(nil, DialectSQLite).forUpdate())
	assert.Equal(t, " FOR UPDATE", New(nil, DialectPostgres).forUpdate())
}

func TestStorage_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	boom := fmt.Errorf("boom")
	err := s.withTx(ctx, func(tx dbtx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, username, password_salt, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			"id-1", "ghost", []byte("s"), []byte("h"), false, 0)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetAccountByID(ctx, "id-1")
	assert.Error(t, err, "insert must be rolled back")
}
