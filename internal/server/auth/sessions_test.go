package auth

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatter/internal/crypto"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testKeyring(t *testing.T, keys ...string) *crypto.Keyring {
	t.Helper()
	if len(keys) == 0 {
		keys = []string{"primary"}
	}
	raw := make([][]byte, 0, len(keys))
	for _, k := range keys {
		raw = append(raw, bytes.Repeat([]byte(k), 32)[:32])
	}
	kr, err := crypto.NewKeyring(raw...)
	require.NoError(t, err)
	return kr
}

func setupSessionManager(t *testing.T) (*SessionManager, *fakeSessions, *fakeClock) {
	t.Helper()
	store := newFakeSessions()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewSessionManager(store, testKeyring(t), time.Hour, setupTestLogger())
	m.now = clock.Now
	return m, store, clock
}

func TestSessionManager_IssueVerify(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupSessionManager(t)

	tok, err := m.Issue(ctx, Claims{AccountID: "acc-1", Username: "alice", Admin: true})
	require.NoError(t, err)
	assert.NoError(t, crypto.CheckToken(tok.Value))
	assert.True(t, tok.IssuedAt.Equal(clock.Now()))
	assert.True(t, tok.ExpiresAt.Equal(clock.Now().Add(time.Hour)))

	// хранится только digest, не сам токен
	_, raw := store.byHash[tok.Value]
	assert.False(t, raw)
	assert.Equal(t, 1, store.count())

	claims, err := m.Verify(ctx, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.Admin)
}

func TestSessionManager_Issue_RequiresAccount(t *testing.T) {
	m, _, _ := setupSessionManager(t)
	_, err := m.Issue(context.Background(), Claims{})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestSessionManager_Verify_Expiry(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupSessionManager(t)

	tok, err := m.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)

	clock.Advance(time.Hour - time.Millisecond)
	_, err = m.Verify(ctx, tok.Value)
	require.NoError(t, err, "still valid just before expiry")

	clock.Advance(time.Millisecond)
	_, err = m.Verify(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrUnauthorized, "now == expires_at is expired")
	assert.Zero(t, store.count(), "expired session deleted lazily")

	_, err = m.Verify(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionManager_Verify_ExpiredDeleteFails(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupSessionManager(t)

	tok, err := m.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)

	store.deleteErr = errors.New("read-only replica")
	clock.Advance(2 * time.Hour)

	_, err = m.Verify(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, store.deletes)
}

func TestSessionManager_Verify_Rejects(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setupSessionManager(t)

	unknown, err := crypto.NewToken()
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "garbage"},
		{name: "unknown", token: unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(ctx, tt.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}

	// malformed токены отбрасываются без обращения к хранилищу
	store.getErr = errors.New("must not be called")
	_, err = m.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionManager_Verify_StorageError(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setupSessionManager(t)

	tok, err := m.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)

	store.getErr = errors.New("timeout")
	_, err = m.Verify(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestSessionManager_Revoke(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupSessionManager(t)

	t1, err := m.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)
	t2, err := m.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)
	other, err := m.Issue(ctx, Claims{AccountID: "acc-2"})
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, t1.Value))
	require.NoError(t, m.Revoke(ctx, t1.Value), "revoking twice is fine")
	_, err = m.Verify(ctx, t1.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = m.Verify(ctx, t2.Value)
	assert.NoError(t, err, "other sessions of the account survive")

	n, err := m.RevokeAll(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = m.Verify(ctx, t2.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = m.Verify(ctx, other.Value)
	assert.NoError(t, err)

	assert.ErrorIs(t, m.Revoke(ctx, "garbage"), ErrUnauthorized)
}

func TestSessionManager_KeyRotation(t *testing.T) {
	ctx := context.Background()
	store := newFakeSessions()

	before := NewSessionManager(store, testKeyring(t, "old"), time.Hour, setupTestLogger())
	tok, err := before.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)

	after := NewSessionManager(store, testKeyring(t, "new", "old"), time.Hour, setupTestLogger())
	claims, err := after.Verify(ctx, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)

	require.NoError(t, after.Revoke(ctx, tok.Value))
	_, err = after.Verify(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)

	dropped := NewSessionManager(store, testKeyring(t, "new"), time.Hour, setupTestLogger())
	tok2, err := before.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)
	_, err = dropped.Verify(ctx, tok2.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionManager_PurgeAndJanitor(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupSessionManager(t)

	_, err := m.Issue(ctx, Claims{AccountID: "acc-1"})
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	_, err = m.Issue(ctx, Claims{AccountID: "acc-2"})
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	n, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	clock.Advance(time.Hour)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		m.RunJanitor(runCtx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.count() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestNewSessionManager_DefaultTTL(t *testing.T) {
	m := NewSessionManager(newFakeSessions(), testKeyring(t), 0, setupTestLogger())
	assert.Equal(t, DefaultSessionTTL, m.TTL())
}
