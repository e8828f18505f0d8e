// Package redisstore keeps sessions in Redis with native key expiry.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

const (
	sessionKeyPrefix = "session:"
	accountKeyPrefix = "account:"
)

var _ storage.SessionStorage = (*SessionStore)(nil)

// SessionStore implements storage.SessionStorage on Redis.
// Each session is a JSON value under session:<digest> whose TTL ends at the
// session expiry; account:<id>:sessions indexes them for bulk revocation.
type SessionStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewSessionStore returns a new session store.
func NewSessionStore(rdb redis.Cmdable) *SessionStore {
	return &SessionStore{rdb: rdb, now: time.Now}
}

// Connect opens a client and checks connectivity.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

type sessionRecord struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
	Admin     bool   `json:"admin"`
}

func sessionKey(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

func accountKey(accountID string) string {
	return accountKeyPrefix + accountID + ":sessions"
}

// SaveSession stores the session until its expiry. Sessions already expired
// are not written.
func (s *SessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(sessionRecord{
		AccountID: session.AccountID,
		Username:  session.Username,
		Admin:     session.Admin,
		IssuedAt:  session.IssuedAt.UnixMilli(),
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// TTL одинаковый для всех сессий, поэтому индекс живет не дольше последней
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.TokenHash), data, ttl)
		pipe.SAdd(ctx, accountKey(session.AccountID), session.TokenHash)
		pipe.Expire(ctx, accountKey(session.AccountID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves session by token digest
func (s *SessionStore) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	rec, err := s.get(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		TokenHash: tokenHash,
		AccountID: rec.AccountID,
		Username:  rec.Username,
		Admin:     rec.Admin,
		IssuedAt:  time.UnixMilli(rec.IssuedAt).UTC(),
		ExpiresAt: time.UnixMilli(rec.ExpiresAt).UTC(),
	}, nil
}

func (s *SessionStore) get(ctx context.Context, tokenHash string) (*sessionRecord, error) {
	data, err := s.rdb.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

// DeleteSession removes a session; absent sessions are ignored
func (s *SessionStore) DeleteSession(ctx context.Context, tokenHash string) error {
	rec, err := s.get(ctx, tokenHash)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(tokenHash))
		pipe.SRem(ctx, accountKey(rec.AccountID), tokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAccountSessions deletes all live sessions of an account
func (s *SessionStore) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	hashes, err := s.rdb.SMembers(ctx, accountKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list account sessions: %w", err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, sessionKey(h))
	}

	var deleted *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.Del(ctx, accountKey(accountID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete account sessions: %w", err)
	}
	return int(deleted.Val()), nil
}

// DeleteExpiredSessions is a no-op: Redis evicts expired keys itself.
func (s *SessionStore) DeleteExpiredSessions(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
