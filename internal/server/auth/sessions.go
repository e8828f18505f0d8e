package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/chatter/internal/crypto"
	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

// DefaultSessionTTL is the lifetime of a session when none is configured.
const DefaultSessionTTL = time.Hour

// Claims is the authorization-relevant data bound to a session.
type Claims struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	AccountID string
	Username  string
	// Admin is the account-wide scope. Channel decisions ignore it.
	Admin bool
}

// Token is a freshly issued bearer token with its claims.
type Token struct {
	Value string
	Claims
}

// SessionManager issues, verifies and revokes opaque session tokens.
// The raw token is returned to the client exactly once; storage only
// ever sees its keyed digest.
type SessionManager struct {
	store  storage.SessionStorage
	keys   *crypto.Keyring
	logger *slog.Logger
	now    func() time.Time
	ttl    time.Duration
}

// NewSessionManager creates a session manager. A non-positive ttl means
// DefaultSessionTTL.
func NewSessionManager(store storage.SessionStorage, keys *crypto.Keyring, ttl time.Duration, logger *slog.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		store:  store,
		keys:   keys,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates and persists a session for claims.AccountID. IssuedAt and
// ExpiresAt are set by the manager.
func (m *SessionManager) Issue(ctx context.Context, claims Claims) (*Token, error) {
	if claims.AccountID == "" {
		return nil, internal("issue session", errors.New("empty account id"))
	}

	value, err := crypto.NewToken()
	if err != nil {
		return nil, internal("generate token", err)
	}

	// миллисекунды: такую точность сохраняет хранилище
	now := m.now().UTC().Truncate(time.Millisecond)
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(m.ttl)

	session := &models.Session{
		TokenHash: m.keys.Digest(value),
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Admin:     claims.Admin,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, internal("save session", err)
	}

	return &Token{Value: value, Claims: claims}, nil
}

// Verify resolves a presented token into its claims.
// Malformed, unknown and expired tokens yield ErrUnauthorized; an expired
// session is deleted on the way out.
func (m *SessionManager) Verify(ctx context.Context, token string) (*Claims, error) {
	if err := crypto.CheckToken(token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var (
		session *models.Session
		digest  string
	)
	for _, candidate := range m.keys.Candidates(token) {
		s, err := m.store.GetSession(ctx, candidate)
		if errors.Is(err, storage.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, internal("get session", err)
		}
		session, digest = s, candidate
		break
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session not found", ErrUnauthorized)
	}

	if session.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, digest); err != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session",
				slog.String("account_id", session.AccountID),
				slog.Any("error", err))
		}
		return nil, fmt.Errorf("%w: session expired", ErrUnauthorized)
	}

	return &Claims{
		AccountID: session.AccountID,
		Username:  session.Username,
		Admin:     session.Admin,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Revoke deletes the session of token under every key. Unknown tokens are
// not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if err := crypto.CheckToken(token); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	for _, digest := range m.keys.Candidates(token) {
		if err := m.store.DeleteSession(ctx, digest); err != nil {
			return internal("delete session", err)
		}
	}
	return nil
}

// RevokeAll deletes every session of the account.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID string) (int, error) {
	n, err := m.store.DeleteAccountSessions(ctx, accountID)
	if err != nil {
		return 0, internal("delete account sessions", err)
	}
	return n, nil
}

// PurgeExpired deletes sessions that expired by now.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, internal("delete expired sessions", err)
	}
	return n, nil
}

// RunJanitor purges expired sessions every interval until ctx is done.
// Lazy expiry in Verify stays authoritative; the janitor only bounds
// storage growth.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.ErrorContext(ctx, "session janitor failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				m.logger.InfoContext(ctx, "purged expired sessions", slog.Int("count", n))
			}
		}
	}
}
