package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

// SaveSession stores a new session
func (s *Storage) SaveSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token_hash, account_id, issued_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		session.TokenHash,
		session.AccountID,
		toMillis(session.IssuedAt),
		toMillis(session.ExpiresAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrAccountNotFound
		}
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves session by token digest together with the owner's
// username and admin flag
func (s *Storage) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT s.token_hash, s.account_id, a.username, a.is_admin, s.issued_at, s.expires_at
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token_hash = ?
	`

	session := &models.Session{}
	var issuedAt, expiresAt int64

	err := s.db.QueryRowContext(ctx, s.rebind(query), tokenHash).Scan(
		&session.TokenHash,
		&session.AccountID,
		&session.Username,
		&session.Admin,
		&issuedAt,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.IssuedAt = fromMillis(issuedAt)
	session.ExpiresAt = fromMillis(expiresAt)

	return session, nil
}

// DeleteSession deletes session by token digest; absent sessions are ignored
func (s *Storage) DeleteSession(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM sessions WHERE token_hash = ?`

	if _, err := s.db.ExecContext(ctx, s.rebind(query), tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteAccountSessions deletes all sessions for an account
func (s *Storage) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	query := `DELETE FROM sessions WHERE account_id = ?`

	res, err := s.db.ExecContext(ctx, s.rebind(query), accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete account sessions: %w", err)
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}

// DeleteExpiredSessions removes all sessions expired at now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM sessions WHERE expires_at <= ?`

	res, err := s.db.ExecContext(ctx, s.rebind(query), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}
