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

// Config holds the process-wide settings of the auth core. It is read once
// at startup and never mutated.
type Config struct {
	Keys           *crypto.Keyring
	AdminUsernames []string
	SessionTTL     time.Duration
}

// Service is the surface the HTTP layer talks to.
type Service struct {
	accounts    AccountStore
	credentials *CredentialStore
	sessions    *SessionManager
	evaluator   *Evaluator
	logger      *slog.Logger
}

// NewService wires the credential store, session manager and evaluator.
func NewService(accounts AccountStore, sessions storage.SessionStorage, members MembershipStore, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		accounts:    accounts,
		credentials: NewCredentialStore(accounts, cfg.AdminUsernames),
		sessions:    NewSessionManager(sessions, cfg.Keys, cfg.SessionTTL, logger),
		evaluator:   NewEvaluator(members),
		logger:      logger,
	}
}

// Evaluator returns the authorization evaluator.
func (s *Service) Evaluator() *Evaluator {
	return s.evaluator
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, username, password string) (*Token, error) {
	account, err := s.credentials.Register(ctx, username, password)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
		slog.Bool("admin", account.Admin))

	return s.issue(ctx, account)
}

// Login verifies credentials and issues a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	account, err := s.credentials.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, account)
}

func (s *Service) issue(ctx context.Context, account *models.Account) (*Token, error) {
	return s.sessions.Issue(ctx, Claims{
		AccountID: account.ID,
		Username:  account.Username,
		Admin:     account.Admin,
	})
}

// Authenticate resolves a bearer token. The account must still exist:
// session backends without foreign keys (redis) can outlive the account.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetAccountByID(ctx, claims.AccountID); err != nil {
		if !errors.Is(err, storage.ErrAccountNotFound) {
			return nil, internal("get account", err)
		}
		// сессия удаленного аккаунта
		if err := s.sessions.Revoke(ctx, token); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke session of deleted account",
				slog.String("account_id", claims.AccountID),
				slog.Any("error", err))
		}
		return nil, fmt.Errorf("%w: account deleted", ErrUnauthorized)
	}
	return claims, nil
}

// Authorize checks a channel action for an authenticated account.
func (s *Service) Authorize(ctx context.Context, accountID, channelID string, action Action) error {
	_, err := s.evaluator.Can(ctx, accountID, channelID, action)
	return err
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// LogoutAll revokes every session of the account.
func (s *Service) LogoutAll(ctx context.Context, accountID string) (int, error) {
	return s.sessions.RevokeAll(ctx, accountID)
}

// Account returns the account by id.
func (s *Service) Account(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: account", ErrNotFound)
		}
		return nil, internal("get account", err)
	}
	return account, nil
}

// DeleteAccount removes the account and revokes its sessions. The only
// admin of a channel must hand over or delete the channel first.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.accounts.DeleteAccount(ctx, accountID); err != nil {
		switch {
		case errors.Is(err, storage.ErrLastAdmin):
			return ErrLastAdmin
		case errors.Is(err, storage.ErrAccountNotFound):
			return fmt.Errorf("%w: account", ErrNotFound)
		}
		return internal("delete account", err)
	}

	// SQL хранилище удаляет сессии каскадом, Redis нет. Оставшиеся сессии
	// все равно отклоняет Authenticate
	if _, err := s.sessions.RevokeAll(ctx, accountID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions of deleted account",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "account deleted", slog.String("account_id", accountID))
	return nil
}

// PurgeExpiredSessions deletes expired sessions immediately.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.PurgeExpired(ctx)
}
