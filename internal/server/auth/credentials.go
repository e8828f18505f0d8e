package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/chatter/internal/crypto"
	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
	"github.com/iudanet/chatter/internal/validation"
)

// AccountStore is the part of account storage the credential store needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*models.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// CredentialStore registers accounts and checks their passwords.
type CredentialStore struct {
	accounts AccountStore
	admins   map[string]struct{}
	now      func() time.Time
	hasher   crypto.PasswordHasher
	// dummy is verified against when the username is unknown so that both
	// failure paths cost one digest computation.
	dummy models.Credential
}

// NewCredentialStore creates a credential store. Accounts registered with a
// username from adminUsernames get the account-wide admin flag.
func NewCredentialStore(accounts AccountStore, adminUsernames []string) *CredentialStore {
	admins := make(map[string]struct{}, len(adminUsernames))
	for _, u := range adminUsernames {
		admins[u] = struct{}{}
	}
	return &CredentialStore{
		accounts: accounts,
		admins:   admins,
		now:      time.Now,
		dummy: models.Credential{
			Salt: make([]byte, crypto.SaltSize),
			Hash: make([]byte, crypto.HashSize),
		},
	}
}

// Register creates an account and returns it.
// Errors: ErrInvalidInput, ErrConflict, ErrInternal.
func (c *CredentialStore) Register(ctx context.Context, username, password string) (*models.Account, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	cred, err := c.hasher.Hash([]byte(password))
	if err != nil {
		return nil, internal("hash password", err)
	}

	_, admin := c.admins[username]
	account := &models.Account{
		ID:         uuid.New().String(),
		Username:   username,
		Credential: cred,
		Admin:      admin,
		CreatedAt:  c.now().UTC(),
	}

	// Уникальность проверяет только хранилище: pre-check здесь гонка
	if err := c.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return nil, fmt.Errorf("%w: username %q already taken", ErrConflict, username)
		}
		return nil, internal("create account", err)
	}

	return account, nil
}

// Authenticate checks a username and password pair.
// An unknown username and a wrong password both yield ErrUnauthorized.
func (c *CredentialStore) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := c.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			_, _ = c.hasher.Verify(c.dummy.Salt, []byte(password), c.dummy.Hash)
			return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
		}
		return nil, internal("get account", err)
	}

	ok, err := c.hasher.Verify(account.Credential.Salt, []byte(password), account.Credential.Hash)
	if err != nil {
		return nil, internal("verify password", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}

	return account, nil
}
