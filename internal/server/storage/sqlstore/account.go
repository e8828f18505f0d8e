package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

const accountColumns = `id, username, password_salt, password_hash, is_admin, created_at`

// CreateAccount creates a new account in the storage
func (s *Storage) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		account.ID,
		account.Username,
		account.Credential.Salt,
		account.Credential.Hash,
		account.Admin,
		toMillis(account.CreatedAt),
	)
	if err != nil {
		// Уникальность username гарантирует только constraint
		if isUniqueViolation(err) {
			return storage.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// GetAccountByUsername retrieves account by username
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`
	return s.getAccount(ctx, query, username)
}

// GetAccountByID retrieves account by ID
func (s *Storage) GetAccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return s.getAccount(ctx, query, accountID)
}

func (s *Storage) getAccount(ctx context.Context, query string, arg string) (*models.Account, error) {
	account := &models.Account{}
	var createdAt int64

	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).Scan(
		&account.ID,
		&account.Username,
		&account.Credential.Salt,
		&account.Credential.Hash,
		&account.Admin,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account.CreatedAt = fromMillis(createdAt)

	return account, nil
}

// DeleteAccount deletes the account; sessions, memberships and messages
// are removed by cascade. An account that is the only admin of a channel
// cannot be deleted.
func (s *Storage) DeleteAccount(ctx context.Context, accountID string) error {
	return s.withTx(ctx, func(tx dbtx) error {
		orphaned, err := s.soleAdminChannels(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if orphaned > 0 {
			return storage.ErrLastAdmin
		}

		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM accounts WHERE id = ?`), accountID)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		rows, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if rows == 0 {
			return storage.ErrAccountNotFound
		}
		return nil
	})
}

// soleAdminChannels counts channels where accountID is the only admin.
// Admin rows of those channels stay locked until the transaction ends.
func (s *Storage) soleAdminChannels(ctx context.Context, tx dbtx, accountID string) (int, error) {
	query := `
		SELECT channel_id, account_id FROM members
		WHERE role = 'admin' AND channel_id IN (
			SELECT channel_id FROM members WHERE account_id = ? AND role = 'admin'
		)` + s.forUpdate()

	rows, err := tx.QueryContext(ctx, s.rebind(query), accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to query channel admins: %w", err)
	}
	defer rows.Close()

	admins := make(map[string]int)
	for rows.Next() {
		var channelID, adminID string
		if err := rows.Scan(&channelID, &adminID); err != nil {
			return 0, fmt.Errorf("failed to scan channel admin: %w", err)
		}
		admins[channelID]++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate channel admins: %w", err)
	}

	n := 0
	for _, count := range admins {
		if count == 1 {
			n++
		}
	}
	return n, nil
}
