package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

// GetMember retrieves the membership of accountID in channelID
func (s *Storage) GetMember(ctx context.Context, channelID, accountID string) (*models.Member, error) {
	return s.getMember(ctx, s.db, channelID, accountID)
}

func (s *Storage) getMember(ctx context.Context, q dbtx, channelID, accountID string) (*models.Member, error) {
	query := `
		SELECT channel_id, account_id, role, joined_at
		FROM members
		WHERE channel_id = ? AND account_id = ?
	`

	member := &models.Member{}
	var role string
	var joinedAt int64

	err := q.QueryRowContext(ctx, s.rebind(query), channelID, accountID).Scan(
		&member.ChannelID,
		&member.AccountID,
		&role,
		&joinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	member.Role = models.Role(role)
	member.JoinedAt = fromMillis(joinedAt)

	return member, nil
}

// ListMembers returns members of the channel with their usernames
func (s *Storage) ListMembers(ctx context.Context, channelID string) ([]*models.Member, error) {
	query := `
		SELECT m.channel_id, m.account_id, a.username, m.role, m.joined_at
		FROM members m
		JOIN accounts a ON a.id = m.account_id
		WHERE m.channel_id = ?
		ORDER BY m.joined_at, a.username
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		member := &models.Member{}
		var role string
		var joinedAt int64
		if err := rows.Scan(&member.ChannelID, &member.AccountID, &member.Username, &role, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.Role = models.Role(role)
		member.JoinedAt = fromMillis(joinedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// CountAdmins returns the number of admins in the channel
func (s *Storage) CountAdmins(ctx context.Context, channelID string) (int, error) {
	query := `SELECT COUNT(*) FROM members WHERE channel_id = ? AND role = 'admin'`

	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), channelID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

// AddMember inserts a new membership
func (s *Storage) AddMember(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (channel_id, account_id, role, joined_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		member.ChannelID,
		member.AccountID,
		string(member.Role),
		toMillis(member.JoinedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return storage.ErrMemberExists
		case isForeignKeyViolation(err):
			return s.missingReference(ctx, member.AccountID)
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}

	return nil
}

// missingReference resolves which side of a membership foreign key is absent.
func (s *Storage) missingReference(ctx context.Context, accountID string) error {
	_, err := s.GetAccountByID(ctx, accountID)
	switch {
	case errors.Is(err, storage.ErrAccountNotFound):
		return storage.ErrAccountNotFound
	case err != nil:
		return err
	}
	return storage.ErrChannelNotFound
}

// UpdateMemberRole changes a member's role keeping at least one admin
func (s *Storage) UpdateMemberRole(ctx context.Context, channelID, accountID string, role models.Role) error {
	return s.withTx(ctx, func(tx dbtx) error {
		admins, err := s.lockAdmins(ctx, tx, channelID)
		if err != nil {
			return err
		}
		member, err := s.getMember(ctx, tx, channelID, accountID)
		if err != nil {
			return err
		}
		if member.Role == models.RoleAdmin && role != models.RoleAdmin && admins <= 1 {
			return storage.ErrLastAdmin
		}

		query := `UPDATE members SET role = ? WHERE channel_id = ? AND account_id = ?`
		if _, err := tx.ExecContext(ctx, s.rebind(query), string(role), channelID, accountID); err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		return nil
	})
}

// RemoveMember deletes a membership keeping at least one admin
func (s *Storage) RemoveMember(ctx context.Context, channelID, accountID string) error {
	return s.withTx(ctx, func(tx dbtx) error {
		admins, err := s.lockAdmins(ctx, tx, channelID)
		if err != nil {
			return err
		}
		member, err := s.getMember(ctx, tx, channelID, accountID)
		if err != nil {
			return err
		}
		if member.Role == models.RoleAdmin && admins <= 1 {
			return storage.ErrLastAdmin
		}

		query := `DELETE FROM members WHERE channel_id = ? AND account_id = ?`
		if _, err := tx.ExecContext(ctx, s.rebind(query), channelID, accountID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
}

// lockAdmins counts the channel admins, locking their rows on PostgreSQL so
// that concurrent demotions serialize.
func (s *Storage) lockAdmins(ctx context.Context, tx dbtx, channelID string) (int, error) {
	query := `SELECT account_id FROM members WHERE channel_id = ? AND role = 'admin'` + s.forUpdate()

	rows, err := tx.QueryContext(ctx, s.rebind(query), channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock admins: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate admins: %w", err)
	}
	return n, nil
}
