package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

const channelColumns = `c.id, c.name, c.created_by, c.created_at, c.updated_at`

// CreateChannel inserts the channel and its creator as admin atomically
func (s *Storage) CreateChannel(ctx context.Context, channel *models.Channel) error {
	return s.withTx(ctx, func(tx dbtx) error {
		query := `
			INSERT INTO channels (id, name, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, s.rebind(query),
			channel.ID,
			channel.Name,
			channel.CreatedBy,
			toMillis(channel.CreatedAt),
			toMillis(channel.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert channel: %w", err)
		}

		query = `
			INSERT INTO members (channel_id, account_id, role, joined_at)
			VALUES (?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, s.rebind(query),
			channel.ID,
			channel.CreatedBy,
			string(models.RoleAdmin),
			toMillis(channel.CreatedAt),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return storage.ErrAccountNotFound
			}
			return fmt.Errorf("failed to insert channel creator: %w", err)
		}
		return nil
	})
}

// GetChannel retrieves channel by ID
func (s *Storage) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels c WHERE c.id = ?`

	channel, err := scanChannel(s.db.QueryRowContext(ctx, s.rebind(query), channelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return channel, nil
}

// ListAccountChannels returns the channels accountID belongs to
func (s *Storage) ListAccountChannels(ctx context.Context, accountID string) ([]*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		JOIN members m ON m.channel_id = c.id
		WHERE m.account_id = ?
		ORDER BY c.created_at, c.id
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]*models.Channel, 0)
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}

	return channels, nil
}

// UpdateChannel updates channel name
func (s *Storage) UpdateChannel(ctx context.Context, channel *models.Channel) error {
	query := `UPDATE channels SET name = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, s.rebind(query),
		channel.Name,
		toMillis(channel.UpdatedAt),
		channel.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrChannelNotFound
	}

	return nil
}

// DeleteChannel deletes channel by ID
func (s *Storage) DeleteChannel(ctx context.Context, channelID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM channels WHERE id = ?`), channelID)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrChannelNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChannel(row scanner) (*models.Channel, error) {
	channel := &models.Channel{}
	var createdAt, updatedAt int64
	if err := row.Scan(&channel.ID, &channel.Name, &channel.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	channel.CreatedAt = fromMillis(createdAt)
	channel.UpdatedAt = fromMillis(updatedAt)
	return channel, nil
}
