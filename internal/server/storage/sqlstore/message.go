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

const (
	// DefaultMessageLimit is used when the caller asks for no specific page size
	DefaultMessageLimit = 50
	// MaxMessageLimit caps a single page of messages
	MaxMessageLimit = 100
)

const messageColumns = `id, channel_id, account_id, content, created_at, updated_at`

// CreateMessage stores a new message
func (s *Storage) CreateMessage(ctx context.Context, message *models.Message) error {
	query := `INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		message.ID,
		message.ChannelID,
		message.AccountID,
		message.Content,
		toMillis(message.CreatedAt),
		toMillis(message.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrChannelNotFound
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// GetMessage retrieves message by ID within a channel
func (s *Storage) GetMessage(ctx context.Context, channelID, messageID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE channel_id = ? AND id = ?`

	message, err := scanMessage(s.db.QueryRowContext(ctx, s.rebind(query), channelID, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return message, nil
}

// ListMessages returns a page of channel messages, newest first
func (s *Storage) ListMessages(ctx context.Context, channelID string, before time.Time, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE channel_id = ?`
	args := []any{channelID}
	if !before.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, toMillis(before))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// UpdateMessage updates message content
func (s *Storage) UpdateMessage(ctx context.Context, message *models.Message) error {
	query := `UPDATE messages SET content = ?, updated_at = ? WHERE channel_id = ? AND id = ?`

	res, err := s.db.ExecContext(ctx, s.rebind(query),
		message.Content,
		toMillis(message.UpdatedAt),
		message.ChannelID,
		message.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrMessageNotFound
	}

	return nil
}

// DeleteMessage deletes message by ID within a channel
func (s *Storage) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	query := `DELETE FROM messages WHERE channel_id = ? AND id = ?`

	res, err := s.db.ExecContext(ctx, s.rebind(query), channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrMessageNotFound
	}

	return nil
}

func scanMessage(row scanner) (*models.Message, error) {
	message := &models.Message{}
	var createdAt, updatedAt int64
	if err := row.Scan(
		&message.ID,
		&message.ChannelID,
		&message.AccountID,
		&message.Content,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	message.CreatedAt = fromMillis(createdAt)
	message.UpdatedAt = fromMillis(updatedAt)
	return message, nil
}
