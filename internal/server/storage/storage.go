package storage

import (
	"context"
	"time"

	"github.com/iudanet/chatter/internal/models"
)

// AccountStorage defines interface for account persistence
type AccountStorage interface {
	// CreateAccount inserts a new account in a single statement.
	// Returns ErrAccountExists if the username is taken; uniqueness is
	// enforced by the store, not pre-checked.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccountByUsername retrieves account by username
	// Returns ErrAccountNotFound if account doesn't exist
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)

	// GetAccountByID retrieves account by ID
	// Returns ErrAccountNotFound if account doesn't exist
	GetAccountByID(ctx context.Context, accountID string) (*models.Account, error)

	// DeleteAccount removes the account with its sessions, memberships and messages.
	// Returns ErrLastAdmin if the account is the only admin of some channel,
	// ErrAccountNotFound if it doesn't exist.
	DeleteAccount(ctx context.Context, accountID string) error
}

// SessionStorage defines interface for session persistence.
// Sessions are keyed by the keyed digest of the bearer token.
type SessionStorage interface {
	// SaveSession stores a new session record
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves a session by token digest, including the
	// owner's current username and admin flag.
	// Returns ErrSessionNotFound if no such session exists
	GetSession(ctx context.Context, tokenHash string) (*models.Session, error)

	// DeleteSession removes a session. Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, tokenHash string) error

	// DeleteAccountSessions deletes all sessions of an account
	// Returns number of deleted sessions
	DeleteAccountSessions(ctx context.Context, accountID string) (int, error)

	// DeleteExpiredSessions removes sessions with expires_at <= now
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// ChannelStorage defines interface for channel persistence
type ChannelStorage interface {
	// CreateChannel inserts the channel and its creator as admin in one transaction.
	CreateChannel(ctx context.Context, channel *models.Channel) error

	// GetChannel returns ErrChannelNotFound if channel doesn't exist
	GetChannel(ctx context.Context, channelID string) (*models.Channel, error)

	// ListAccountChannels returns channels the account is a member of, oldest first
	ListAccountChannels(ctx context.Context, accountID string) ([]*models.Channel, error)

	// UpdateChannel updates name and updated_at
	// Returns ErrChannelNotFound if channel doesn't exist
	UpdateChannel(ctx context.Context, channel *models.Channel) error

	// DeleteChannel removes the channel with its members and messages
	// Returns ErrChannelNotFound if channel doesn't exist
	DeleteChannel(ctx context.Context, channelID string) error
}

// MemberStorage defines interface for channel membership persistence
type MemberStorage interface {
	// GetMember returns ErrMemberNotFound if the account is not a member
	GetMember(ctx context.Context, channelID, accountID string) (*models.Member, error)

	// ListMembers returns channel members with usernames, in join order
	ListMembers(ctx context.Context, channelID string) ([]*models.Member, error)

	// CountAdmins returns the number of admins of the channel
	CountAdmins(ctx context.Context, channelID string) (int, error)

	// AddMember inserts a membership.
	// Returns ErrMemberExists on duplicates and ErrAccountNotFound or
	// ErrChannelNotFound when a referenced row is missing.
	AddMember(ctx context.Context, member *models.Member) error

	// UpdateMemberRole changes the role of an existing member.
	// Returns ErrMemberNotFound, or ErrLastAdmin when demoting the only admin.
	UpdateMemberRole(ctx context.Context, channelID, accountID string, role models.Role) error

	// RemoveMember deletes a membership.
	// Returns ErrMemberNotFound, or ErrLastAdmin when removing the only admin.
	RemoveMember(ctx context.Context, channelID, accountID string) error
}

// MessageStorage defines interface for channel message persistence
type MessageStorage interface {
	CreateMessage(ctx context.Context, message *models.Message) error

	// GetMessage returns ErrMessageNotFound if no such message exists in the channel
	GetMessage(ctx context.Context, channelID, messageID string) (*models.Message, error)

	// ListMessages returns up to limit messages newest first. A non-zero
	// before restricts the result to messages created strictly earlier.
	ListMessages(ctx context.Context, channelID string, before time.Time, limit int) ([]*models.Message, error)

	// UpdateMessage updates content and updated_at
	UpdateMessage(ctx context.Context, message *models.Message) error

	// DeleteMessage returns ErrMessageNotFound if no such message exists in the channel
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Storage aggregates every persistence concern of the server.
type Storage interface {
	AccountStorage
	SessionStorage
	ChannelStorage
	MemberStorage
	MessageStorage

	Ping(ctx context.Context) error
	Close() error
}
