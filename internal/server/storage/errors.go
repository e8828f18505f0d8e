package storage

import "errors"

// Common storage errors
var (
	// ErrAccountNotFound indicates that account was not found in storage
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates that account with this username already exists
	ErrAccountExists = errors.New("account already exists")

	// ErrSessionNotFound indicates that no session matches the token digest
	ErrSessionNotFound = errors.New("session not found")

	// ErrChannelNotFound indicates that channel was not found
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMemberNotFound indicates that account is not a member of the channel
	ErrMemberNotFound = errors.New("member not found")

	// ErrMemberExists indicates that account is already a member of the channel
	ErrMemberExists = errors.New("member already exists")

	// ErrMessageNotFound indicates that message was not found in the channel
	ErrMessageNotFound = errors.New("message not found")

	// ErrLastAdmin indicates that the mutation would leave a channel without admins
	ErrLastAdmin = errors.New("channel would have no admin left")
)
