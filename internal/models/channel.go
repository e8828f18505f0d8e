package models

import (
	"fmt"
	"time"
)

// Role is the relation payload of a channel membership.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole converts a wire value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Channel представляет канал чата
type Channel struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
}

// Member связывает аккаунт и канал с ролью
type Member struct {
	JoinedAt  time.Time `json:"joined_at"`
	ChannelID string    `json:"channel_id"`
	AccountID string    `json:"account_id"`
	Username  string    `json:"username,omitempty"` // заполняется при листинге
	Role      Role      `json:"role"`
}

// Message представляет сообщение в канале
type Message struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AccountID string    `json:"account_id"`
	Content   string    `json:"content"`
}
