package models

import "time"

// Account представляет зарегистрированного пользователя
type Account struct {
	CreatedAt  time.Time  `json:"created_at"`
	ID         string     `json:"id"`       // UUID аккаунта
	Username   string     `json:"username"` // уникальный, регистрозависимый
	Credential Credential `json:"-"`
	Admin      bool       `json:"admin"` // account-wide scope, не влияет на каналы
}

// Credential is the salted password digest stored for an account.
// Neither field is ever serialized to clients.
type Credential struct {
	Salt []byte // 16 bytes
	Hash []byte // 32 bytes
}

// Session is an issued bearer grant as persisted by session storage.
// TokenHash is the keyed digest of the raw token, never the token itself.
type Session struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenHash string
	AccountID string
	Username  string
	Admin     bool
}

// Expired reports whether the session must be treated as absent at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
