package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"` // 3-64 символа, регистрозависимый
	Password string `json:"password"` // 8-128 байт
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	ExpiresAt   time.Time `json:"expires_at"`
	AccountID   string    `json:"account_id"`
	AccessToken string    `json:"access_token"` // opaque bearer token
	TokenType   string    `json:"token_type"`   // всегда "Bearer"
	ExpiresIn   int64     `json:"expires_in"`   // время жизни токена в секундах
}

// AccountResponse описывает текущий аккаунт
type AccountResponse struct {
	CreatedAt        time.Time `json:"created_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Admin            bool      `json:"admin"`
}

// RevokeResponse сообщает количество отозванных сессий
type RevokeResponse struct {
	Revoked int `json:"revoked"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
