package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// UsernamePattern определяет допустимый формат username
// Латинские буквы, цифры, '_', '.', '-'
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 64
	// MaxPasswordLen ограничивает стоимость хеширования
	MaxPasswordLen = 128
	// MaxChannelNameLen максимальная длина названия канала в символах
	MaxChannelNameLen = 32
	// MaxMessageLen максимальная длина сообщения в символах
	MaxMessageLen = 1024
)

// ErrInvalid is wrapped by every error returned from this package.
var ErrInvalid = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidateUsername проверяет, что username соответствует требованиям
func ValidateUsername(username string) error {
	if username == "" {
		return invalid("username cannot be empty")
	}
	if len(username) < MinUsernameLen {
		return invalid("username must be at least %d characters long", MinUsernameLen)
	}
	if len(username) > MaxUsernameLen {
		return invalid("username must not exceed %d characters", MaxUsernameLen)
	}
	if !UsernamePattern.MatchString(username) {
		return invalid("username can only contain letters, numbers, '_', '.' and '-'")
	}
	return nil
}

// ValidatePassword проверяет длину пароля.
// Минимальной длины нет, только пустой пароль отклоняется.
func ValidatePassword(password string) error {
	if password == "" {
		return invalid("password cannot be empty")
	}
	if len(password) > MaxPasswordLen {
		return invalid("password must not exceed %d bytes", MaxPasswordLen)
	}
	return nil
}

// ValidateChannelName checks a channel name: non-blank, at most 32 characters.
func ValidateChannelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("channel name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxChannelNameLen {
		return invalid("channel name must not exceed %d characters", MaxChannelNameLen)
	}
	return nil
}

// ValidateMessage checks message content: non-blank, at most 1024 characters.
func ValidateMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalid("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLen {
		return invalid("message must not exceed %d characters", MaxMessageLen)
	}
	return nil
}
