package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// TokenSize - количество случайных байт в bearer токене
	TokenSize = 32
	// MinKeySize - минимальная длина ключа для HMAC токенов
	MinKeySize = 32
)

var tokenEncoding = base64.RawURLEncoding

// ErrMalformedToken is returned when a presented token cannot have been
// produced by NewToken.
var ErrMalformedToken = errors.New("malformed token")

// NewToken returns a fresh opaque bearer token: 32 random bytes encoded as
// unpadded base64url.
func NewToken() (string, error) {
	b := make([]byte, TokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenEncoding.EncodeToString(b), nil
}

// CheckToken validates the structure of a presented token without touching
// any storage.
func CheckToken(token string) error {
	if len(token) != tokenEncoding.EncodedLen(TokenSize) {
		return ErrMalformedToken
	}
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil || len(raw) != TokenSize {
		return ErrMalformedToken
	}
	return nil
}

// Keyring holds the HMAC keys used to derive storage keys from bearer tokens.
// The first key digests new tokens; every key is tried on lookup so that keys
// can be rotated without invalidating live sessions.
type Keyring struct {
	keys [][]byte
}

// NewKeyring builds a keyring from keys in priority order.
func NewKeyring(keys ...[]byte) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, errors.New("keyring requires at least one key")
	}
	kr := &Keyring{keys: make([][]byte, 0, len(keys))}
	for i, k := range keys {
		if len(k) < MinKeySize {
			return nil, fmt.Errorf("key %d is %d bytes, need at least %d", i, len(k), MinKeySize)
		}
		kr.keys = append(kr.keys, append([]byte(nil), k...))
	}
	return kr, nil
}

// NewEphemeralKeyring generates a single random key. Digests made with it do
// not survive a restart.
func NewEphemeralKeyring() (*Keyring, error) {
	k := make([]byte, MinKeySize)
	if _, err := rand.Read(k); err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	return &Keyring{keys: [][]byte{k}}, nil
}

// Digest returns the storage key for token under the primary key.
func (k *Keyring) Digest(token string) string {
	return digest(k.keys[0], token)
}

// Candidates returns the storage keys for token under every key, primary first.
func (k *Keyring) Candidates(token string) []string {
	out := make([]string, 0, len(k.keys))
	for _, key := range k.keys {
		out = append(out, digest(key, token))
	}
	return out
}

func digest(key []byte, token string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
