package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/iudanet/chatter/internal/models"
)

// Параметры Argon2id. Менять нельзя: сохраненный credential содержит
// только salt и hash, поэтому все существующие пароли перестанут проходить.
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 2
	// Argon2Memory - объем памяти в KB (19MB)
	Argon2Memory = 19 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 1
	// HashSize - длина digest в байтах
	HashSize = 32
	// SaltSize - размер соли в байтах
	SaltSize = 16
)

// ErrMalformedCredential is returned by Verify when the stored salt or digest
// has an unexpected length.
var ErrMalformedCredential = errors.New("malformed credential")

// PasswordHasher derives and checks salted Argon2id password digests.
// The zero value is ready to use.
type PasswordHasher struct{}

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Hash derives a credential from password using a fresh random salt.
// It fails only when the system random source does.
func (PasswordHasher) Hash(password []byte) (models.Credential, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return models.Credential{}, err
	}
	return models.Credential{
		Salt: salt,
		Hash: derive(salt, password),
	}, nil
}

// Verify recomputes the digest of password under salt and compares it with
// digest in constant time.
func (PasswordHasher) Verify(salt, password, digest []byte) (bool, error) {
	if len(salt) != SaltSize {
		return false, fmt.Errorf("%w: salt is %d bytes, want %d", ErrMalformedCredential, len(salt), SaltSize)
	}
	if len(digest) != HashSize {
		return false, fmt.Errorf("%w: digest is %d bytes, want %d", ErrMalformedCredential, len(digest), HashSize)
	}
	computed := derive(salt, password)
	return subtle.ConstantTimeCompare(computed, digest) == 1, nil
}

func derive(salt, password []byte) []byte {
	return argon2.IDKey(password, salt, Argon2Time, Argon2Memory, Argon2Threads, HashSize)
}
