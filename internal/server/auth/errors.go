// Package auth implements authentication and channel authorization:
// credential registration and verification, opaque session tokens, and the
// role-based decision table for channel actions.
//
// Every error returned by this package matches (errors.Is) exactly one of
// the kinds below; storage errors never cross the package boundary.
package auth

import (
	"errors"
	"fmt"

	"github.com/iudanet/chatter/internal/validation"
)

var (
	// ErrConflict indicates a uniqueness violation, e.g. a taken username.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized covers bad credentials and invalid, expired or unknown tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller lacking the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates an absent resource or membership. Non-members get
	// this instead of ErrForbidden so channel existence does not leak.
	ErrNotFound = errors.New("not found")

	// ErrInternal wraps storage and cryptographic failures.
	ErrInternal = errors.New("internal error")

	// ErrInvalidInput indicates request data failing validation.
	ErrInvalidInput = validation.ErrInvalid

	// ErrLastAdmin rejects changes that would leave a channel without admins.
	ErrLastAdmin = fmt.Errorf("%w: channel must keep at least one admin", ErrForbidden)
)

// internal formats err into an ErrInternal without wrapping it, so callers
// cannot match on storage sentinels.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
