// Package common defines shared constants and sentinel errors used across
// DialogVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Authorization oracle denied access to withheld content.
	ErrNotAuthorized = errors.New("not authorized")

	// Ciphertext could not be decrypted (corrupted data, padding mismatch,
	// or wrong key). The underlying record is left untouched.
	ErrDecryption = errors.New("decryption error")

	// A collaborator (generation backend, authorization oracle) was
	// unreachable or timed out.
	ErrTransport = errors.New("transport error")

	// Storage was unreachable during a write; the request fails as a whole.
	ErrPersistence = errors.New("persistence error")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")

	// Auth errors (invalid or malformed API token).
	ErrInvalidToken = errors.New("invalid token")
)
