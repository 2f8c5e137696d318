// Package common defines shared constants and sentinel errors used across
// EverKeep components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorForbidden marks callers that are authenticated but not permitted
	// by the vault access rules.
	ErrorForbidden = errors.New("forbidden")

	// ErrorValidation marks malformed input: bad email, weak password,
	// missing required field. Never retried, never partially applied.
	ErrorValidation = errors.New("validation error")

	// ErrorConflict signals a detected race that was rejected: second review
	// of a release request, reuse of a consumed invitation token.
	ErrorConflict = errors.New("conflict")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
