// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account identity: a vault owner, an invited trusted contact, or
// an administrator. The password credential is stored as a bcrypt hash and
// is never reversible.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsAdmin      bool

	// EmailVerified flips once the time-boxed one-time code is matched.
	// Administrators are seeded verified.
	EmailVerified       bool
	VerificationCode    string
	VerificationExpires *time.Time

	CreatedAt time.Time
}
