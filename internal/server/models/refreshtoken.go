package models

import "time"

// RefreshToken is a server-stored long-lived session token, rotated on use.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
