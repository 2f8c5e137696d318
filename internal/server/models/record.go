package models

import "time"

// VaultRecord is the persisted shape of a vault: every content column holds
// the field cipher's envelope encoding (or the empty string for an unset
// field). Repositories only ever traffic in records; the vault service is
// the sole place plaintext and ciphertext meet.
type VaultRecord struct {
	ID      string
	OwnerID string

	FuneralWishes    string
	FuneralPlan      string
	Insurance        string
	Banking          string
	PersonalMessages string
	SpecialRequests  string

	CompletionPercentage int
	IsComplete           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
