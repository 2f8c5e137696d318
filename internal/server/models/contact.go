package models

import "time"

// ContactStatus is the lifecycle state of a trusted-contact nomination.
type ContactStatus string

const (
	ContactStatusPending   ContactStatus = "pending"
	ContactStatusConfirmed ContactStatus = "confirmed"
	ContactStatusDenied    ContactStatus = "denied"
)

// TrustedContact links a vault to a nominated person. The invitation token
// is single-use: once the status leaves pending it is consumed and must
// never grant another acceptance. Denied is terminal.
type TrustedContact struct {
	ID      string
	VaultID string
	Email   string
	Name    string
	Status  ContactStatus
	Token   string

	InvitedAt   time.Time
	ConfirmedAt *time.Time
}
