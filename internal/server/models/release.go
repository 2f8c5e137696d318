package models

import "time"

// ReleaseStatus is the review state of a death-declaration request.
type ReleaseStatus string

const (
	ReleaseStatusPending  ReleaseStatus = "pending"
	ReleaseStatusApproved ReleaseStatus = "approved"
	ReleaseStatusDenied   ReleaseStatus = "denied"
)

// ReleaseDecision is the admin verdict applied to a pending request.
type ReleaseDecision string

const (
	ReleaseDecisionApprove ReleaseDecision = "approved"
	ReleaseDecisionDeny    ReleaseDecision = "denied"
)

// DataReleaseRequest records a claim that a vault owner has died. It starts
// pending and transitions exactly once to approved or denied, together with
// the reviewing admin's identity and timestamp; it never reverts.
type DataReleaseRequest struct {
	ID           string
	VaultID      string
	RequesterID  string
	DeceasedName string

	// EvidenceRef is the object-storage key of an optional supporting
	// document (death certificate scan), uploaded via a presigned URL.
	EvidenceRef string

	Status      ReleaseStatus
	RequestedAt time.Time
	ReviewedAt  *time.Time
	ReviewerID  string
}

// ReleaseFilter narrows List queries. Zero values mean "any".
type ReleaseFilter struct {
	VaultID string
	Status  ReleaseStatus
}
