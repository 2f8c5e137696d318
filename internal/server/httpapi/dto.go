package httpapi

import (
	"time"

	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/everkeep/everkeep/internal/server/services"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func tokenResponse(p *services.TokenPair) TokenResponse {
	return TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

// VaultPatchRequest mirrors models.VaultPatch on the wire: absent keys leave
// the stored field alone, explicit null or empty clears it.
type VaultPatchRequest struct {
	FuneralWishes    *string             `json:"funeral_wishes"`
	FuneralPlan      *models.FuneralPlan `json:"funeral_plan"`
	Insurance        *string             `json:"insurance"`
	Banking          *string             `json:"banking"`
	PersonalMessages *string             `json:"personal_messages"`
	SpecialRequests  *string             `json:"special_requests"`

	rawKeys map[string]struct{}
}

// toPatch converts the wire shape to the tagged-presence patch. rawKeys,
// collected during parsing, distinguishes an absent funeral_plan from an
// explicit null (clear).
func (r *VaultPatchRequest) toPatch() models.VaultPatch {
	p := models.VaultPatch{}
	set := func(key string, s *string) models.StringPatch {
		if _, ok := r.rawKeys[key]; !ok {
			return models.StringPatch{}
		}
		if s == nil {
			return models.SetString("")
		}
		return models.SetString(*s)
	}
	p.FuneralWishes = set("funeral_wishes", r.FuneralWishes)
	p.Insurance = set("insurance", r.Insurance)
	p.Banking = set("banking", r.Banking)
	p.PersonalMessages = set("personal_messages", r.PersonalMessages)
	p.SpecialRequests = set("special_requests", r.SpecialRequests)

	if _, ok := r.rawKeys["funeral_plan"]; ok {
		p.FuneralPlan = models.SetPlan(r.FuneralPlan)
	}
	return p
}

type VaultResponse struct {
	ID                   string              `json:"id"`
	OwnerID              string              `json:"owner_id"`
	FuneralWishes        string              `json:"funeral_wishes,omitempty"`
	FuneralPlan          *models.FuneralPlan `json:"funeral_plan,omitempty"`
	Insurance            string              `json:"insurance,omitempty"`
	Banking              string              `json:"banking,omitempty"`
	PersonalMessages     string              `json:"personal_messages,omitempty"`
	SpecialRequests      string              `json:"special_requests,omitempty"`
	CompletionPercentage int                 `json:"completion_percentage"`
	IsComplete           bool                `json:"is_complete"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func vaultResponse(v *models.Vault) VaultResponse {
	return VaultResponse{
		ID:                   v.ID,
		OwnerID:              v.OwnerID,
		FuneralWishes:        v.FuneralWishes,
		FuneralPlan:          v.FuneralPlan,
		Insurance:            v.Insurance,
		Banking:              v.Banking,
		PersonalMessages:     v.PersonalMessages,
		SpecialRequests:      v.SpecialRequests,
		CompletionPercentage: v.CompletionPercentage,
		IsComplete:           v.IsComplete,
		UpdatedAt:            v.UpdatedAt,
	}
}

type InviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type AcceptRequest struct {
	Password string `json:"password"`
}

type ContactResponse struct {
	ID          string     `json:"id"`
	VaultID     string     `json:"vault_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	InvitedAt   time.Time  `json:"invited_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// The invitation token never appears in contact listings; it travels only
// through the notification channel to the nominee.
func contactResponse(c *models.TrustedContact) ContactResponse {
	return ContactResponse{
		ID:          c.ID,
		VaultID:     c.VaultID,
		Email:       c.Email,
		Name:        c.Name,
		Status:      string(c.Status),
		InvitedAt:   c.InvitedAt,
		ConfirmedAt: c.ConfirmedAt,
	}
}

func contactListResponse(cs []*models.TrustedContact) []ContactResponse {
	out := make([]ContactResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, contactResponse(c))
	}
	return out
}

type AcceptResponse struct {
	Contact ContactResponse `json:"contact"`
	Tokens  TokenResponse   `json:"tokens"`
}

type ReleaseRequestBody struct {
	VaultID      string `json:"vault_id"`
	DeceasedName string `json:"deceased_name"`
	EvidenceRef  string `json:"evidence_ref"`
}

type ReviewRequest struct {
	Decision string `json:"decision"`
}

type ReleaseResponse struct {
	ID           string     `json:"id"`
	VaultID      string     `json:"vault_id"`
	RequesterID  string     `json:"requester_id"`
	DeceasedName string     `json:"deceased_name"`
	EvidenceRef  string     `json:"evidence_ref,omitempty"`
	Status       string     `json:"status"`
	RequestedAt  time.Time  `json:"requested_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID   string     `json:"reviewer_id,omitempty"`
}

func releaseResponse(r *models.DataReleaseRequest) ReleaseResponse {
	return ReleaseResponse{
		ID:           r.ID,
		VaultID:      r.VaultID,
		RequesterID:  r.RequesterID,
		DeceasedName: r.DeceasedName,
		EvidenceRef:  r.EvidenceRef,
		Status:       string(r.Status),
		RequestedAt:  r.RequestedAt,
		ReviewedAt:   r.ReviewedAt,
		ReviewerID:   r.ReviewerID,
	}
}

type PresignUploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PresignDownloadResponse struct {
	URL string `json:"url"`
}
