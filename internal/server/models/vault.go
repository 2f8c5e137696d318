package models

import (
	"math"
	"time"
)

// TotalContentFields is the number of independent sensitive content fields a
// vault carries. The structured funeral plan and the legacy free-text wishes
// count separately.
const TotalContentFields = 6

// FuneralPlan is the structured counterpart of the free-text funeral wishes,
// produced by the planning wizard. It is serialized to JSON and encrypted as
// a single blob, so individual plan attributes cannot be queried — a
// deliberate trade-off favoring confidentiality.
type FuneralPlan struct {
	ServiceType string   `json:"service_type,omitempty"`
	Disposition string   `json:"disposition,omitempty"`
	Location    string   `json:"location,omitempty"`
	Officiant   string   `json:"officiant,omitempty"`
	Music       []string `json:"music,omitempty"`
	Readings    []string `json:"readings,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Vault holds one owner's end-of-life record. In memory the content fields
// are plaintext; the repositories only ever see cipher envelopes.
type Vault struct {
	ID      string
	OwnerID string

	FuneralWishes    string
	FuneralPlan      *FuneralPlan
	Insurance        string
	Banking          string
	PersonalMessages string
	SpecialRequests  string

	// Derived from field population on every write; never read stale.
	CompletionPercentage int
	IsComplete           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PopulatedFields counts the content fields currently set.
func (v *Vault) PopulatedFields() int {
	n := 0
	for _, s := range []string{v.FuneralWishes, v.Insurance, v.Banking, v.PersonalMessages, v.SpecialRequests} {
		if s != "" {
			n++
		}
	}
	if v.FuneralPlan != nil {
		n++
	}
	return n
}

// RecomputeCompletion refreshes CompletionPercentage and IsComplete from the
// current field population. Must be called after every merge, before
// persisting.
func (v *Vault) RecomputeCompletion() {
	populated := v.PopulatedFields()
	v.CompletionPercentage = int(math.Round(100 * float64(populated) / float64(TotalContentFields)))
	v.IsComplete = populated == TotalContentFields
}

// StringPatch is one optional slot of a partial vault update. Set
// distinguishes "leave the stored value alone" from "overwrite with Value",
// where an empty Value clears the field.
type StringPatch struct {
	Set   bool
	Value string
}

// SetString builds an applied StringPatch.
func SetString(v string) StringPatch {
	return StringPatch{Set: true, Value: v}
}

// PlanPatch is the structured-plan slot of a partial update. A Set patch
// with a nil Value clears the plan.
type PlanPatch struct {
	Set   bool
	Value *FuneralPlan
}

// SetPlan builds an applied PlanPatch.
func SetPlan(p *FuneralPlan) PlanPatch {
	return PlanPatch{Set: true, Value: p}
}

// VaultPatch carries a partial vault update. Unset slots retain the stored
// (encrypted) value during merge.
type VaultPatch struct {
	FuneralWishes    StringPatch
	FuneralPlan      PlanPatch
	Insurance        StringPatch
	Banking          StringPatch
	PersonalMessages StringPatch
	SpecialRequests  StringPatch
}

// IsEmpty reports whether the patch changes nothing.
func (p VaultPatch) IsEmpty() bool {
	return !p.FuneralWishes.Set && !p.FuneralPlan.Set && !p.Insurance.Set &&
		!p.Banking.Set && !p.PersonalMessages.Set && !p.SpecialRequests.Set
}

// Apply merges the patch into the vault's plaintext fields.
func (p VaultPatch) Apply(v *Vault) {
	if p.FuneralWishes.Set {
		v.FuneralWishes = p.FuneralWishes.Value
	}
	if p.FuneralPlan.Set {
		v.FuneralPlan = p.FuneralPlan.Value
	}
	if p.Insurance.Set {
		v.Insurance = p.Insurance.Value
	}
	if p.Banking.Set {
		v.Banking = p.Banking.Value
	}
	if p.PersonalMessages.Set {
		v.PersonalMessages = p.PersonalMessages.Value
	}
	if p.SpecialRequests.Set {
		v.SpecialRequests = p.SpecialRequests.Value
	}
}
