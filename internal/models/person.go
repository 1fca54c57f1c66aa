// ABOUTME: PersonState is the persistent intent/emotional profile per (owner, target) pair
// ABOUTME: Created on first confident classification, upserted thereafter, never deleted here
package models

import "time"

// Target types for person-state records
const (
	TargetSelf  = "self"
	TargetOther = "other"
)

// PersonState is the inferred intent profile the core keeps per (owner, target)
type PersonState struct {
	OwnerUserCode  string     `json:"owner_user_code"`
	TargetType     string     `json:"target_type"`
	TargetLabel    string     `json:"target_label"`
	Q              QCode      `json:"q"`
	Depth          DepthStage `json:"depth"`
	Phase          Phase      `json:"phase"`
	IntentBand     string     `json:"intent_band,omitempty"`
	Direction      string     `json:"direction,omitempty"`
	FocusLayer     string     `json:"focus_layer,omitempty"`
	CoreNeed       string     `json:"core_need,omitempty"`
	GuidanceHint   string     `json:"guidance_hint,omitempty"`
	TLayerHint     string     `json:"t_layer_hint,omitempty"`
	SelfAcceptance float64    `json:"self_acceptance"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Key returns the unique (owner, targetType, targetLabel) identity of the record
func (p *PersonState) Key() (string, string, string) {
	return p.OwnerUserCode, p.TargetType, p.TargetLabel
}
