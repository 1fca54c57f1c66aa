// ABOUTME: Anchor evidence extraction from heterogeneous response payloads
// ABOUTME: One pure decoder per legacy shape, composed in a fixed source-priority order
package core

import "github.com/kokorohq/compass/internal/models"

// Anchor evidence sources, highest priority first
const (
	AnchorSourceExtraDigest = "extra_digest"
	AnchorSourceExtraLegacy = "extra_legacy"
	AnchorSourceMeta        = "meta"
	AnchorSourceBody        = "body"
	AnchorSourceNone        = "none"
)

// AnchorEvidence is the single confirmed choice pulled from a response payload
type AnchorEvidence struct {
	ChoiceID string `json:"choice_id"`
	ActionID string `json:"action_id,omitempty"`
	Source   string `json:"source"`
}

// AnchorPayload is the raw material the extractor works over
type AnchorPayload struct {
	Body  map[string]interface{}
	Meta  map[string]interface{}
	Extra map[string]interface{}
}

// decoder pulls evidence from one legacy payload shape, or reports no match
type decoder struct {
	source string
	decode func(p AnchorPayload) (choiceID, actionID string)
}

// Decoders run in strict priority; once one yields a non-empty choice id,
// lower-priority shapes are never consulted.
var anchorDecoders = []decoder{
	{AnchorSourceExtraDigest, decodeExtraDigest},
	{AnchorSourceExtraLegacy, decodeExtraLegacy},
	{AnchorSourceMeta, decodeMetaChoice},
	{AnchorSourceBody, decodeBodyChoice},
}

// ExtractAnchorEvidence resolves the confirmed-choice identifier from a
// heterogeneous payload. Finding nothing is not an error; it resolves to the
// documented none source.
func ExtractAnchorEvidence(p AnchorPayload) AnchorEvidence {
	for _, d := range anchorDecoders {
		if choiceID, actionID := d.decode(p); choiceID != "" {
			return AnchorEvidence{ChoiceID: choiceID, ActionID: actionID, Source: d.source}
		}
	}
	return AnchorEvidence{Source: AnchorSourceNone}
}

// decodeExtraDigest reads the digest-canonical field on extra
func decodeExtraDigest(p AnchorPayload) (string, string) {
	digest, ok := p.Extra["digest"].(map[string]interface{})
	if !ok {
		return "", ""
	}
	return stringField(digest, "choiceId"), stringField(digest, "actionId")
}

// decodeExtraLegacy reads the flat legacy choice fields on extra
func decodeExtraLegacy(p AnchorPayload) (string, string) {
	choiceID := stringField(p.Extra, "choiceId")
	if choiceID == "" {
		choiceID = stringField(p.Extra, "extractedChoiceId")
	}
	return choiceID, stringField(p.Extra, "actionId")
}

// decodeMetaChoice reads choice id equivalents from meta
func decodeMetaChoice(p AnchorPayload) (string, string) {
	choiceID := stringField(p.Meta, "choiceId")
	if choiceID == "" {
		choiceID = stringField(p.Meta, "extractedChoiceId")
	}
	return choiceID, stringField(p.Meta, "actionId")
}

// decodeBodyChoice reads choice id equivalents from the body
func decodeBodyChoice(p AnchorPayload) (string, string) {
	choiceID := stringField(p.Body, "choiceId")
	if choiceID == "" {
		choiceID = stringField(p.Body, "extractedChoiceId")
	}
	return choiceID, stringField(p.Body, "actionId")
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Meta keys under which the resolved anchor is persisted on assistant turns
const (
	AnchorKeyMetaKey    = "anchor_key"
	AnchorPhraseMetaKey = "anchor_phrase"
)

// ResolveAnchor picks the anchor for a turn using the fixed priority:
// pinned session anchor > persisted turn metadata > live session memory >
// hard default.
func ResolveAnchor(tc *TurnContext, persistedMeta map[string]string) models.Anchor {
	if !tc.PinnedAnchor.IsZero() {
		return tc.PinnedAnchor
	}
	if persistedMeta != nil && persistedMeta[AnchorKeyMetaKey] != "" {
		return models.Anchor{
			Key:    persistedMeta[AnchorKeyMetaKey],
			Phrase: persistedMeta[AnchorPhraseMetaKey],
		}
	}
	if !tc.SessionAnchor.IsZero() {
		return tc.SessionAnchor
	}
	return models.DefaultAnchor()
}
