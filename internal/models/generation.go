// ABOUTME: Strict internal shape for generation-service responses
// ABOUTME: Loose service payloads are validated into this at the llm boundary
package models

// GenerationMeta is the optional structured metadata a generation response carries
type GenerationMeta struct {
	Q          QCode      `json:"q,omitempty"`
	Depth      DepthStage `json:"depth,omitempty"`
	Phase      Phase      `json:"phase,omitempty"`
	IntentBand string     `json:"intent_band,omitempty"`
	Direction  string     `json:"direction,omitempty"`
	FocusLayer string     `json:"focus_layer,omitempty"`
	CoreNeed   string     `json:"core_need,omitempty"`
	Confident  bool       `json:"confident"`
}

// GenerationReply is a validated generation-service response. Extra carries
// the raw metadata fields, preserved untyped so downstream extractors can
// read shapes the strict Meta decoding does not model (e.g. choice evidence).
type GenerationReply struct {
	Text  string                 `json:"text"`
	Meta  *GenerationMeta        `json:"meta,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}
