// ABOUTME: HistoryDigest is the compact conversation summary injected into prompts
// ABOUTME: Derived fresh per turn, never persisted, injected at most once per prompt
package models

// DigestTopic labels the current topic for the generation service
type DigestTopic struct {
	Label   string `json:"label"`
	Summary string `json:"summary,omitempty"`
}

// DigestContinuity captures how the current turn relates to the previous one
type DigestContinuity struct {
	LastUserCore      string `json:"last_user_core,omitempty"`
	LastAssistantCore string `json:"last_assistant_core,omitempty"`
	RepeatSignal      bool   `json:"repeat_signal"`
}

// HistoryDigest is the derived per-turn context block for the generation service
type HistoryDigest struct {
	Anchor     Anchor              `json:"anchor"`
	State      ClassificationState `json:"state"`
	Topic      DigestTopic         `json:"topic"`
	Continuity DigestContinuity    `json:"continuity"`
}
