// ABOUTME: TurnContext is the explicit per-request state object threaded through a turn
// ABOUTME: Short-lived cache only; the persistent store stays the sole source of truth across requests
package core

import "github.com/kokorohq/compass/internal/models"

// TurnContext carries request-scoped state through one orchestrated turn.
// It replaces module-level session memory: nothing here outlives the request.
type TurnContext struct {
	ConversationID int64
	TurnID         string

	// PinnedAnchor is an anchor explicitly fixed for this session, if any.
	// It outranks every other anchor source.
	PinnedAnchor models.Anchor

	// SessionAnchor mirrors the live session-memory anchor, below persisted
	// turn metadata in the resolution order.
	SessionAnchor models.Anchor

	// PersonState is the cached intent profile loaded at the start of the turn
	PersonState *models.PersonState

	// Classification holds the tags in effect for this turn
	Classification models.ClassificationState
}

// NewTurnContext builds the per-request context with defaulted classification
func NewTurnContext(conversationID int64) *TurnContext {
	return &TurnContext{
		ConversationID: conversationID,
		TurnID:         models.NewTurnID(),
		Classification: models.DefaultClassificationState(),
	}
}
