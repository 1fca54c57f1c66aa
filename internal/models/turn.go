// ABOUTME: TurnResult is the caller-facing outcome of one orchestrated turn
// ABOUTME: Carries the reply text plus metadata about how it was produced
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Response strategies a turn can resolve to
const (
	StrategyRecall    = "recall"
	StrategyFinalPlan = "final_plan"
	StrategyGenerated = "generated"
	StrategyScaffold  = "scaffold"
	StrategyEmergency = "emergency"
	StrategyEmptyTurn = "empty_turn"
)

// TurnResult is what HandleTurn hands back to the caller
type TurnResult struct {
	TurnID   string            `json:"turn_id"`
	Text     string            `json:"text"`
	Strategy string            `json:"strategy"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// NewTurnID generates a unique turn identifier
func NewTurnID() string {
	return fmt.Sprintf("turn_%s_%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
}
