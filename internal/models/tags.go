// ABOUTME: Classification tags supplied by the upstream classifier
// ABOUTME: Opaque enum-like values; the core only reads, propagates, or defaults them
package models

// QCode is an upstream question-classification tag (Q1..Q5)
type QCode string

const (
	Q1 QCode = "Q1"
	Q2 QCode = "Q2"
	Q3 QCode = "Q3"
	Q4 QCode = "Q4"
	Q5 QCode = "Q5"

	// DefaultQCode is used when no classification has been supplied
	DefaultQCode QCode = "Q1"
)

// IsValid reports whether q is one of the known Q-codes
func (q QCode) IsValid() bool {
	switch q {
	case Q1, Q2, Q3, Q4, Q5:
		return true
	}
	return false
}

// DepthStage is a free-form stage label (e.g. "S1", "I2") from the classifier
type DepthStage string

// DefaultDepthStage is used when no stage has been supplied
const DefaultDepthStage DepthStage = "S1"

// Phase marks whether the conversation is in inner or outer work
type Phase string

const (
	PhaseInner Phase = "inner"
	PhaseOuter Phase = "outer"

	// DefaultPhase is used when no phase has been supplied
	DefaultPhase Phase = PhaseInner
)

// IsValid reports whether p is a known phase
func (p Phase) IsValid() bool {
	return p == PhaseInner || p == PhaseOuter
}

// ClassificationState bundles the three tags carried through a turn
type ClassificationState struct {
	Q     QCode      `json:"q"`
	Depth DepthStage `json:"depth"`
	Phase Phase      `json:"phase"`
}

// DefaultClassificationState returns the tags used before any classification exists
func DefaultClassificationState() ClassificationState {
	return ClassificationState{
		Q:     DefaultQCode,
		Depth: DefaultDepthStage,
		Phase: DefaultPhase,
	}
}

// Normalized returns a copy with invalid or empty tags replaced by defaults
func (c ClassificationState) Normalized() ClassificationState {
	if !c.Q.IsValid() {
		c.Q = DefaultQCode
	}
	if c.Depth == "" {
		c.Depth = DefaultDepthStage
	}
	if !c.Phase.IsValid() {
		c.Phase = DefaultPhase
	}
	return c
}
