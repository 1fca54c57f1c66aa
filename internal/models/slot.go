// ABOUTME: Slot and SlotPlan types for staged reply content
// ABOUTME: FINAL plans are immutable text; SCAFFOLD plans are safe defaults a renderer may replace
package models

import "strings"

// SlotPolicy controls whether slot content may be rewritten downstream
type SlotPolicy string

const (
	// PolicyFinal locks slot content; it must be rendered verbatim
	PolicyFinal SlotPolicy = "FINAL"
	// PolicyScaffold marks slot content as a safe default replaceable by generated text
	PolicyScaffold SlotPolicy = "SCAFFOLD"
)

// SafeDefaultSentence is substituted whenever a builder would otherwise emit an empty slot
const SafeDefaultSentence = "少し立ち止まって、今の気持ちを一緒に見てみましょう。"

// Slot is one named block of candidate reply content
type Slot struct {
	Key     string `json:"key"`
	Role    Role   `json:"role"`
	Style   string `json:"style,omitempty"`
	Content string `json:"content"`
}

// NewSlot builds a slot, substituting the safe default if content is blank.
// Empty slot content is a defect class this constructor exists to prevent.
func NewSlot(key, style, content string) Slot {
	if strings.TrimSpace(content) == "" {
		content = SafeDefaultSentence
	}
	return Slot{
		Key:     key,
		Role:    RoleAssistant,
		Style:   style,
		Content: content,
	}
}

// SlotPlan is an ordered set of slots under a single policy
type SlotPlan struct {
	Policy SlotPolicy `json:"policy"`
	Slots  []Slot     `json:"slots"`
}

// Render joins slot contents in order, separated by blank lines
func (p SlotPlan) Render() string {
	parts := make([]string, 0, len(p.Slots))
	for _, slot := range p.Slots {
		parts = append(parts, slot.Content)
	}
	return strings.Join(parts, "\n\n")
}

// IsFinal reports whether the plan's content is locked
func (p SlotPlan) IsFinal() bool {
	return p.Policy == PolicyFinal
}
