// ABOUTME: Anchor is the long-lived "north star" label for a conversation
// ABOUTME: Resolution falls back through session, metadata, memory, then a hard default
package models

// DefaultAnchorKey is the anchor used when no evidence resolves one
const DefaultAnchorKey = "SUN"

// Anchor labels the long-lived theme a conversation is steering by
type Anchor struct {
	Key    string `json:"key"`
	Phrase string `json:"phrase,omitempty"`
}

// DefaultAnchor returns the hard-default anchor
func DefaultAnchor() Anchor {
	return Anchor{Key: DefaultAnchorKey, Phrase: "staying with what matters most"}
}

// IsZero reports whether the anchor carries no key
func (a Anchor) IsZero() bool {
	return a.Key == ""
}
