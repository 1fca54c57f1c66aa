// ABOUTME: Conversation message types and the per-turn input envelope
// ABOUTME: History is always ordered oldest→newest with user/assistant/system roles
package models

import (
	"strings"
	"unicode"
)

// Role identifies the author of a history message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// HistoryMessage is one prior message in a conversation
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnInput is everything the orchestrator needs to produce one agent turn
type TurnInput struct {
	UserText        string           `json:"user_text"`
	History         []HistoryMessage `json:"history,omitempty"`
	ConversationRef string           `json:"conversation_ref"`
	UserCode        string           `json:"user_code"`
}

// RecentUserTexts returns up to max user-authored entries, newest first
func (in *TurnInput) RecentUserTexts(max int) []string {
	var texts []string
	for i := len(in.History) - 1; i >= 0 && len(texts) < max; i-- {
		if in.History[i].Role == RoleUser {
			texts = append(texts, in.History[i].Content)
		}
	}
	return texts
}

// NormalizeText trims and collapses internal whitespace runs to single spaces
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// MeaningfulLength counts runes excluding whitespace, punctuation, and symbols
func MeaningfulLength(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		count++
	}
	return count
}

// IsDegenerateText reports whether text is empty, whitespace, or symbol-only
// (ellipses, punctuation runs, and the like carry no meaningful runes)
func IsDegenerateText(text string) bool {
	return MeaningfulLength(text) == 0
}
