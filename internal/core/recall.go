// ABOUTME: Recall gate for "what did I say earlier" questions
// ABOUTME: Answers directly from stored history, bypassing the generation service
package core

import (
	"strings"
	"unicode/utf8"

	"github.com/kokorohq/compass/internal/models"
)

// recallReplyPrefix templates recall answers; also used to detect echoes so
// a recall question is never answered with a previous recall answer.
const recallReplyPrefix = "that was: "

// minRecallEntryChars is the shortest normalized entry worth recalling
const minRecallEntryChars = 8

var recallPatterns = []string{
	"earlier", "before", "what was", "remember",
	"さっき", "前に", "なんだっけ", "何だっけ", "何でしたっけ", "覚えてる", "言ったっけ",
}

var questionWords = []string{
	"what", "why", "how", "when", "where", "who",
	"なに", "何", "どう", "なぜ", "いつ", "どこ", "だれ", "誰",
}

// IsRecallQuestion reports whether text is a temporal-reference recall question
func IsRecallQuestion(text string) bool {
	lower := strings.ToLower(models.NormalizeText(text))
	if lower == "" {
		return false
	}
	for _, pattern := range recallPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// PickFromHistory scans history newest→oldest and returns the first
// user-authored entry worth recalling, or "" if none qualifies.
func PickFromHistory(history []models.HistoryMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != models.RoleUser {
			continue
		}
		norm := models.NormalizeText(msg.Content)
		if utf8.RuneCountInString(norm) < minRecallEntryChars {
			continue
		}
		if isQuestionLike(norm) {
			continue
		}
		if looksLikeLogOutput(norm) {
			continue
		}
		if isRecallEcho(norm) {
			continue
		}
		return norm
	}
	return ""
}

// AnswerRecall runs the full gate: match the question, pick an entry, and
// template the reply. Returns "" when the gate declines.
func AnswerRecall(text string, history []models.HistoryMessage) string {
	if !IsRecallQuestion(text) {
		return ""
	}
	entry := PickFromHistory(history)
	if entry == "" {
		return ""
	}
	return recallReplyPrefix + entry
}

// isQuestionLike filters entries that are themselves questions
func isQuestionLike(text string) bool {
	if strings.HasSuffix(text, "?") || strings.HasSuffix(text, "？") {
		return true
	}
	lower := strings.ToLower(text)
	for _, word := range questionWords {
		if strings.HasPrefix(lower, word+" ") || strings.HasSuffix(lower, word) {
			return true
		}
	}
	return IsRecallQuestion(text)
}

// looksLikeLogOutput filters developer/log noise out of recall candidates
func looksLikeLogOutput(text string) bool {
	markers := []string{"error:", "warn:", "panic:", "stack trace", "{\"", "```", "[2"}
	lower := strings.ToLower(text)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isRecallEcho filters previous recall answers (avoids circularity)
func isRecallEcho(text string) bool {
	return strings.HasPrefix(strings.ToLower(text), recallReplyPrefix)
}
