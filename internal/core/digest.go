// ABOUTME: History digest construction and idempotent prompt injection
// ABOUTME: One compact context block per prompt; a marker prefix prevents duplicates
package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kokorohq/compass/internal/models"
)

// digestMarker prefixes every serialized digest; injection checks for it
// before inserting so repeated calls within one prompt pass are no-ops.
const digestMarker = "[conversation-digest]"

// coreSnippetChars bounds the continuity snippets carried in the digest
const coreSnippetChars = 60

// DigestArgs is the raw material for one digest build
type DigestArgs struct {
	Anchor       models.Anchor
	State        models.ClassificationState
	TopicLabel   string
	TopicSummary string
	History      []models.HistoryMessage
	CurrentText  string
}

// BuildDigest derives the per-turn digest. Pure constructor: no I/O, no state.
func BuildDigest(args DigestArgs) models.HistoryDigest {
	anchor := args.Anchor
	if anchor.IsZero() {
		anchor = models.DefaultAnchor()
	}

	topic := args.TopicLabel
	if topic == "" {
		topic = "general"
	}

	lastUser, lastAssistant := lastCores(args.History)

	return models.HistoryDigest{
		Anchor: anchor,
		State:  args.State.Normalized(),
		Topic: models.DigestTopic{
			Label:   topic,
			Summary: args.TopicSummary,
		},
		Continuity: models.DigestContinuity{
			LastUserCore:      lastUser,
			LastAssistantCore: lastAssistant,
			RepeatSignal:      models.NormalizeText(args.CurrentText) != "" && models.NormalizeText(args.CurrentText) == lastUser,
		},
	}
}

// SerializeDigest renders the digest as the system message content
func SerializeDigest(d models.HistoryDigest) string {
	var sb strings.Builder
	sb.WriteString(digestMarker)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("anchor: %s (%s)\n", d.Anchor.Key, d.Anchor.Phrase))
	sb.WriteString(fmt.Sprintf("state: q=%s depth=%s phase=%s\n", d.State.Q, d.State.Depth, d.State.Phase))
	sb.WriteString(fmt.Sprintf("topic: %s", d.Topic.Label))
	if d.Topic.Summary != "" {
		sb.WriteString(" — " + d.Topic.Summary)
	}
	sb.WriteString("\n")
	if d.Continuity.LastUserCore != "" {
		sb.WriteString(fmt.Sprintf("last_user: %s\n", d.Continuity.LastUserCore))
	}
	if d.Continuity.LastAssistantCore != "" {
		sb.WriteString(fmt.Sprintf("last_assistant: %s\n", d.Continuity.LastAssistantCore))
	}
	if d.Continuity.RepeatSignal {
		sb.WriteString("repeat_signal: true\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// InjectDigest inserts the serialized digest as a system message immediately
// after the first system message, or at position 0 if none exists. If a digest
// marker is already present the input is returned unchanged with injected=false.
func InjectDigest(messages []models.HistoryMessage, d models.HistoryDigest) ([]models.HistoryMessage, bool) {
	for _, msg := range messages {
		if msg.Role == models.RoleSystem && strings.HasPrefix(msg.Content, digestMarker) {
			return messages, false
		}
	}

	digestMsg := models.HistoryMessage{
		Role:    models.RoleSystem,
		Content: SerializeDigest(d),
	}

	insertAt := 0
	for i, msg := range messages {
		if msg.Role == models.RoleSystem {
			insertAt = i + 1
			break
		}
	}

	injected := make([]models.HistoryMessage, 0, len(messages)+1)
	injected = append(injected, messages[:insertAt]...)
	injected = append(injected, digestMsg)
	injected = append(injected, messages[insertAt:]...)
	return injected, true
}

// lastCores pulls the trailing user and assistant snippets from history
func lastCores(history []models.HistoryMessage) (lastUser, lastAssistant string) {
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Role {
		case models.RoleUser:
			if lastUser == "" {
				lastUser = coreSnippet(history[i].Content)
			}
		case models.RoleAssistant:
			if lastAssistant == "" {
				lastAssistant = coreSnippet(history[i].Content)
			}
		}
		if lastUser != "" && lastAssistant != "" {
			break
		}
	}
	return lastUser, lastAssistant
}

// coreSnippet normalizes and truncates message content for the digest
func coreSnippet(text string) string {
	norm := models.NormalizeText(text)
	if utf8.RuneCountInString(norm) <= coreSnippetChars {
		return norm
	}
	runes := []rune(norm)
	return string(runes[:coreSnippetChars]) + "…"
}
