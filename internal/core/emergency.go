// ABOUTME: Emergency deterministic responder for degenerate input or a failed generation service
// ABOUTME: Pure mapping from coarse lexical signals to short, non-directive fixed replies
package core

import (
	"strings"

	"github.com/kokorohq/compass/internal/models"
)

// Emergency signal classes
const (
	EmergencyFatigue  = "fatigue"
	EmergencyFear     = "fear"
	EmergencyQuestion = "question"
	EmergencyDefault  = "default"
)

var fatigueWords = []string{"疲れ", "つかれ", "しんど", "くたくた", "tired", "exhausted", "drained"}
var fearWords = []string{"怖", "不安", "こわい", "心配", "afraid", "scared", "anxious", "worried"}

// emergencyReplies never claim certainty and never direct the user
var emergencyReplies = map[string]string{
	EmergencyFatigue:  "おつかれさまです。いまは無理をしなくて大丈夫ですよ。",
	EmergencyFear:     "不安な気持ち、ここでそのまま出して大丈夫です。そばにいます。",
	EmergencyQuestion: "すぐに答えは出せないかもしれませんが、一緒に考えてみますね。",
	EmergencyDefault:  "ここにいますよ。よかったら、もう少し聞かせてください。",
}

// ClassifyEmergencySignal maps text to one of the coarse lexical classes
func ClassifyEmergencySignal(text string) string {
	norm := strings.ToLower(models.NormalizeText(text))
	for _, word := range fatigueWords {
		if strings.Contains(norm, word) {
			return EmergencyFatigue
		}
	}
	for _, word := range fearWords {
		if strings.Contains(norm, word) {
			return EmergencyFear
		}
	}
	if strings.HasSuffix(norm, "?") || strings.HasSuffix(norm, "？") {
		return EmergencyQuestion
	}
	return EmergencyDefault
}

// EmergencyReply picks the fixed reply for text. This path never calls the
// generation service.
func EmergencyReply(text string) string {
	return emergencyReplies[ClassifyEmergencySignal(text)]
}
