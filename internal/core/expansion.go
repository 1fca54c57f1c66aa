// ABOUTME: Expansion-moment detection over the current utterance and recent utterances
// ABOUTME: Three signal families resolved by a fixed priority table, not a score threshold
package core

import (
	"strings"

	"github.com/kokorohq/compass/internal/models"
)

// ExpansionDecision is the detector's output
type ExpansionDecision string

const (
	// ExpansionNone - no signal; proceed normally
	ExpansionNone ExpansionDecision = "NONE"
	// ExpansionBranch - offer a fork
	ExpansionBranch ExpansionDecision = "BRANCH"
	// ExpansionTentative - offer a provisional close
	ExpansionTentative ExpansionDecision = "TENTATIVE"
)

// ExpansionMoment is the decision plus the reasons that produced it
type ExpansionMoment struct {
	Decision ExpansionDecision
	Reasons  []string
}

// maxMeaningfulChars is the brevity cutoff for the short signal
const maxMeaningfulChars = 14

// closingTriggers are closing/summary words signalling the user is wrapping up
var closingTriggers = []string{
	"要するに", "つまり", "もういい", "そういうこと", "以上です", "それだけ",
	"in short", "i guess", "that's it", "whatever", "anyway", "basically",
}

// assertiveEndings mark utterances ending in an assertive form
var assertiveEndings = []string{
	"だ", "です", "でしょ", "だよ", "のだ", ".", "!", "。", "！",
}

// DetectExpansionMoment classifies the current utterance against recent user
// utterances. Pure function: same inputs, same decision.
func DetectExpansionMoment(userText string, recentUserTexts []string) ExpansionMoment {
	norm := models.NormalizeText(userText)
	if norm == "" {
		return ExpansionMoment{Decision: ExpansionNone}
	}

	var (
		reasons   []string
		trigger   = hasClosingTrigger(norm)
		loop      = hasLoopSignal(norm, recentUserTexts)
		short     = models.MeaningfulLength(norm) <= maxMeaningfulChars
		assertive = hasAssertiveEnding(norm)
	)

	if trigger {
		reasons = append(reasons, "language_trigger")
	}
	if loop {
		reasons = append(reasons, "loop_signal")
	}
	if short {
		reasons = append(reasons, "brevity")
	}
	if assertive {
		reasons = append(reasons, "assertive_ending")
	}

	if len(reasons) == 0 {
		return ExpansionMoment{Decision: ExpansionNone}
	}

	// Priority table, checked in order: a provisional close wins over a fork
	if (short && loop) || (short && trigger) || (loop && assertive) {
		return ExpansionMoment{Decision: ExpansionTentative, Reasons: reasons}
	}
	return ExpansionMoment{Decision: ExpansionBranch, Reasons: reasons}
}

// hasClosingTrigger checks for closing/summary trigger words
func hasClosingTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range closingTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// hasLoopSignal checks whether the utterance repeats, prefixes, or suffixes
// one of the last three user utterances
func hasLoopSignal(text string, recentUserTexts []string) bool {
	recent := recentUserTexts
	if len(recent) > 3 {
		recent = recent[:3]
	}
	for _, prev := range recent {
		prevNorm := models.NormalizeText(prev)
		if prevNorm == "" {
			continue
		}
		if text == prevNorm ||
			strings.HasPrefix(prevNorm, text) || strings.HasSuffix(prevNorm, text) ||
			strings.HasPrefix(text, prevNorm) || strings.HasSuffix(text, prevNorm) {
			return true
		}
	}
	return false
}

// hasAssertiveEnding checks for an assertive closing form
func hasAssertiveEnding(text string) bool {
	trimmed := strings.TrimRight(text, " ")
	for _, ending := range assertiveEndings {
		if strings.HasSuffix(trimmed, ending) {
			return true
		}
	}
	return false
}
