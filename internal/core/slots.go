// ABOUTME: Slot plan builders for fixed-format and scaffold replies
// ABOUTME: FINAL plans are rendered verbatim; SCAFFOLD plans may be replaced by generated text
package core

import (
	"fmt"
	"strings"

	"github.com/kokorohq/compass/internal/models"
)

// diagnosisTriggers request the fixed-format diagnostic reading.
// Lexical and likely incomplete; treat as a minimum, not an exhaustive classifier.
var diagnosisTriggers = []string{
	"診断して", "診断結果", "今の状態を教えて", "ステージを教えて",
	"diagnose me", "my reading", "where am i now",
}

// WantsDiagnosis reports whether the utterance asks for the structured reading
func WantsDiagnosis(text string) bool {
	lower := strings.ToLower(models.NormalizeText(text))
	for _, trigger := range diagnosisTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// BuildDiagnosticPlan produces the fixed-format diagnostic reply. The plan is
// FINAL: its content is locked and must never be sent for rewriting.
func BuildDiagnosticPlan(tc *TurnContext, anchor models.Anchor) models.SlotPlan {
	state := tc.Classification.Normalized()

	var reading strings.Builder
	reading.WriteString(fmt.Sprintf("いまの位置づけ: %s / %s（%sフェーズ）\n", state.Q, state.Depth, phaseLabel(state.Phase)))
	reading.WriteString(fmt.Sprintf("北極星: %s", anchor.Key))
	if anchor.Phrase != "" {
		reading.WriteString(" — " + anchor.Phrase)
	}
	if tc.PersonState != nil {
		if tc.PersonState.CoreNeed != "" {
			reading.WriteString("\n中心にある望み: " + tc.PersonState.CoreNeed)
		}
		if tc.PersonState.GuidanceHint != "" {
			reading.WriteString("\n次の一歩: " + tc.PersonState.GuidanceHint)
		}
	}

	return models.SlotPlan{
		Policy: models.PolicyFinal,
		Slots: []models.Slot{
			models.NewSlot("diagnostic_opening", "calm", "いまの状態を整理してみますね。"),
			models.NewSlot("diagnostic_reading", "structured", reading.String()),
			models.NewSlot("diagnostic_closing", "calm", "この見立ては固定ではなく、話しながら変わっていくものです。"),
		},
	}
}

// BuildExpansionPlan produces the scaffold for an expansion moment: a fork
// offer for BRANCH, a provisional close for TENTATIVE. The renderer may
// replace this content with validated generated text.
func BuildExpansionPlan(moment ExpansionMoment) (models.SlotPlan, bool) {
	switch moment.Decision {
	case ExpansionBranch:
		return models.SlotPlan{
			Policy: models.PolicyScaffold,
			Slots: []models.Slot{
				models.NewSlot("acknowledge", "warm", "ここまで話してくれて、ありがとうございます。"),
				models.NewSlot("fork", "open", "ここから、いま感じていることを深める道と、少し視点を変えて眺めてみる道があります。どちらが今の気分に近いですか。"),
			},
		}, true
	case ExpansionTentative:
		return models.SlotPlan{
			Policy: models.PolicyScaffold,
			Slots: []models.Slot{
				models.NewSlot("acknowledge", "warm", "いまはここまで、という感じが伝わってきます。"),
				models.NewSlot("provisional_close", "soft", "無理にまとめなくて大丈夫です。いったんここで区切って、また続きが浮かんだら聞かせてください。"),
			},
		}, true
	default:
		return models.SlotPlan{}, false
	}
}

// BuildDefaultScaffold is the safety default handed to the generation call
func BuildDefaultScaffold() models.SlotPlan {
	return models.SlotPlan{
		Policy: models.PolicyScaffold,
		Slots: []models.Slot{
			models.NewSlot("default_reply", "warm", ""),
		},
	}
}

func phaseLabel(p models.Phase) string {
	if p == models.PhaseOuter {
		return "外"
	}
	return "内"
}
