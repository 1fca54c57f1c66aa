// ABOUTME: Tests for diagnosis detection and slot plan builders
// ABOUTME: FINAL plans render verbatim; expansion plans match the detector decision
package core

import (
	"strings"
	"testing"

	"github.com/kokorohq/compass/internal/models"
)

func TestWantsDiagnosis(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"診断して", true},
		{"いまの診断結果を見たい", true},
		{"今の状態を教えて", true},
		{"diagnose me please", true},
		{"where am i now", true},
		{"今日は疲れた", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := WantsDiagnosis(tt.text); got != tt.want {
			t.Errorf("WantsDiagnosis(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestBuildDiagnosticPlan_IsFinalAndComplete(t *testing.T) {
	tc := NewTurnContext(1)
	tc.Classification = models.ClassificationState{Q: models.Q3, Depth: "I1", Phase: models.PhaseOuter}
	tc.PersonState = &models.PersonState{CoreNeed: "安心して話せる場所"}

	anchor := models.Anchor{Key: "SUN", Phrase: "staying with what matters most"}
	plan := BuildDiagnosticPlan(tc, anchor)

	if !plan.IsFinal() {
		t.Fatal("diagnostic plan must be FINAL")
	}
	if len(plan.Slots) != 3 {
		t.Fatalf("plan has %d slots, want 3", len(plan.Slots))
	}
	for _, slot := range plan.Slots {
		if strings.TrimSpace(slot.Content) == "" {
			t.Errorf("slot %q has empty content", slot.Key)
		}
	}

	rendered := plan.Render()
	if !strings.Contains(rendered, "Q3") {
		t.Errorf("rendered reading missing Q code: %q", rendered)
	}
	if !strings.Contains(rendered, "SUN") {
		t.Errorf("rendered reading missing anchor key: %q", rendered)
	}
	if !strings.Contains(rendered, "安心して話せる場所") {
		t.Errorf("rendered reading missing core need: %q", rendered)
	}
}

func TestBuildDiagnosticPlan_RenderIsStable(t *testing.T) {
	tc := NewTurnContext(1)
	anchor := models.DefaultAnchor()

	first := BuildDiagnosticPlan(tc, anchor).Render()
	second := BuildDiagnosticPlan(tc, anchor).Render()
	if first != second {
		t.Error("FINAL plan content must be identical across builds with the same inputs")
	}
}

func TestBuildExpansionPlan(t *testing.T) {
	branch, ok := BuildExpansionPlan(ExpansionMoment{Decision: ExpansionBranch})
	if !ok {
		t.Fatal("BRANCH should produce a plan")
	}
	if branch.Policy != models.PolicyScaffold {
		t.Errorf("branch plan policy = %q, want SCAFFOLD", branch.Policy)
	}
	if len(branch.Slots) != 2 {
		t.Errorf("branch plan has %d slots, want 2", len(branch.Slots))
	}

	tentative, ok := BuildExpansionPlan(ExpansionMoment{Decision: ExpansionTentative})
	if !ok {
		t.Fatal("TENTATIVE should produce a plan")
	}
	if tentative.Render() == branch.Render() {
		t.Error("fork offer and provisional close should differ")
	}

	if _, ok := BuildExpansionPlan(ExpansionMoment{Decision: ExpansionNone}); ok {
		t.Error("NONE should not produce a plan")
	}
}

func TestBuildDefaultScaffold_NeverEmpty(t *testing.T) {
	scaffold := BuildDefaultScaffold()
	if scaffold.Policy != models.PolicyScaffold {
		t.Errorf("policy = %q, want SCAFFOLD", scaffold.Policy)
	}
	if strings.TrimSpace(scaffold.Render()) == "" {
		t.Error("default scaffold must render non-empty content")
	}
	if scaffold.Render() != models.SafeDefaultSentence {
		t.Errorf("default scaffold = %q, want the safe default sentence", scaffold.Render())
	}
}
