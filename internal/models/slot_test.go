// ABOUTME: Tests for slot construction and plan rendering
// ABOUTME: Blank slot content must never survive; the safe default fills it
package models

import (
	"strings"
	"testing"
)

func TestNewSlot_BlankContentGetsSafeDefault(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"tabs and newlines", "\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := NewSlot("opening", "warm", tt.content)
			if slot.Content != SafeDefaultSentence {
				t.Errorf("NewSlot content = %q, want safe default", slot.Content)
			}
		})
	}

	slot := NewSlot("opening", "warm", "real content")
	if slot.Content != "real content" {
		t.Errorf("NewSlot content = %q, want %q", slot.Content, "real content")
	}
	if slot.Role != RoleAssistant {
		t.Errorf("NewSlot role = %q, want %q", slot.Role, RoleAssistant)
	}
}

func TestSlotPlan_Render(t *testing.T) {
	plan := SlotPlan{
		Policy: PolicyScaffold,
		Slots: []Slot{
			NewSlot("first", "warm", "one"),
			NewSlot("second", "open", "two"),
		},
	}

	got := plan.Render()
	if got != "one\n\ntwo" {
		t.Errorf("Render() = %q, want slots joined by blank lines", got)
	}
	if strings.Contains(got, SafeDefaultSentence) {
		t.Error("Render() should not include safe default when all slots have content")
	}
}

func TestSlotPlan_IsFinal(t *testing.T) {
	final := SlotPlan{Policy: PolicyFinal}
	if !final.IsFinal() {
		t.Error("FINAL plan should report IsFinal")
	}
	scaffold := SlotPlan{Policy: PolicyScaffold}
	if scaffold.IsFinal() {
		t.Error("SCAFFOLD plan should not report IsFinal")
	}
}
