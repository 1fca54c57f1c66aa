// ABOUTME: Tests for expansion-moment detection and the decision priority table
// ABOUTME: Same inputs must always produce the same decision
package core

import "testing"

func TestDetectExpansionMoment(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		recent []string
		want   ExpansionDecision
	}{
		{
			"no signal",
			"今日は仕事でいろいろあって、気持ちの整理がつかないまま帰ってきた気がする",
			nil,
			ExpansionNone,
		},
		{
			"empty input",
			"",
			nil,
			ExpansionNone,
		},
		{
			"closing word alone is short so it closes provisionally",
			"もういい",
			nil,
			ExpansionTentative,
		},
		{
			"short repeat of recent utterance",
			"やっぱり無理かもしれない",
			[]string{"やっぱり無理かもしれない"},
			ExpansionTentative,
		},
		{
			"long repeat with assertive ending",
			"この仕事は自分には向いていないと思うんです。",
			[]string{"この仕事は自分には向いていないと思うんです。"},
			ExpansionTentative,
		},
		{
			"assertive ending alone offers a fork",
			"結局は自分のせいだと思っているんです。",
			nil,
			ExpansionBranch,
		},
		{
			"closing word in a long assertive sentence offers a fork",
			"要するに、私は自分の気持ちを誰にも話せていなかったということなんです。",
			nil,
			ExpansionBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectExpansionMoment(tt.text, tt.recent)
			if got.Decision != tt.want {
				t.Errorf("DetectExpansionMoment(%q) = %s (reasons %v), want %s",
					tt.text, got.Decision, got.Reasons, tt.want)
			}
			if tt.want != ExpansionNone && len(got.Reasons) == 0 {
				t.Error("non-NONE decision should carry reasons")
			}
		})
	}
}

func TestDetectExpansionMoment_Deterministic(t *testing.T) {
	recent := []string{"もう何度も同じところで止まっている", "前にも言った気がする"}
	text := "もう何度も同じところで止まっている"

	first := DetectExpansionMoment(text, recent)
	for i := 0; i < 5; i++ {
		again := DetectExpansionMoment(text, recent)
		if again.Decision != first.Decision {
			t.Fatalf("decision changed across identical calls: %s vs %s", first.Decision, again.Decision)
		}
	}
}

func TestDetectExpansionMoment_LoopUsesOnlyRecentThree(t *testing.T) {
	// The repeated utterance is beyond the three-utterance window
	recent := []string{"別の話をひとつしました", "もうひとつ別の話をしました", "さらに別の話を続けました", "繰り返している長い発話の中身はこれです"}
	got := DetectExpansionMoment("繰り返している長い発話の中身はこれです", recent)
	if got.Decision == ExpansionTentative {
		t.Errorf("loop matched outside the recent window: %+v", got)
	}
}
