package analyzer

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"saphira/server/internal/model"
)

// TestAnalyzeAchievementAnswer 验证带数字、第一人称成就动词的回答被识别为具体且有数字。
func TestAnalyzeAchievementAnswer(t *testing.T) {
	a := Analyze("I led a team of 12 and increased revenue by 35% in 2023 by redesigning the onboarding flow", "Tell me about your leadership experience.")
	if !a.Content.HasNumbers {
		t.Fatalf("expected HasNumbers")
	}
	if !a.Content.HasSpecificExample {
		t.Fatalf("expected HasSpecificExample")
	}
	if a.Cultural.Evasiveness.IsEvasive {
		t.Fatalf("did not expect evasive, got %+v", a.Cultural.Evasiveness)
	}
	if a.Content.WordCount != 18 {
		t.Fatalf("expected 18 words, got %d", a.Content.WordCount)
	}
}

// TestAnalyzeNonAnswerIsEvasive 验证"我不知道"被视为空泛回避，且与问题不相关。
func TestAnalyzeNonAnswerIsEvasive(t *testing.T) {
	a := Analyze("I don't know", "Tell me about your leadership experience.")
	ev := a.Cultural.Evasiveness
	if !ev.IsEvasive || ev.Type != model.EvasionVagueGeneralities {
		t.Fatalf("expected vague evasion, got %+v", ev)
	}
	if a.Content.RelevantToQuestion {
		t.Fatalf("non-answer should not be relevant")
	}
	if a.Content.HasSpecificExample || a.Content.HasNumbers {
		t.Fatalf("non-answer should not carry content signals: %+v", a.Content)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := Analyze("", "What is your greatest strength?")
	if a.Content.WordCount != 0 || a.Content.HasSpecificExample || a.Content.AnsweredDirectly {
		t.Fatalf("empty answer should be non-specific: %+v", a.Content)
	}
	if a.Content.RelevantToQuestion {
		t.Fatalf("empty answer should not be relevant")
	}
	if a.Cultural.Evasiveness.IsEvasive {
		t.Fatalf("empty answer should not be evasive by default")
	}
	if a.Cultural.ConfidenceLevel != model.ConfidenceMedium {
		t.Fatalf("expected medium confidence, got %s", a.Cultural.ConfidenceLevel)
	}
}

func TestAnalyzeDialectMarkers(t *testing.T) {
	a := Analyze("Abeg, no wahala, I dey manage the project well.", "")
	if !a.Cultural.UsesDialect {
		t.Fatalf("expected dialect use")
	}
	want := []string{"abeg", "wahala", "dey"}
	if !reflect.DeepEqual(a.Cultural.DialectPhrases, want) {
		t.Fatalf("expected phrases %v, got %v", want, a.Cultural.DialectPhrases)
	}
	if !a.Content.RelevantToQuestion {
		t.Fatalf("answer without question should count as relevant")
	}
}

// TestAnalyzeDialectNeedsWordBoundary 验证方言词只按整词匹配（"banana" 不算 "na"）。
func TestAnalyzeDialectNeedsWordBoundary(t *testing.T) {
	a := Analyze("I managed banana exports and the agenda for the company.", "")
	if a.Cultural.UsesDialect {
		t.Fatalf("unexpected dialect phrases: %v", a.Cultural.DialectPhrases)
	}
}

func TestAnalyzeNervousness(t *testing.T) {
	a := Analyze("Um, I think, uh, maybe I could... you know, try.", "")
	if !a.Cultural.Nervousness {
		t.Fatalf("expected nervousness")
	}
	if a.Cultural.ConfidenceLevel != model.ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", a.Cultural.ConfidenceLevel)
	}
}

func TestAnalyzeHighConfidence(t *testing.T) {
	a := Analyze("Yes. Specifically, I led the migration and the result was a faster release cycle.", "")
	if a.Cultural.ConfidenceLevel != model.ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", a.Cultural.ConfidenceLevel)
	}
}

func TestAnalyzeOverconfidence(t *testing.T) {
	a := Analyze("I am definitely the best candidate, obviously nobody can match me.", "")
	if !a.Cultural.Overconfidence {
		t.Fatalf("expected overconfidence")
	}
}

// TestAnalyzeEvasionPrecedence 验证冗长铺垫优先于绕圈叙事和空泛概括。
func TestAnalyzeEvasionPrecedence(t *testing.T) {
	long := strings.Repeat("the market was changing quickly around us ", 15) + "and then after that we kept going and then basically, you know, sort of, kind of"
	a := Analyze(long, "")
	if a.Cultural.Evasiveness.Type != model.EvasionExcessiveContext {
		t.Fatalf("expected excessive_context, got %s", a.Cultural.Evasiveness.Type)
	}

	circular := "So we started the project in the first quarter with the whole team, and then after that we moved to the next phase of the rollout."
	a = Analyze(circular, "")
	if a.Cultural.Evasiveness.Type != model.EvasionCircularStory {
		t.Fatalf("expected circular_story, got %s", a.Cultural.Evasiveness.Type)
	}

	vague := "Basically we did stuff like that, you know, sort of things and kind of worked."
	a = Analyze(vague, "")
	if a.Cultural.Evasiveness.Type != model.EvasionVagueGeneralities || a.Cultural.Evasiveness.Confidence != 0.7 {
		t.Fatalf("expected vague_generalities at 0.7, got %+v", a.Cultural.Evasiveness)
	}
}

func TestAnalyzeExcessiveRespect(t *testing.T) {
	a := Analyze("Sir, with due respect sir, if I may, sir, I will do my best.", "")
	if !a.Cultural.ExcessiveRespect {
		t.Fatalf("expected excessive respect, markers=%v", a.Cultural.DeferenceMarkers)
	}
}

func TestAnalyzeReligiousAndFamily(t *testing.T) {
	a := Analyze("By God's grace I will support my family and it is well.", "")
	if len(a.Cultural.ReligiousReferences) != 2 || !a.Cultural.MentionsGod {
		t.Fatalf("expected two religious references, got %v", a.Cultural.ReligiousReferences)
	}
	if !a.Cultural.FamilyObligations {
		t.Fatalf("expected family obligations")
	}
}

// TestAnalyzeDeterministic 验证相同输入两次分析结果完全一致。
func TestAnalyzeDeterministic(t *testing.T) {
	text := "Um, basically I sort of managed the team, sir, and we grew sales by 20 percent in 2022!!"
	first := Analyze(text, "How did you manage the team?")
	second := Analyze(text, "How did you manage the team?")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("analysis is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestEvasionResponseAndNotes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if EvasionResponse(model.EvasionNone, rng) != "" {
		t.Fatalf("expected empty response for none")
	}
	if EvasionResponse(model.EvasionCircularStory, rng) == "" {
		t.Fatalf("expected a redirect line")
	}

	a := Analyze("Abeg, I don't know", "")
	notes := AdaptationNotes(a.Cultural)
	if len(notes) != 2 {
		t.Fatalf("expected dialect and evasion notes, got %v", notes)
	}
	if tone := SuggestTone(a.Cultural, model.FormalityFormal); tone.Name != "redirecting" {
		t.Fatalf("evasion should win the tone, got %s", tone.Name)
	}
}
