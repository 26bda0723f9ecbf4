package analyzer

import (
	"fmt"
	"math/rand"
	"strings"

	"saphira/server/internal/model"
)

var evasionResponses = map[model.EvasionType][]string{
	model.EvasionCircularStory: {
		"Let me stop you there. I asked a specific question. Can you give me a direct answer, yes or no, then explain?",
		"You're giving me a timeline, not an answer. What was YOUR specific contribution?",
		"I need you to focus. Answer the question directly.",
	},
	model.EvasionVagueGeneralities: {
		"That's a bit general. Can you give me a specific example with numbers or dates?",
		"I need more detail. What exactly did you do?",
		"Be specific. What was the actual outcome?",
	},
	model.EvasionExcessiveContext: {
		"I appreciate the background, but what specifically was YOUR role in this?",
		"Let's cut to the chase. What was the result?",
		"I understand the context, but I asked a specific question. Please answer directly.",
	},
}

// EvasionResponse 返回一句把候选人拉回问题的话；非回避时返回空串。
func EvasionResponse(t model.EvasionType, rng *rand.Rand) string {
	options := evasionResponses[t]
	if len(options) == 0 {
		return ""
	}
	return options[rng.Intn(len(options))]
}

// AdaptationNotes 给面试官的文化适配提示，按固定顺序输出。
func AdaptationNotes(c model.CulturalContext) []string {
	var notes []string
	if c.UsesDialect {
		notes = append(notes, "Candidate uses Pidgin - respond warmly but maintain professionalism.")
	}
	if len(c.ReligiousReferences) > 0 {
		notes = append(notes, "Acknowledge the religious reference briefly, then redirect to professional matters.")
	}
	if c.FamilyObligations {
		notes = append(notes, "Family obligations mentioned - acknowledge briefly without dwelling on them.")
	}
	if c.ExcessiveRespect {
		notes = append(notes, "Excessive deference detected - try to equalize and build confidence.")
	}
	if c.Nervousness {
		notes = append(notes, "Candidate seems nervous - use an encouraging tone.")
	}
	if c.Overconfidence {
		notes = append(notes, "Overconfidence detected - challenge with a specific follow-up.")
	}
	if c.Evasiveness.IsEvasive {
		notes = append(notes, fmt.Sprintf("Evasive answer (%s) - redirect for a direct answer.", c.Evasiveness.Type))
	}
	return notes
}

// Tone 回应语气建议。
type Tone struct {
	Name      string
	Formality model.Formality
	Guide     string
}

// SuggestTone 依据文化标记决定面试官下一句的语气；后面的规则覆盖前面的。
func SuggestTone(c model.CulturalContext, base model.Formality) Tone {
	t := Tone{Name: "professional", Formality: base, Guide: "Stay neutral and professional."}
	if c.Nervousness {
		t = Tone{Name: "encouraging", Formality: model.FormalityInformal, Guide: "Be warm and patient. Reassure before asking."}
	}
	if c.UsesDialect {
		t = Tone{Name: "warm_professional", Formality: model.FormalitySemiFormal, Guide: "Acknowledge the rapport, keep your own language professional."}
	}
	if c.ExcessiveRespect {
		t = Tone{Name: "equalizing", Formality: model.FormalityInformal, Guide: "Speak as a peer. Invite the candidate to relax the formality."}
	}
	if c.Overconfidence {
		t = Tone{Name: "challenging", Formality: model.FormalityFormal, Guide: "Press for evidence behind every claim."}
	}
	if c.Evasiveness.IsEvasive {
		t = Tone{Name: "redirecting", Formality: model.FormalityFormal, Guide: "Interrupt politely and restate the question."}
	}
	return t
}

// Describe 生成写入 prompt 的单行分析摘要。
func Describe(a model.ResponseAnalysis) string {
	c := a.Cultural
	parts := []string{
		fmt.Sprintf("confidence=%s", c.ConfidenceLevel),
		fmt.Sprintf("nervous=%t", c.Nervousness),
		fmt.Sprintf("overconfident=%t", c.Overconfidence),
		fmt.Sprintf("evasive=%t(%s)", c.Evasiveness.IsEvasive, c.Evasiveness.Type),
	}
	if c.UsesDialect {
		parts = append(parts, "pidgin="+strings.Join(c.DialectPhrases, "/"))
	}
	if len(c.ReligiousReferences) > 0 {
		parts = append(parts, "religious="+strings.Join(c.ReligiousReferences, "/"))
	}
	if c.ExcessiveRespect {
		parts = append(parts, "excessive_respect=true")
	}
	parts = append(parts,
		fmt.Sprintf("words=%d", a.Content.WordCount),
		fmt.Sprintf("numbers=%t", a.Content.HasNumbers),
		fmt.Sprintf("example=%t", a.Content.HasSpecificExample),
		fmt.Sprintf("direct=%t", a.Content.AnsweredDirectly),
		fmt.Sprintf("relevant=%t", a.Content.RelevantToQuestion),
	)
	return strings.Join(parts, ", ")
}
