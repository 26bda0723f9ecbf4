package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"saphira/server/internal/model"
)

var (
	fencePattern       = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	sentencePattern    = regexp.MustCompile(`[^.!?]+[.!?]*`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

func stripMarkdownFences(text string) string {
	if m := fencePattern.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// Normalize 去重用的规范化：小写、去标点、合并空白。
func Normalize(q string) string {
	q = strings.ToLower(q)
	q = punctuationPattern.ReplaceAllString(q, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(q, " "))
}

// Sentences 按句末标点切分，丢掉规范化后为空的片段。
func Sentences(text string) []string {
	var out []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		if sent := strings.TrimSpace(m); Normalize(sent) != "" {
			out = append(out, sent)
		}
	}
	return out
}

// QuestionClauses 返回所有带问号的句子；一个都没有时返回最后一句，
// 面试官的台词通常先寒暄、最后才提问。
func QuestionClauses(text string) []string {
	sents := Sentences(text)
	var out []string
	for _, sent := range sents {
		if strings.Contains(sent, "?") {
			out = append(out, sent)
		}
	}
	if len(out) == 0 && len(sents) > 0 {
		out = append(out, sents[len(sents)-1])
	}
	return out
}

// ExtractQuestion 取第一个问句，没有问号时取最后一句。
func ExtractQuestion(text string) string {
	if qs := QuestionClauses(text); len(qs) > 0 {
		return qs[0]
	}
	return ""
}

func asked(previous []string, question string) bool {
	n := Normalize(question)
	if n == "" {
		return false
	}
	for _, p := range previous {
		if Normalize(p) == n {
			return true
		}
	}
	return false
}

// repeatedSentence 返回 text 中第一句与已问问题重复的句子。
func repeatedSentence(previous []string, text string) (string, bool) {
	for _, sent := range Sentences(text) {
		if asked(previous, sent) {
			return sent, true
		}
	}
	return "", false
}

type turnPayload struct {
	Text               string `json:"text"`
	IsQuestion         *bool  `json:"is_question"`
	Tone               string `json:"tone"`
	SuggestedFollowUp  string `json:"suggested_follow_up"`
	CulturalAdaptation string `json:"cultural_adaptation"`
}

func parseTurn(raw string) (GeneratedTurn, error) {
	var p turnPayload
	if err := json.Unmarshal([]byte(extractJSON(stripMarkdownFences(raw))), &p); err != nil {
		return GeneratedTurn{}, fmt.Errorf("unmarshal turn: %w", err)
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return GeneratedTurn{}, errors.New("turn has no text")
	}
	isQuestion := true
	if p.IsQuestion != nil {
		isQuestion = *p.IsQuestion
	}
	tone := p.Tone
	if tone == "" {
		tone = "neutral"
	}
	return GeneratedTurn{
		Text:               text,
		Questions:          QuestionClauses(text),
		IsQuestion:         isQuestion,
		Tone:               tone,
		SuggestedFollowUp:  p.SuggestedFollowUp,
		CulturalAdaptation: p.CulturalAdaptation,
	}, nil
}

type feedbackPayload struct {
	Score           int      `json:"score"`
	Rating          string   `json:"rating"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	SuggestedAnswer string   `json:"suggested_answer"`
	CulturalNotes   string   `json:"cultural_notes"`
	Satisfied       *bool    `json:"satisfied"`
}

func parseFeedback(raw string) (model.QuestionFeedback, error) {
	var p feedbackPayload
	if err := json.Unmarshal([]byte(extractJSON(stripMarkdownFences(raw))), &p); err != nil {
		return model.QuestionFeedback{}, fmt.Errorf("unmarshal feedback: %w", err)
	}
	if p.Score < 1 || p.Score > 10 {
		return model.QuestionFeedback{}, fmt.Errorf("score out of range: %d", p.Score)
	}
	fb := model.QuestionFeedback{
		Score:           p.Score,
		Rating:          p.Rating,
		Strengths:       p.Strengths,
		Improvements:    p.Improvements,
		SuggestedAnswer: p.SuggestedAnswer,
		Satisfied:       p.Score >= satisfiedScore,
		CulturalNotes:   p.CulturalNotes,
	}
	if p.Satisfied != nil {
		fb.Satisfied = *p.Satisfied
	}
	if fb.Rating == "" {
		fb.Rating = Rating(fb.Score)
	}
	if len(fb.Strengths) == 0 {
		fb.Strengths = []string{defaultStrength}
	}
	if len(fb.Improvements) == 0 {
		fb.Improvements = []string{defaultImprovement}
	}
	if fb.SuggestedAnswer == "" {
		fb.SuggestedAnswer = suggestedAnswer
	}
	return fb, nil
}
