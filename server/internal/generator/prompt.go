package generator

import (
	"fmt"
	"strings"

	"saphira/server/internal/analyzer"
	"saphira/server/internal/llm"
	"saphira/server/internal/model"
	"saphira/server/internal/personality"
)

var turnSchema = &llm.JSONSchema{
	Name: "panel_turn",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "What the panelist says next, 1-3 sentences",
			},
			"is_question": map[string]any{"type": "boolean"},
			"tone": map[string]any{
				"type": "string",
				"enum": []string{"encouraging", "challenging", "neutral", "warm"},
			},
			"suggested_follow_up": map[string]any{"type": "string"},
			"cultural_adaptation": map[string]any{"type": "string"},
		},
		"required":             []string{"text", "is_question", "tone", "suggested_follow_up", "cultural_adaptation"},
		"additionalProperties": false,
	},
	Strict: true,
}

var feedbackSchema = &llm.JSONSchema{
	Name: "answer_feedback",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":            map[string]any{"type": "integer", "description": "1-10"},
			"rating":           map[string]any{"type": "string", "enum": []string{"Excellent", "Good", "Average", "Needs Improvement"}},
			"strengths":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"improvements":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggested_answer": map[string]any{"type": "string"},
			"cultural_notes":   map[string]any{"type": "string"},
			"satisfied":        map[string]any{"type": "boolean"},
		},
		"required":             []string{"score", "rating", "strengths", "improvements", "suggested_answer", "cultural_notes", "satisfied"},
		"additionalProperties": false,
	},
	Strict: true,
}

const feedbackSystemPrompt = `You are an experienced interview coach evaluating one answer from a practice session.
Score strictly from 1 to 10. Reward relevance, specific examples, numbers and clarity.
Penalize evasion and vague generalities. Respond with a single JSON object only.`

// systemPrompt 面试官人格 + 国家语气指南。
func (g *Generator) systemPrompt(req TurnRequest) string {
	s := req.Session
	cp, _ := g.catalog.Country(s.Country)
	filler := ""
	if len(cp.Fillers) > 0 {
		filler = cp.Fillers[req.RNG.Intn(len(cp.Fillers))]
	}
	return personality.BuildPrompt(req.Speaker, personality.PromptOptions{
		UseCase:   g.useCase(s.UseCase),
		Company:   s.Company,
		Topic:     s.Topic,
		Country:   string(s.Country),
		ToneGuide: g.catalog.ToneGuide(s.Country, s.Company),
		Filler:    filler,
	})
}

func (g *Generator) turnUserPrompt(req TurnRequest) string {
	s := req.Session
	cfg := g.useCase(s.UseCase)
	c := req.Analysis.Cultural
	var sb strings.Builder

	sb.WriteString("## Session\n\n")
	fmt.Fprintf(&sb, "Use case: %s\n", cfg.DisplayName)
	if s.Topic != "" {
		fmt.Fprintf(&sb, "Role/topic: %s\n", s.Topic)
	}
	fmt.Fprintf(&sb, "Question %d of %d (stage: %s)\n", s.QuestionCount+1, s.MaxQuestions, StageFor(s.QuestionCount, s.MaxQuestions))
	if len(cfg.KeyQuestions) > 0 {
		fmt.Fprintf(&sb, "Typical questions for this setting: %s\n", strings.Join(cfg.KeyQuestions, "; "))
	}
	if sector := g.catalog.DetectSector(s.Topic, s.Company); sector != "" {
		fmt.Fprintf(&sb, "Sector: %s\n", sector)
	}
	if co, ok := g.catalog.Company(s.Company); ok {
		fmt.Fprintf(&sb, "Company: %s\n", co.Name)
		for _, st := range co.InterviewStages {
			fmt.Fprintf(&sb, "- Stage %d: %s (%s)\n", st.Stage, st.Name, strings.Join(st.Components, ", "))
		}
		fmt.Fprintf(&sb, "Questions %s actually asks: %s\n", co.Name, strings.Join(co.Questions, "; "))
	}

	fmt.Fprintf(&sb, "\nCandidate just said: %q\n", req.LastAnswer)
	fmt.Fprintf(&sb, "\nPrevious questions asked: %s\n", orNone(strings.Join(lastN(s.QuestionsAsked, g.prevLimit), "; ")))
	fmt.Fprintf(&sb, "\nRecent conversation:\n%s\n", g.formatRecentMessages(s))

	sb.WriteString("\n## Analysis\n\n")
	sb.WriteString(analyzer.Describe(req.Analysis))
	sb.WriteString("\n")
	for _, note := range analyzer.AdaptationNotes(c) {
		fmt.Fprintf(&sb, "- %s\n", note)
	}
	if c.Evasiveness.IsEvasive {
		fmt.Fprintf(&sb, "\nEVASION DETECTED - address this first: %q\n", analyzer.EvasionResponse(c.Evasiveness.Type, req.RNG))
	}

	sb.WriteString("\n## Instructions\n\n")
	sb.WriteString("1. Generate the next question or response as the interviewer.\n")
	if c.Evasiveness.IsEvasive {
		sb.WriteString("2. Address the evasion directly and firmly, then ask for a specific answer.\n")
	} else {
		sb.WriteString("2. Dig deeper into one aspect of their answer or ask a follow-up question.\n")
	}
	switch {
	case req.Challenge:
		sb.WriteString("3. Challenge this answer: ask for evidence or deeper reasoning.\n")
	case req.Quality == personality.QualityStrong:
		sb.WriteString("3. Briefly acknowledge the strong answer before moving on.\n")
	default:
		sb.WriteString("3. Keep the pace steady.\n")
	}
	switch {
	case req.Analysis.Content.HasSpecificExample && !req.Analysis.Content.HasNumbers:
		sb.WriteString("4. Ask for specific numbers or metrics.\n")
	case !req.Analysis.Content.HasSpecificExample:
		sb.WriteString("4. Ask for a specific example with details.\n")
	}
	fmt.Fprintf(&sb, "5. Never repeat or rephrase these questions: %s\n", orNone(strings.Join(s.QuestionsAsked, "; ")))

	sb.WriteString(`
Respond with a JSON object:
{"text": "...", "is_question": true, "tone": "encouraging|challenging|neutral|warm", "suggested_follow_up": "...", "cultural_adaptation": "..."}
`)
	return sb.String()
}

// formatRecentMessages 最近 N 条发言，带说话人。
func (g *Generator) formatRecentMessages(s *model.Session) string {
	msgs := s.Messages
	if len(msgs) > g.window {
		msgs = msgs[len(msgs)-g.window:]
	}
	if len(msgs) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speaker := "Candidate"
		if m.Sender == model.SenderPanel {
			speaker = "Interviewer"
			if member, ok := s.Member(m.PanelMemberID); ok {
				speaker = member.Name
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %q", speaker, m.Text))
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) feedbackUserPrompt(req FeedbackRequest) string {
	c := req.Analysis.Cultural
	var sb strings.Builder
	fmt.Fprintf(&sb, "Setting: %s\n", req.UseCase.DisplayName)
	if req.Topic != "" {
		fmt.Fprintf(&sb, "Role/topic: %s\n", req.Topic)
	}
	fmt.Fprintf(&sb, "Question: %q\n", req.Question)
	fmt.Fprintf(&sb, "Candidate's answer: %q\n\n", req.Answer)
	fmt.Fprintf(&sb, "Cultural context (%s): pidgin=%t, religious=%t, confidence=%s, evasive=%t\n",
		countryName(req.Country), c.UsesDialect, len(c.ReligiousReferences) > 0, c.ConfidenceLevel, c.Evasiveness.IsEvasive)
	sb.WriteString(`
Evaluate relevance, specificity (examples, numbers), clarity, professional tone and cultural appropriateness.
Respond with a JSON object:
{"score": 1-10, "rating": "Excellent|Good|Average|Needs Improvement", "strengths": [], "improvements": [], "suggested_answer": "...", "cultural_notes": "...", "satisfied": true}
`)
	return sb.String()
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
