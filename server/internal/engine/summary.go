package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"saphira/server/internal/generator"
	"saphira/server/internal/model"
)

const (
	neutralScore   = 5
	summaryListCap = 3
)

// GenerateSessionSummary 纯投影：同一会话多次调用结果相同（进行中的会话时长除外）。
func (e *Engine) GenerateSessionSummary(s *model.Session) model.SessionSummary {
	var feedbacks []*model.QuestionFeedback
	panelFeedback := make(map[string]string)
	answered := 0
	asker := ""
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Sender == model.SenderPanel && m.IsQuestion {
			asker = m.PanelMemberID
			continue
		}
		if m.Sender != model.SenderCandidate {
			continue
		}
		answered++
		if m.Feedback == nil {
			continue
		}
		feedbacks = append(feedbacks, m.Feedback)
		if member, ok := s.Member(asker); ok {
			if _, seen := panelFeedback[member.Name]; !seen {
				panelFeedback[member.Name] = fmt.Sprintf("%s - %s", m.Feedback.Rating, firstOr(m.Feedback.Strengths, "No specific feedback"))
			}
		}
	}

	score := neutralScore
	if len(feedbacks) > 0 {
		total := 0
		for _, fb := range feedbacks {
			total += fb.Score
		}
		score = int(math.Round(float64(total) / float64(len(feedbacks))))
	}

	var strengths, improvements []string
	for _, fb := range feedbacks {
		strengths = append(strengths, fb.Strengths...)
		improvements = append(improvements, fb.Improvements...)
	}

	return model.SessionSummary{
		OverallScore:         score,
		Rating:               generator.Rating(score),
		Recommendation:       recommendation(score),
		Strengths:            dedupCap(strengths, summaryListCap),
		Improvements:         dedupCap(improvements, summaryListCap),
		CulturalAdaptability: e.culturalAdaptability(s),
		DurationMinutes:      e.durationMinutes(s),
		QuestionsAnswered:    answered,
		PanelFeedback:        panelFeedback,
	}
}

func recommendation(score int) string {
	switch {
	case score >= 8:
		return "Strongly Recommend"
	case score >= 6:
		return "Recommend"
	case score >= 4:
		return "Consider with Reservations"
	default:
		return "Not Recommended"
	}
}

// culturalAdaptability 每条回答基准 3 分，按方言、不紧张、不回避、高自信、宗教表达加分，取平均后分四档。
// 过度敬语只取消方言与宗教表达的加分。
func (e *Engine) culturalAdaptability(s *model.Session) string {
	if len(s.CulturalContexts) == 0 {
		return "Not assessed"
	}
	total := 0.0
	for _, c := range s.CulturalContexts {
		score := 3.0
		if c.UsesDialect && !c.ExcessiveRespect {
			score++
		}
		if !c.Nervousness {
			score++
		}
		if !c.Evasiveness.IsEvasive {
			score++
		}
		if c.ConfidenceLevel == model.ConfidenceHigh {
			score++
		}
		if len(c.ReligiousReferences) > 0 && !c.ExcessiveRespect {
			score += 0.5
		}
		total += score
	}
	avg := total / float64(len(s.CulturalContexts))

	cp, _ := e.catalog.Country(s.Country)
	switch {
	case avg >= 7:
		return fmt.Sprintf("Excellent - Natural and confident in %s professional context", cp.DisplayName)
	case avg >= 5:
		return "Good - Comfortable with cultural norms"
	case avg >= 3:
		return "Average - Some awareness of cultural context"
	default:
		return "Needs Development - Work on cultural fluency"
	}
}

func (e *Engine) durationMinutes(s *model.Session) int {
	end := e.now()
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return int(math.Round(end.Sub(s.StartTime).Minutes()))
}

func dedupCap(items []string, n int) []string {
	out := make([]string, 0, n)
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
		if len(out) == n {
			break
		}
	}
	return out
}

func firstOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return items[0]
}

// Export 会话的完整 JSON，可用于恢复与审计。
func (e *Engine) Export(s *model.Session) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

// Import 解析并校验导出的会话。
func (e *Engine) Import(data []byte) (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if err := e.validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (e *Engine) validate(s *model.Session) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidSession)
	case len(s.Panel) == 0:
		return fmt.Errorf("%w: empty panel", ErrInvalidSession)
	case s.MaxQuestions < 1:
		return fmt.Errorf("%w: max_questions must be positive", ErrInvalidSession)
	case s.CurrentPanelIndex < 0 || s.CurrentPanelIndex >= len(s.Panel):
		return fmt.Errorf("%w: current_panel_index %d out of range", ErrInvalidSession, s.CurrentPanelIndex)
	case s.QuestionCount < 0 || s.QuestionCount > s.MaxQuestions:
		return fmt.Errorf("%w: question_count %d out of range", ErrInvalidSession, s.QuestionCount)
	}
	switch s.Status {
	case model.StatusConfiguring, model.StatusInProgress, model.StatusCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, s.Status)
	}
	if _, ok := e.catalog.UseCase(s.UseCase); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUseCase, s.UseCase)
	}
	return validatePanel(s.Panel)
}
