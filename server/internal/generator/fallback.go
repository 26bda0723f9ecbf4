package generator

import (
	"fmt"
	"regexp"
	"strings"

	"saphira/server/internal/analyzer"
	"saphira/server/internal/model"
	"saphira/server/internal/personality"
)

// Stage 面试阶段，决定兜底题库取哪一段。
type Stage string

const (
	StageEarly Stage = "early"
	StageCore  Stage = "core"
	StageLate  Stage = "late"
)

const (
	earlyQuestions = 2
	lateQuestions  = 3
)

const (
	evasivePrefix       = "Let me stop you there. You didn't answer my question directly. "
	nervousPrefix       = "Don't worry, take your time. "
	overconfidentPrefix = "Let me push you on that. "
)

var placeholderPattern = regexp.MustCompile(`\{(role|country)\|([^}]*)\}`)

// 题库全部用完后的通用模板，按题号轮转。
var genericTemplates = map[model.UseCase][]string{
	model.UseCaseJobInterview: {
		"Tell me more about your experience with {role|this field}.",
		"What challenges have you faced as a {role|professional}?",
		"How do you stay current with developments in {role|your industry}?",
		"Describe a project you're particularly proud of.",
	},
	model.UseCaseEmbassyInterview: {
		"What ties do you have to {country|your home country} that will ensure your return?",
		"Who is funding this trip and what is your relationship to them?",
		"What will you do after completing your studies?",
		"Have you traveled abroad before?",
	},
	model.UseCaseScholarshipInterview: {
		"How will this scholarship help you achieve your goals?",
		"Tell us about your leadership experience.",
		"How do you plan to give back to your community?",
		"What sets you apart from other applicants?",
	},
	model.UseCaseBusinessPitch: {
		"What is your customer acquisition strategy?",
		"Who are your main competitors and how do you differentiate?",
		"What is your monthly burn rate and runway?",
		"Tell me about your team's background.",
	},
	model.UseCaseAcademicPresentation: {
		"What is your main contribution to knowledge in this field?",
		"How does your methodology address potential biases?",
		"What are the practical implications of your findings?",
		"How would you extend this research in the future?",
	},
	model.UseCaseBoardPresentation: {
		"What is the projected ROI over 3 years?",
		"What are the key risks and mitigation strategies?",
		"How does this align with our strategic objectives?",
		"What resources will this require?",
	},
	model.UseCaseConference: {
		"What is the key takeaway for the audience?",
		"How does this compare to previous approaches?",
		"What are the limitations of this work?",
	},
	model.UseCaseExhibition: {
		"What makes your product unique?",
		"Who are your current customers?",
		"What is your pricing model?",
	},
	model.UseCaseMediaInterview: {
		"How do you respond to criticisms about {role|this issue}?",
		"What is your vision for the next 5 years?",
		"Why should the public trust you on this?",
	},
}

// StageFor 前两题为 early，收尾前最后三题为 late，其余为 core。
func StageFor(questionIndex, maxQuestions int) Stage {
	switch {
	case questionIndex < earlyQuestions:
		return StageEarly
	case questionIndex >= maxQuestions-1-lateQuestions:
		return StageLate
	default:
		return StageCore
	}
}

func bankFor(b model.QuestionBank, st Stage) []string {
	switch st {
	case StageEarly:
		return b.Early
	case StageLate:
		return b.Late
	default:
		return b.Core
	}
}

// fill 替换 {role|默认} 与 {country|默认} 占位符。
func fill(items []string, role, country string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = placeholderPattern.ReplaceAllStringFunc(item, func(m string) string {
			parts := placeholderPattern.FindStringSubmatch(m)
			value := role
			if parts[1] == "country" {
				value = country
			}
			if value == "" {
				return parts[2]
			}
			return value
		})
	}
	return out
}

func firstUnused(items []string, start int, previous []string) (string, bool) {
	for i := 0; i < len(items); i++ {
		q := items[(start+i)%len(items)]
		if !asked(previous, q) {
			return q, true
		}
	}
	return "", false
}

// FallbackQuestion 从题库中挑一个本场没问过的问题。companyBank 是目标公司的题库，
// core 阶段优先使用，其他阶段排在本阶段题库之后。题库与通用模板都用完时，
// 用题号限定模板文本，保证规范化后仍不重复。
func FallbackQuestion(cfg model.UseCaseConfig, s *model.Session, companyBank ...string) string {
	idx := s.QuestionCount
	role := s.Topic
	country := countryName(s.Country)

	stage := StageFor(idx, s.MaxQuestions)
	var banks [][]string
	if stage == StageCore {
		banks = append(banks, companyBank, bankFor(cfg.QuestionBank, stage))
	} else {
		banks = append(banks, bankFor(cfg.QuestionBank, stage), companyBank)
	}
	for _, st := range []Stage{StageEarly, StageCore, StageLate} {
		if st != stage {
			banks = append(banks, bankFor(cfg.QuestionBank, st))
		}
	}
	for _, bank := range banks {
		if q, ok := firstUnused(fill(bank, role, country), 0, s.QuestionsAsked); ok {
			return q
		}
	}

	templates, ok := genericTemplates[cfg.UseCase]
	if !ok {
		templates = genericTemplates[model.UseCaseJobInterview]
	}
	templates = fill(templates, role, country)
	if q, ok := firstUnused(templates, idx, s.QuestionsAsked); ok {
		return q
	}
	base := templates[idx%len(templates)]
	for n := idx + 1; ; n++ {
		q := fmt.Sprintf("Follow-up %d: %s", n, base)
		if !asked(s.QuestionsAsked, q) {
			return q
		}
	}
}

func (g *Generator) fallbackTurn(req TurnRequest) GeneratedTurn {
	cfg := g.useCase(req.Session.UseCase)
	var companyBank []string
	if cfg.UseCase == model.UseCaseJobInterview {
		companyBank = g.catalog.CompanyQuestions(req.Session.Company)
	}
	question := FallbackQuestion(cfg, req.Session, companyBank...)
	text, tone := decorate(question, req)

	turn := GeneratedTurn{
		Text:       text,
		Questions:  []string{question},
		IsQuestion: true,
		Tone:       tone,
	}
	if req.Analysis.Cultural.UsesDialect {
		turn.CulturalAdaptation = "Acknowledged Pidgin, maintained professionalism"
	}
	return turn
}

// decorate 依据分析结果给问题加前缀。回避优先于其他信号。
func decorate(question string, req TurnRequest) (string, string) {
	c := req.Analysis.Cultural
	profile := personality.Lookup(req.Speaker.Personality)
	switch {
	case c.Evasiveness.IsEvasive:
		return evasivePrefix + question, "challenging"
	case c.Nervousness:
		return nervousPrefix + question, "encouraging"
	case c.Overconfidence:
		return overconfidentPrefix + question, "challenging"
	case req.Challenge && len(profile.ChallengePhrases) > 0:
		return profile.ChallengePhrases[req.RNG.Intn(len(profile.ChallengePhrases))] + " " + question, "challenging"
	case req.Quality == personality.QualityStrong && len(profile.EncouragingPhrases) > 0:
		return profile.EncouragingPhrases[req.RNG.Intn(len(profile.EncouragingPhrases))] + " " + question, "warm"
	}
	return question, "neutral"
}

func countryName(c model.Country) string {
	if c == "" {
		return ""
	}
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

const (
	baseScore          = 5
	detailedWords      = 50
	satisfiedScore     = 6
	defaultStrength    = "Stayed engaged with the question"
	defaultImprovement = "Structure your answer: situation, action, result"
	suggestedAnswer    = "A strong answer would include specific examples with numbers, be concise (1-2 minutes), and directly address the question asked."
)

var (
	digitPattern       = regexp.MustCompile(`\d`)
	achievementPattern = regexp.MustCompile(`(?i)\bi\s+(?:led|managed|created|built|launched|delivered|increased|reduced|grew)\b`)
)

// Rating 分数到评级的固定映射。
func Rating(score int) string {
	switch {
	case score >= 8:
		return "Excellent"
	case score >= 6:
		return "Good"
	case score >= 4:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// FallbackFeedback 规则评分：基准 5 分，按长度、数字、成就动词、回避与"不知道"加减，限制在 1-10。
func FallbackFeedback(answer string, a model.ResponseAnalysis) model.QuestionFeedback {
	score := baseScore
	var strengths, improvements []string

	if len(strings.Fields(answer)) > detailedWords {
		strengths = append(strengths, "Provided detailed response")
		score++
	} else {
		improvements = append(improvements, "Provide more detail in your answers")
		score--
	}
	if digitPattern.MatchString(answer) {
		strengths = append(strengths, "Used specific numbers/metrics")
		score += 2
	} else {
		improvements = append(improvements, "Include specific numbers when possible")
	}
	if achievementPattern.MatchString(answer) {
		strengths = append(strengths, "Gave specific examples")
		score++
	} else {
		improvements = append(improvements, "Use concrete examples to illustrate your points")
	}
	if a.Cultural.Evasiveness.IsEvasive {
		improvements = append(improvements, "Answer questions more directly")
		score -= 2
	}
	if analyzer.IsNonAnswer(answer) {
		improvements = append(improvements, "Offer what you do know instead of stopping at \"I don't know\"")
		score--
	}

	score = max(1, min(10, score))
	if len(strengths) == 0 {
		strengths = append(strengths, defaultStrength)
	}
	if len(improvements) == 0 {
		improvements = append(improvements, defaultImprovement)
	}

	fb := model.QuestionFeedback{
		Score:           score,
		Rating:          Rating(score),
		Strengths:       strengths,
		Improvements:    improvements,
		SuggestedAnswer: suggestedAnswer,
		Satisfied:       score >= satisfiedScore,
	}
	if a.Cultural.UsesDialect {
		fb.CulturalNotes = "Using Pidgin shows authenticity but ensure professional clarity"
	}
	return fb
}
