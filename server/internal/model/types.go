package model

import "time"

// UseCase 场景类型（求职面试、签证面签、董事会汇报……）。
type UseCase string

const (
	UseCaseJobInterview         UseCase = "job_interview"
	UseCaseEmbassyInterview     UseCase = "embassy_interview"
	UseCaseScholarshipInterview UseCase = "scholarship_interview"
	UseCaseBusinessPitch        UseCase = "business_pitch"
	UseCaseAcademicPresentation UseCase = "academic_presentation"
	UseCaseBoardPresentation    UseCase = "board_presentation"
	UseCaseConference           UseCase = "conference"
	UseCaseExhibition           UseCase = "exhibition"
	UseCaseMediaInterview       UseCase = "media_interview"
)

// Personality 面试官人格标签（封闭枚举）。
type Personality string

const (
	PersonalityStrict     Personality = "strict"
	PersonalitySupportive Personality = "supportive"
	PersonalitySkeptical  Personality = "skeptical"
	PersonalityTechnical  Personality = "technical"
	PersonalityDirect     Personality = "direct"
	PersonalityAnalytical Personality = "analytical"
	PersonalityExecutive  Personality = "executive"
)

// Country 决定默认面试官名字、语气指南与音色。
type Country string

const (
	CountryNigeria     Country = "nigeria"
	CountryKenya       Country = "kenya"
	CountrySouthAfrica Country = "south_africa"
)

type Formality string

const (
	FormalityFormal     Formality = "formal"
	FormalitySemiFormal Formality = "semi_formal"
	FormalityInformal   Formality = "informal"
)

type Directness string

const (
	DirectnessHigh   Directness = "high"
	DirectnessMedium Directness = "medium"
	DirectnessLow    Directness = "low"
)

// PanelMember 是面试小组中的一个角色，会话创建后不可变。
type PanelMember struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Role        string      `json:"role" yaml:"role"`
	Personality Personality `json:"personality" yaml:"personality"`
	VoiceID     string      `json:"voice_id,omitempty" yaml:"voice_id"`
	Focus       string      `json:"focus,omitempty" yaml:"focus"`
	Gender      string      `json:"gender,omitempty" yaml:"gender"`
}

// QuestionBank 按阶段划分的兜底题库。
type QuestionBank struct {
	Early []string `json:"early" yaml:"early"`
	Core  []string `json:"core" yaml:"core"`
	Late  []string `json:"late" yaml:"late"`
}

// UseCaseConfig 场景的静态描述，加载一次后只读。
type UseCaseConfig struct {
	UseCase          UseCase       `json:"use_case" yaml:"use_case"`
	DisplayName      string        `json:"display_name" yaml:"display_name"`
	Description      string        `json:"description" yaml:"description"`
	Formality        Formality     `json:"formality" yaml:"formality"`
	Directness       Directness    `json:"directness" yaml:"directness"`
	ExpectedDuration string        `json:"expected_duration" yaml:"expected_duration"`
	MinQuestions     int           `json:"min_questions" yaml:"min_questions"`
	MaxQuestions     int           `json:"max_questions" yaml:"max_questions"`
	DefaultPanel     []PanelMember `json:"default_panel" yaml:"default_panel"`
	KeyQuestions     []string      `json:"key_questions" yaml:"key_questions"`
	CulturalMarkers  []string      `json:"cultural_markers" yaml:"cultural_markers"`
	Keywords         []string      `json:"-" yaml:"keywords"`
	QuestionBank     QuestionBank  `json:"-" yaml:"question_bank"`
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

type EvasionType string

const (
	EvasionNone              EvasionType = "none"
	EvasionCircularStory     EvasionType = "circular_story"
	EvasionVagueGeneralities EvasionType = "vague_generalities"
	EvasionExcessiveContext  EvasionType = "excessive_context"
)

type Evasiveness struct {
	IsEvasive  bool        `json:"is_evasive"`
	Type       EvasionType `json:"type"`
	Confidence float64     `json:"confidence"`
}

// CulturalContext 单次回答的文化与修辞标记，生成后不再修改。
type CulturalContext struct {
	UsesDialect         bool            `json:"uses_dialect"`
	DialectPhrases      []string        `json:"dialect_phrases"`
	ReligiousReferences []string        `json:"religious_references"`
	DeferenceMarkers    []string        `json:"deference_markers"`
	FamilyObligations   bool            `json:"family_obligations"`
	MentionsGod         bool            `json:"mentions_god"`
	ConfidenceLevel     ConfidenceLevel `json:"confidence_level"`
	Nervousness         bool            `json:"nervousness"`
	Overconfidence      bool            `json:"overconfidence"`
	Evasiveness         Evasiveness     `json:"evasiveness"`
	ExcessiveRespect    bool            `json:"excessive_respect"`
}

type ContentSignals struct {
	HasSpecificExample bool `json:"has_specific_example"`
	HasNumbers         bool `json:"has_numbers"`
	WordCount          int  `json:"word_count"`
	AnsweredDirectly   bool `json:"answered_directly"`
	TechnicalJargon    bool `json:"technical_jargon"`
	RelevantToQuestion bool `json:"relevant_to_question"`
}

type ToneSignals struct {
	Defensive    bool `json:"defensive"`
	Apologetic   bool `json:"apologetic"`
	Enthusiastic bool `json:"enthusiastic"`
}

// ResponseAnalysis 是 CulturalContext 加上内容与语气信号。
type ResponseAnalysis struct {
	Cultural CulturalContext `json:"cultural"`
	Content  ContentSignals  `json:"content"`
	Tone     ToneSignals     `json:"tone"`
}

// QuestionFeedback 对一次回答的评价，挂在对应的候选人消息上。
type QuestionFeedback struct {
	Score           int      `json:"score"`
	Rating          string   `json:"rating"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	SuggestedAnswer string   `json:"suggested_answer"`
	Satisfied       bool     `json:"satisfied"`
	CulturalNotes   string   `json:"cultural_notes,omitempty"`
}

type Sender string

const (
	SenderPanel     Sender = "panel"
	SenderCandidate Sender = "candidate"
)

// Message 转写中的一条记录。只追加，不删除、不重排。
type Message struct {
	ID                 string            `json:"id"`
	Sender             Sender            `json:"sender"`
	PanelMemberID      string            `json:"panel_member_id,omitempty"`
	Text               string            `json:"text"`
	Timestamp          time.Time         `json:"timestamp"`
	IsQuestion         bool              `json:"is_question"`
	Feedback           *QuestionFeedback `json:"feedback,omitempty"`
	CulturalContext    *CulturalContext  `json:"cultural_context,omitempty"`
	IsReaction         bool              `json:"is_reaction,omitempty"`
	IsPanelInteraction bool              `json:"is_panel_interaction,omitempty"`
	IsOpeningPhase     bool              `json:"is_opening_phase,omitempty"`
	ReactionTarget     string            `json:"reaction_target,omitempty"`
	Tone               string            `json:"tone,omitempty"`
}

type Status string

const (
	StatusConfiguring Status = "configuring"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
)

// Session 是聚合根，由调用方独占持有；引擎每次返回更新后的副本。
type Session struct {
	ID                string            `json:"id"`
	UseCase           UseCase           `json:"use_case"`
	Topic             string            `json:"topic,omitempty"`
	Company           string            `json:"company,omitempty"`
	Country           Country           `json:"country,omitempty"`
	Panel             []PanelMember     `json:"panel"`
	CurrentPanelIndex int               `json:"current_panel_index"`
	QuestionCount     int               `json:"question_count"`
	MaxQuestions      int               `json:"max_questions"`
	Messages          []Message         `json:"messages"`
	QuestionsAsked    []string          `json:"questions_asked"`
	CulturalContexts  []CulturalContext `json:"cultural_contexts"`
	// LastReactions 记录每位面试官上一次的微反应（panelist id -> text），用于不重复规则。
	LastReactions map[string]string `json:"last_reactions,omitempty"`
	Status        Status            `json:"status"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       *time.Time        `json:"end_time,omitempty"`
	Seed          int64             `json:"seed"`
}

// CurrentSpeaker 返回当前轮次的面试官。
func (s *Session) CurrentSpeaker() PanelMember {
	return s.Panel[s.CurrentPanelIndex]
}

// Member 按 id 查找面试官。
func (s *Session) Member(id string) (PanelMember, bool) {
	for _, m := range s.Panel {
		if m.ID == id {
			return m, true
		}
	}
	return PanelMember{}, false
}

// LastQuestion 返回最近一条面试官提问的原文。
func (s *Session) LastQuestion() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Sender == SenderPanel && m.IsQuestion {
			return m, true
		}
	}
	return Message{}, false
}

// Clone 深拷贝会话，保证调用方持有的旧值不被修改。
func (s *Session) Clone() *Session {
	out := *s
	out.Panel = append([]PanelMember(nil), s.Panel...)
	out.QuestionsAsked = append([]string(nil), s.QuestionsAsked...)
	out.CulturalContexts = make([]CulturalContext, len(s.CulturalContexts))
	for i, c := range s.CulturalContexts {
		out.CulturalContexts[i] = c.clone()
	}
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.clone()
	}
	if s.LastReactions != nil {
		out.LastReactions = make(map[string]string, len(s.LastReactions))
		for k, v := range s.LastReactions {
			out.LastReactions[k] = v
		}
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	return &out
}

func (c CulturalContext) clone() CulturalContext {
	c.DialectPhrases = append([]string(nil), c.DialectPhrases...)
	c.ReligiousReferences = append([]string(nil), c.ReligiousReferences...)
	c.DeferenceMarkers = append([]string(nil), c.DeferenceMarkers...)
	return c
}

func (m Message) clone() Message {
	if m.Feedback != nil {
		fb := *m.Feedback
		fb.Strengths = append([]string(nil), fb.Strengths...)
		fb.Improvements = append([]string(nil), fb.Improvements...)
		m.Feedback = &fb
	}
	if m.CulturalContext != nil {
		cc := m.CulturalContext.clone()
		m.CulturalContext = &cc
	}
	return m
}

// SessionSummary 从会话即时推导的只读投影，不随会话持久化。
type SessionSummary struct {
	OverallScore         int               `json:"overall_score"`
	Rating               string            `json:"rating"`
	Recommendation       string            `json:"recommendation"`
	Strengths            []string          `json:"strengths"`
	Improvements         []string          `json:"improvements"`
	CulturalAdaptability string            `json:"cultural_adaptability"`
	DurationMinutes      int               `json:"duration_minutes"`
	QuestionsAnswered    int               `json:"questions_answered"`
	PanelFeedback        map[string]string `json:"panel_feedback"`
}
