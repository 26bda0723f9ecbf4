// Package engine 是面试会话的状态机：创建、开场、逐轮处理回答、结束与总结。
//
// 引擎不持有会话。每个入口接收 *model.Session，返回更新后的深拷贝；
// 调用方负责保存与串行化同一会话的调用。
package engine

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	mathrand "math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"saphira/server/internal/analyzer"
	"saphira/server/internal/config"
	"saphira/server/internal/domain"
	"saphira/server/internal/generator"
	"saphira/server/internal/interaction"
	"saphira/server/internal/model"
	"saphira/server/internal/personality"
)

var (
	// ErrInvalidTransition 在错误的状态下调用了操作，属于调用方的契约错误。
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrUnknownUseCase 场景不在目录中。
	ErrUnknownUseCase = errors.New("unknown use case")
	// ErrInvalidSession 会话结构不合法（导入或自定义面试小组）。
	ErrInvalidSession = errors.New("invalid session")
)

// Options 创建会话的可选参数。
type Options struct {
	Topic        string
	Company      string
	Country      model.Country
	CustomPanel  []model.PanelMember
	MaxQuestions int
	// Seed 为 0 时取当前时间。
	Seed int64
}

// Pacing 给展示层的节奏提示，引擎本身不等待。
type Pacing struct {
	ReactionDelay time.Duration `json:"reaction_delay"`
	ThinkingDelay time.Duration `json:"thinking_delay"`
}

// TurnResult 一轮处理的结果。Messages 是本轮追加的消息，按顺序。
type TurnResult struct {
	Session    *model.Session
	Messages   []model.Message
	Response   model.Message
	Reaction   *model.Message
	Feedback   *model.QuestionFeedback
	Analysis   model.ResponseAnalysis
	IsComplete bool
	Pacing     Pacing

	QuestionOutcome generator.Outcome
	FeedbackOutcome generator.Outcome
}

// Engine 无会话状态，可被多个会话共享。
type Engine struct {
	cfg      config.EngineConfig
	catalog  *domain.Catalog
	gen      *generator.Generator
	selector *interaction.Selector
	now      func() time.Time
}

// New cfg 为零值时使用 config.Default() 的引擎参数。
func New(cfg config.EngineConfig, catalog *domain.Catalog, gen *generator.Generator, now func() time.Time) *Engine {
	if cfg == (config.EngineConfig{}) {
		cfg = config.Default().Engine
	}
	if catalog == nil {
		catalog = domain.Default()
	}
	if gen == nil {
		gen = generator.New(nil, catalog, generator.Options{
			ConversationWindow:    cfg.ConversationWindow,
			PreviousQuestionLimit: cfg.PreviousQuestionLimit,
		})
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:      cfg,
		catalog:  catalog,
		gen:      gen,
		selector: interaction.NewSelector(interaction.PolicyFromConfig(cfg)),
		now:      now,
	}
}

// Catalog 返回引擎使用的场景目录。
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// rng 每次调用按 Seed+消息数派生，同一会话同一位置的随机结果可复现。
func (e *Engine) rng(s *model.Session) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(s.Seed + int64(len(s.Messages))))
}

func (e *Engine) newMessage(sender model.Sender, memberID, text string, ts time.Time) model.Message {
	return model.Message{
		ID:            ulid.MustNew(ulid.Timestamp(ts), rand.Reader).String(),
		Sender:        sender,
		PanelMemberID: memberID,
		Text:          text,
		Timestamp:     ts,
	}
}

// CreateSession 创建处于 configuring 状态的会话。
func (e *Engine) CreateSession(useCase model.UseCase, opts Options) (*model.Session, error) {
	cfg, ok := e.catalog.UseCase(useCase)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUseCase, useCase)
	}
	if opts.MaxQuestions < 0 {
		return nil, fmt.Errorf("%w: max questions must not be negative", ErrInvalidSession)
	}

	company := opts.Company
	co, knownCompany := e.catalog.Company(company)
	if knownCompany {
		company = co.Name
	}

	country := opts.Country
	if country == "" && knownCompany {
		country = co.Country
	}
	if country == "" {
		country = model.Country(e.cfg.DefaultCountry)
	}
	if _, known := e.catalog.Country(country); !known {
		log.Printf("[Engine] ⚠️  unknown country %q, falling back to %s", country, model.CountryNigeria)
		country = model.CountryNigeria
	}

	var panel []model.PanelMember
	if len(opts.CustomPanel) > 0 {
		if err := validatePanel(opts.CustomPanel); err != nil {
			return nil, err
		}
		panel = append([]model.PanelMember(nil), opts.CustomPanel...)
	} else {
		panel, _ = e.catalog.LocalizedPanel(useCase, country)
	}

	maxQuestions := cfg.MaxQuestions
	if e.cfg.DefaultMaxQuestions > 0 {
		maxQuestions = e.cfg.DefaultMaxQuestions
	}
	if opts.MaxQuestions > 0 {
		maxQuestions = opts.MaxQuestions
	}

	now := e.now()
	seed := opts.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	return &model.Session{
		ID:               uuid.NewString(),
		UseCase:          useCase,
		Topic:            opts.Topic,
		Company:          company,
		Country:          country,
		Panel:            panel,
		MaxQuestions:     maxQuestions,
		Messages:         []model.Message{},
		QuestionsAsked:   []string{},
		CulturalContexts: []model.CulturalContext{},
		Status:           model.StatusConfiguring,
		StartTime:        now,
		Seed:             seed,
	}, nil
}

func validatePanel(panel []model.PanelMember) error {
	seen := make(map[string]bool, len(panel))
	for i, m := range panel {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("%w: panel member %d needs an id and a name", ErrInvalidSession, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate panel member id %q", ErrInvalidSession, m.ID)
		}
		seen[m.ID] = true
		if !personality.Known(m.Personality) {
			log.Printf("[Engine] ⚠️  panel member %s has unknown personality %q, using %s", m.ID, m.Personality, personality.DefaultPersonality)
		}
	}
	return nil
}

// StartSession 生成开场：每位面试官自我介绍、过渡语、开场问题。结果只取决于面试小组与场景。
func (e *Engine) StartSession(s *model.Session) (*model.Session, []model.Message, error) {
	if s.Status != model.StatusConfiguring {
		return nil, nil, fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.Status)
	}
	out := s.Clone()
	now := e.now()

	lines := openingLines(out)
	msgs := make([]model.Message, 0, len(lines))
	for _, l := range lines {
		m := e.newMessage(model.SenderPanel, l.memberID, l.text, now)
		m.IsQuestion = l.question
		m.IsOpeningPhase = true
		msgs = append(msgs, m)
	}

	out.Messages = append(out.Messages, msgs...)
	out.QuestionsAsked = append(out.QuestionsAsked, generator.QuestionClauses(msgs[len(msgs)-1].Text)...)
	out.Status = model.StatusInProgress
	out.StartTime = now
	log.Printf("[Engine] ✅ session %s started (%s, %d panelists, max %d questions)", out.ID, out.UseCase, len(out.Panel), out.MaxQuestions)
	return out, msgs, nil
}

// ProcessResponse 处理一条候选人回答。只能在 in_progress 状态调用。
// 生成失败不会中断本轮，而是走模板兜底；ctx 在进入时已取消则直接返回错误。
func (e *Engine) ProcessResponse(ctx context.Context, s *model.Session, text string) (*TurnResult, error) {
	if s.Status != model.StatusInProgress {
		return nil, fmt.Errorf("%w: process response in %s", ErrInvalidTransition, s.Status)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := s.Clone()
	rng := e.rng(out)
	now := e.now()

	lastQuestion, _ := out.LastQuestion()
	analysis := analyzer.Analyze(text, lastQuestion.Text)
	cultural := analysis.Cultural

	candidate := e.newMessage(model.SenderCandidate, "", text, now)
	candidate.CulturalContext = &cultural
	out.CulturalContexts = append(out.CulturalContexts, analysis.Cultural)

	if out.QuestionCount >= out.MaxQuestions-1 {
		closing := e.newMessage(model.SenderPanel, out.Panel[0].ID, closingText(out), now)
		closing.IsQuestion = out.UseCase == model.UseCaseJobInterview
		out.Messages = append(out.Messages, candidate, closing)
		e.complete(out, now)
		log.Printf("[Engine] ✅ session %s completed after %d questions", out.ID, out.QuestionCount)
		return &TurnResult{
			Session:    out,
			Messages:   []model.Message{candidate, closing},
			Response:   closing,
			Analysis:   analysis,
			IsComplete: true,
		}, nil
	}

	useCase, _ := e.catalog.UseCase(out.UseCase)
	asker := out.CurrentSpeaker()
	nextIndex := (out.CurrentPanelIndex + 1) % len(out.Panel)
	next := out.Panel[nextIndex]

	feedback, fbOutcome := e.gen.Feedback(ctx, generator.FeedbackRequest{
		UseCase:  useCase,
		Question: lastQuestion.Text,
		Answer:   text,
		Topic:    out.Topic,
		Country:  out.Country,
		Analysis: analysis,
	})
	candidate.Feedback = &feedback
	out.Messages = append(out.Messages, candidate)

	if out.LastReactions == nil {
		out.LastReactions = make(map[string]string)
	}
	var reaction *model.Message
	if r, ok := e.selector.HumanReaction(rng, out.LastReactions, next, out.QuestionCount); ok {
		m := e.newMessage(model.SenderPanel, next.ID, r, now)
		m.IsReaction = true
		reaction = &m
	} else if d := e.selector.Decide(rng, text, asker, next); d.Kind != interaction.KindNone {
		m := e.newMessage(model.SenderPanel, next.ID, d.Text, now)
		m.IsPanelInteraction = true
		if d.Kind == interaction.KindPanelist {
			m.ReactionTarget = d.Target
		}
		reaction = &m
	}

	quality := personality.QualityFromScore(feedback.Score)
	turn, qOutcome := e.gen.NextTurn(ctx, generator.TurnRequest{
		Session:    out,
		Speaker:    next,
		LastAnswer: text,
		Analysis:   analysis,
		Quality:    quality,
		Challenge:  personality.ShouldChallenge(next.Personality, quality, rng),
		RNG:        rng,
	})

	response := e.newMessage(model.SenderPanel, next.ID, turn.Text, now)
	response.IsQuestion = turn.IsQuestion
	response.Tone = turn.Tone

	appended := []model.Message{candidate}
	pacing := Pacing{ThinkingDelay: between(rng, e.cfg.ThinkingDelayMin, e.cfg.ThinkingDelayMax)}
	if reaction != nil {
		out.Messages = append(out.Messages, *reaction)
		appended = append(appended, *reaction)
		pacing.ReactionDelay = between(rng, e.cfg.ReactionDelayMin, e.cfg.ReactionDelayMax)
	}
	out.Messages = append(out.Messages, response)
	appended = append(appended, response)
	if turn.IsQuestion {
		out.QuestionsAsked = append(out.QuestionsAsked, turn.Questions...)
	}
	out.QuestionCount++
	out.CurrentPanelIndex = nextIndex

	return &TurnResult{
		Session:         out,
		Messages:        appended,
		Response:        response,
		Reaction:        reaction,
		Feedback:        &feedback,
		Analysis:        analysis,
		Pacing:          pacing,
		QuestionOutcome: qOutcome,
		FeedbackOutcome: fbOutcome,
	}, nil
}

// EndSession 提前结束：任何未完成的会话直接进入 completed，已追加的消息保留。
// 对已完成的会话是空操作。
func (e *Engine) EndSession(s *model.Session) *model.Session {
	out := s.Clone()
	if out.Status == model.StatusCompleted {
		return out
	}
	e.complete(out, e.now())
	log.Printf("[Engine] session %s ended early after %d questions", out.ID, out.QuestionCount)
	return out
}

func (e *Engine) complete(s *model.Session, now time.Time) {
	s.Status = model.StatusCompleted
	end := now
	s.EndTime = &end
	interaction.ClearReactions(s)
}

func between(rng *mathrand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)+1))
}
