// Package generator 负责面试官的下一句话和单题评分。
//
// 主路径调用 LLM 并按 JSON 契约解析；任何失败都以 Outcome.Failure 标出类型，
// 再走确定性的模板兜底（题库轮转 + 规则评分），调用方永远拿到可用结果。
package generator

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"saphira/server/internal/domain"
	"saphira/server/internal/llm"
	"saphira/server/internal/model"
	"saphira/server/internal/personality"
)

// Source 结果来源。
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Failure 主路径失败的类型。
type Failure string

const (
	FailureNone        Failure = "none"
	FailureDisabled    Failure = "disabled"    // 没有配置 LLM
	FailureUnavailable Failure = "unavailable" // 网络错误、超时、取消
	FailureUpstream    Failure = "upstream"    // 非 200
	FailureEmpty       Failure = "empty"
	FailureMalformed   Failure = "malformed"
	FailureDuplicate   Failure = "duplicate" // 与已问过的问题重复
)

// Outcome 一次生成的来源与失败原因。Source 为 fallback 时 Failure 必不为 none。
type Outcome struct {
	Source  Source
	Failure Failure
	Err     error
}

// FromLLM 报告结果是否来自 LLM。
func (o Outcome) FromLLM() bool { return o.Source == SourceLLM }

func okOutcome() Outcome { return Outcome{Source: SourceLLM, Failure: FailureNone} }

func fallbackOutcome(f Failure, err error) Outcome {
	return Outcome{Source: SourceFallback, Failure: f, Err: err}
}

// classify 把客户端错误映射为失败类型。
func classify(err error) Failure {
	var statusErr *llm.StatusError
	switch {
	case errors.As(err, &statusErr):
		return FailureUpstream
	case errors.Is(err, llm.ErrEmptyResponse):
		return FailureEmpty
	case errors.Is(err, llm.ErrMalformedResponse):
		return FailureMalformed
	default:
		return FailureUnavailable
	}
}

// Options 生成器参数。
type Options struct {
	Timeout               time.Duration
	ConversationWindow    int
	PreviousQuestionLimit int
	Logger                *log.Logger
}

// Generator 无会话状态，可被多个会话并发使用。
type Generator struct {
	client    llm.Client
	catalog   *domain.Catalog
	timeout   time.Duration
	window    int
	prevLimit int
	logger    *log.Logger
}

// New 创建生成器。client 为 nil 时只走模板兜底。
func New(client llm.Client, catalog *domain.Catalog, opts Options) *Generator {
	if catalog == nil {
		catalog = domain.Default()
	}
	if opts.ConversationWindow <= 0 {
		opts.ConversationWindow = 3
	}
	if opts.PreviousQuestionLimit <= 0 {
		opts.PreviousQuestionLimit = 5
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Generator{
		client:    client,
		catalog:   catalog,
		timeout:   opts.Timeout,
		window:    opts.ConversationWindow,
		prevLimit: opts.PreviousQuestionLimit,
		logger:    opts.Logger,
	}
}

// TurnRequest 生成下一句所需的上下文。Session 只读。
type TurnRequest struct {
	Session    *model.Session
	Speaker    model.PanelMember
	LastAnswer string
	Analysis   model.ResponseAnalysis
	Quality    personality.Quality
	Challenge  bool
	RNG        *rand.Rand
}

// GeneratedTurn 面试官的下一句。Questions 是写入去重列表的问题本体（不含前缀）。
type GeneratedTurn struct {
	Text               string
	Questions          []string
	IsQuestion         bool
	Tone               string
	SuggestedFollowUp  string
	CulturalAdaptation string
}

// NextTurn 生成下一句；LLM 不可用、输出不合法或与已问问题重复时走兜底。
func (g *Generator) NextTurn(ctx context.Context, req TurnRequest) (GeneratedTurn, Outcome) {
	if req.RNG == nil {
		req.RNG = rand.New(rand.NewSource(int64(req.Session.QuestionCount)))
	}
	if g.client == nil {
		return g.fallbackTurn(req), fallbackOutcome(FailureDisabled, nil)
	}

	turn, failure, err := g.turnFromLLM(ctx, req)
	if failure == FailureNone {
		return turn, okOutcome()
	}
	g.logger.Printf("[Generator] ⚠️  question generation fell back to templates (%s): %v", failure, err)
	return g.fallbackTurn(req), fallbackOutcome(failure, err)
}

func (g *Generator) turnFromLLM(ctx context.Context, req TurnRequest) (GeneratedTurn, Failure, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	messages := []llm.Message{
		{Role: "system", Content: g.systemPrompt(req)},
		{Role: "user", Content: g.turnUserPrompt(req)},
	}
	raw, err := g.client.Complete(ctx, messages, turnSchema)
	if err != nil {
		return GeneratedTurn{}, classify(err), err
	}
	turn, err := parseTurn(raw)
	if err != nil {
		return GeneratedTurn{}, FailureMalformed, err
	}
	if sent, dup := repeatedSentence(req.Session.QuestionsAsked, turn.Text); dup {
		return GeneratedTurn{}, FailureDuplicate, errors.New("question already asked: " + sent)
	}
	return turn, FailureNone, nil
}

// FeedbackRequest 单题评分的输入。
type FeedbackRequest struct {
	UseCase  model.UseCaseConfig
	Question string
	Answer   string
	Topic    string
	Country  model.Country
	Analysis model.ResponseAnalysis
}

// Feedback 为刚回答的问题打分；任何失败都回退到规则评分。
func (g *Generator) Feedback(ctx context.Context, req FeedbackRequest) (model.QuestionFeedback, Outcome) {
	if g.client == nil {
		return FallbackFeedback(req.Answer, req.Analysis), fallbackOutcome(FailureDisabled, nil)
	}

	fb, failure, err := g.feedbackFromLLM(ctx, req)
	if failure == FailureNone {
		return fb, okOutcome()
	}
	g.logger.Printf("[Generator] ⚠️  feedback fell back to rule scoring (%s): %v", failure, err)
	return FallbackFeedback(req.Answer, req.Analysis), fallbackOutcome(failure, err)
}

func (g *Generator) feedbackFromLLM(ctx context.Context, req FeedbackRequest) (model.QuestionFeedback, Failure, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	messages := []llm.Message{
		{Role: "system", Content: feedbackSystemPrompt},
		{Role: "user", Content: g.feedbackUserPrompt(req)},
	}
	raw, err := g.client.Complete(ctx, messages, feedbackSchema)
	if err != nil {
		return model.QuestionFeedback{}, classify(err), err
	}
	fb, err := parseFeedback(raw)
	if err != nil {
		return model.QuestionFeedback{}, FailureMalformed, err
	}
	return fb, FailureNone, nil
}

func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

func (g *Generator) useCase(u model.UseCase) model.UseCaseConfig {
	cfg, ok := g.catalog.UseCase(u)
	if !ok {
		g.logger.Printf("[Generator] ⚠️  unknown use case %q, using job_interview", u)
		cfg, _ = g.catalog.UseCase(model.UseCaseJobInterview)
	}
	return cfg
}
