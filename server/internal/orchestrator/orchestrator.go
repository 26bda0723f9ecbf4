package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"saphira/server/internal/engine"
	"saphira/server/internal/model"
	"saphira/server/internal/session"
	"saphira/server/internal/timeline"
)

// ErrSessionExists 导入的会话 ID 已在内存中。
var ErrSessionExists = errors.New("session already exists")

// Warning 不影响结果的降级提示，例如持久化失败。
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnPersistenceFailed = "persistence_failed"
	WarnTimelineFailed    = "timeline_failed"
)

// Result 会话级操作的结果。Messages 是本次新增的消息。
type Result struct {
	Session  *model.Session  `json:"session"`
	Messages []model.Message `json:"messages,omitempty"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// TurnResult 一轮回答的结果。
type TurnResult struct {
	*engine.TurnResult
	Warnings []Warning
}

// Orchestrator 负责会话的生命周期编排。
//
// 职责与契约：
// - 内存 store 是权威状态；persister 只做尽力持久化，失败降级为 Warning。
// - 同一会话的修改都经过它自己的 Queue 串行执行。
// - 每个状态变化都写一条 timeline 事件，便于回放与审计。
type Orchestrator struct {
	engine    *engine.Engine
	store     *session.InMemoryStore
	persister session.Store
	timeline  timeline.Store
	now       func() time.Time
	logger    *log.Logger

	mu     sync.Mutex
	queues map[string]*Queue
	closed bool
}

// New persister 可以为 nil。
func New(eng *engine.Engine, store *session.InMemoryStore, persister session.Store, tl timeline.Store, now func() time.Time, logger *log.Logger) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		engine:    eng,
		store:     store,
		persister: persister,
		timeline:  tl,
		now:       now,
		logger:    logger,
		queues:    make(map[string]*Queue),
	}
}

func (o *Orchestrator) Engine() *engine.Engine {
	return o.engine
}

func (o *Orchestrator) queue(id string) (*Queue, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrQueueClosed
	}
	q, ok := o.queues[id]
	if !ok {
		q = NewQueue(id, o.logger)
		o.queues[id] = q
	}
	return q, nil
}

// release 回收队列。不能在队列的 Job 内调用。
func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	q, ok := o.queues[id]
	delete(o.queues, id)
	o.mu.Unlock()
	if ok {
		q.Close()
	}
}

// serial 在会话队列上执行 fn。会话不存在或已完成时顺带回收队列。
func (o *Orchestrator) serial(ctx context.Context, id, name string, fn Job) error {
	q, err := o.queue(id)
	if err != nil {
		return err
	}
	err = q.Do(ctx, name, fn)
	if s, gerr := o.store.Get(context.Background(), id); gerr != nil || s.Status == model.StatusCompleted {
		o.release(id)
	}
	return err
}

// Create 建会话（configuring 状态）。
func (o *Orchestrator) Create(ctx context.Context, useCase model.UseCase, opts engine.Options) (*Result, error) {
	s, err := o.engine.CreateSession(useCase, opts)
	if err != nil {
		return nil, err
	}
	if err := o.store.Save(ctx, s); err != nil {
		return nil, err
	}
	res := &Result{Session: s}
	res.Warnings = o.record(ctx, s.ID, res.Warnings, model.Event{
		Type: model.EventSessionCreated,
		Text: string(s.UseCase),
	})
	res.Warnings = o.persist(ctx, s, res.Warnings)
	return res, nil
}

// Start 生成开场。
func (o *Orchestrator) Start(ctx context.Context, id string) (*Result, error) {
	var res *Result
	err := o.serial(ctx, id, "start", func(ctx context.Context) error {
		s, err := o.load(ctx, id)
		if err != nil {
			return err
		}
		started, msgs, err := o.engine.StartSession(s)
		if err != nil {
			return err
		}
		if err := o.store.Save(ctx, started); err != nil {
			return err
		}
		res = &Result{Session: started, Messages: msgs}
		res.Warnings = o.record(ctx, id, res.Warnings, model.Event{Type: model.EventSessionStarted})
		res.Warnings = o.recordMessages(ctx, id, res.Warnings, msgs, nil)
		res.Warnings = o.persist(ctx, started, res.Warnings)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Respond 处理候选人回答。
func (o *Orchestrator) Respond(ctx context.Context, id, text string) (*TurnResult, error) {
	var res *TurnResult
	err := o.serial(ctx, id, "respond", func(ctx context.Context) error {
		s, err := o.load(ctx, id)
		if err != nil {
			return err
		}
		turn, err := o.engine.ProcessResponse(ctx, s, text)
		if err != nil {
			return err
		}
		if err := o.store.Save(ctx, turn.Session); err != nil {
			return err
		}
		res = &TurnResult{TurnResult: turn}
		res.Warnings = o.recordMessages(ctx, id, res.Warnings, turn.Messages, turn.Feedback)
		if turn.IsComplete {
			res.Warnings = o.record(ctx, id, res.Warnings, model.Event{Type: model.EventSessionCompleted, Source: "max_questions"})
		}
		res.Warnings = o.persist(ctx, turn.Session, res.Warnings)
		if !turn.QuestionOutcome.FromLLM() && turn.QuestionOutcome.Err != nil {
			o.logger.Printf("[Orchestrator] ⚠️  session %s used template question (%s)", id, turn.QuestionOutcome.Failure)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// End 提前结束。对已完成的会话是空操作，不重复写 timeline。
func (o *Orchestrator) End(ctx context.Context, id string) (*Result, error) {
	var res *Result
	err := o.serial(ctx, id, "end", func(ctx context.Context) error {
		s, err := o.load(ctx, id)
		if err != nil {
			return err
		}
		wasCompleted := s.Status == model.StatusCompleted
		ended := o.engine.EndSession(s)
		res = &Result{Session: ended}
		if wasCompleted {
			return nil
		}
		if err := o.store.Save(ctx, ended); err != nil {
			return err
		}
		res.Warnings = o.record(ctx, id, res.Warnings, model.Event{Type: model.EventSessionCompleted, Source: "ended"})
		res.Warnings = o.persist(ctx, ended, res.Warnings)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Get 读会话。内存没有时尝试从 persister 恢复（例如服务重启后）。
func (o *Orchestrator) Get(ctx context.Context, id string) (*model.Session, error) {
	return o.load(ctx, id)
}

func (o *Orchestrator) load(ctx context.Context, id string) (*model.Session, error) {
	s, err := o.store.Get(ctx, id)
	if err == nil || !errors.Is(err, session.ErrNotFound) || o.persister == nil {
		return s, err
	}
	s, perr := o.persister.Get(ctx, id)
	if perr != nil {
		if !errors.Is(perr, session.ErrNotFound) {
			o.logger.Printf("[Orchestrator] ⚠️  restore session %s failed: %v", id, perr)
		}
		return nil, session.ErrNotFound
	}
	if err := o.store.Save(ctx, s); err != nil {
		return nil, err
	}
	o.logger.Printf("[Orchestrator] restored session %s from persistent store", id)
	return s, nil
}

// Summary 会话总结，纯读取。
func (o *Orchestrator) Summary(ctx context.Context, id string) (model.SessionSummary, error) {
	s, err := o.load(ctx, id)
	if err != nil {
		return model.SessionSummary{}, err
	}
	return o.engine.GenerateSessionSummary(s), nil
}

func (o *Orchestrator) Export(ctx context.Context, id string) ([]byte, error) {
	s, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.engine.Export(s)
}

// Import 校验并载入导出的会话，之后可以继续作答。
func (o *Orchestrator) Import(ctx context.Context, data []byte) (*Result, error) {
	s, err := o.engine.Import(data)
	if err != nil {
		return nil, err
	}
	if _, err := o.store.Get(ctx, s.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, s.ID)
	}
	if err := o.store.Save(ctx, s); err != nil {
		return nil, err
	}
	res := &Result{Session: s}
	res.Warnings = o.persist(ctx, s, res.Warnings)
	return res, nil
}

// Timeline 返回 seq > after 的事件。
func (o *Orchestrator) Timeline(ctx context.Context, id string, after int64) ([]model.Event, error) {
	if _, err := o.load(ctx, id); err != nil {
		return nil, err
	}
	return o.timeline.List(ctx, id, after)
}

// Stats 运行概况：内存中的会话数（按状态）与活跃队列的统计。
type Stats struct {
	Sessions int                  `json:"sessions"`
	ByStatus map[model.Status]int `json:"by_status"`
	Queues   []QueueStats         `json:"queues"`
}

func (o *Orchestrator) Stats(ctx context.Context) Stats {
	st := Stats{ByStatus: make(map[model.Status]int), Queues: []QueueStats{}}
	for _, id := range o.store.List(ctx) {
		s, err := o.store.Get(ctx, id)
		if err != nil {
			continue
		}
		st.Sessions++
		st.ByStatus[s.Status]++
	}

	o.mu.Lock()
	queues := make([]*Queue, 0, len(o.queues))
	for _, q := range o.queues {
		queues = append(queues, q)
	}
	o.mu.Unlock()

	for _, q := range queues {
		st.Queues = append(st.Queues, q.Stats())
	}
	sort.Slice(st.Queues, func(i, j int) bool { return st.Queues[i].SessionID < st.Queues[j].SessionID })
	return st
}

// Close 停掉所有会话队列。
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	queues := o.queues
	o.queues = make(map[string]*Queue)
	o.mu.Unlock()

	for _, q := range queues {
		q.Close()
	}
}

func (o *Orchestrator) persist(ctx context.Context, s *model.Session, warnings []Warning) []Warning {
	if o.persister == nil {
		return warnings
	}
	if err := o.persister.Save(ctx, s); err != nil {
		o.logger.Printf("[Orchestrator] ⚠️  persist session %s failed: %v", s.ID, err)
		return append(warnings, Warning{Code: WarnPersistenceFailed, Message: err.Error()})
	}
	return warnings
}

func (o *Orchestrator) record(ctx context.Context, id string, warnings []Warning, evt model.Event) []Warning {
	if evt.ServerTS.IsZero() {
		evt.ServerTS = o.now()
	}
	if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
		o.logger.Printf("[Orchestrator] ⚠️  timeline append %s for %s failed: %v", evt.Type, id, err)
		return append(warnings, Warning{Code: WarnTimelineFailed, Message: err.Error()})
	}
	return warnings
}

// recordMessages 消息 ID 作为 EventID，重试时不会重复写入。
func (o *Orchestrator) recordMessages(ctx context.Context, id string, warnings []Warning, msgs []model.Message, fb *model.QuestionFeedback) []Warning {
	for _, m := range msgs {
		evt := model.Event{
			EventID:       m.ID,
			Type:          model.EventPanelMessage,
			PanelMemberID: m.PanelMemberID,
			Text:          m.Text,
			ServerTS:      m.Timestamp,
		}
		if m.Sender == model.SenderCandidate {
			evt.Type = model.EventCandidateResponse
			if fb != nil {
				evt.Score = fb.Score
			}
		}
		warnings = o.record(ctx, id, warnings, evt)
	}
	return warnings
}
