package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"saphira/server/internal/config"
	"saphira/server/internal/engine"
	"saphira/server/internal/model"
)

// Speaker 把一段文本用指定音色说出来，说完才返回。
type Speaker interface {
	Speak(ctx context.Context, text, voiceID string) error
}

// Transcriber 等待候选人的一段完整发言。
type Transcriber interface {
	Listen(ctx context.Context) (string, error)
}

// StepKind 播放步骤类型
type StepKind string

const (
	StepReaction    StepKind = "reaction"
	StepInteraction StepKind = "interaction"
	StepResponse    StepKind = "response"
)

// Step 一次播放：先等待 Delay，再由 PanelMemberID 对应的面试官说 Text。
type Step struct {
	Kind          StepKind      `json:"kind"`
	PanelMemberID string        `json:"panel_member_id"`
	VoiceID       string        `json:"voice_id,omitempty"`
	Text          string        `json:"text"`
	Delay         time.Duration `json:"delay"`
}

// PlanTurn 把一轮结果展开成有序的播放步骤：微反应 → 面试官互动 → 主回复。
// 反应类步骤用 ReactionDelay，主回复用 ThinkingDelay。
func PlanTurn(res *engine.TurnResult, panel []model.PanelMember) []Step {
	voices := make(map[string]string, len(panel))
	for _, m := range panel {
		voices[m.ID] = m.VoiceID
	}

	var reactions, interactions, responses []Step
	for _, m := range res.Messages {
		if m.Sender != model.SenderPanel {
			continue
		}
		st := Step{PanelMemberID: m.PanelMemberID, VoiceID: voices[m.PanelMemberID], Text: m.Text}
		switch {
		case m.IsReaction:
			st.Kind = StepReaction
			st.Delay = res.Pacing.ReactionDelay
			reactions = append(reactions, st)
		case m.IsPanelInteraction:
			st.Kind = StepInteraction
			st.Delay = res.Pacing.ReactionDelay
			interactions = append(interactions, st)
		default:
			st.Kind = StepResponse
			st.Delay = res.Pacing.ThinkingDelay
			responses = append(responses, st)
		}
	}

	steps := make([]Step, 0, len(reactions)+len(interactions)+len(responses))
	steps = append(steps, reactions...)
	steps = append(steps, interactions...)
	return append(steps, responses...)
}

// PlanMessages 开场等无节奏信息的消息，逐条排成步骤。
func PlanMessages(msgs []model.Message, panel []model.PanelMember) []Step {
	return PlanTurn(&engine.TurnResult{Messages: msgs}, panel)
}

// Play 依次执行步骤，返回完成的步骤数。ctx 取消时立即停止并返回 ctx.Err()；
// 单步 Speak 失败只记日志，继续后面的步骤。
func Play(ctx context.Context, speaker Speaker, steps []Step) (int, error) {
	return PlaySteps(ctx, steps, func(ctx context.Context, st Step) error {
		return speaker.Speak(ctx, st.Text, st.VoiceID)
	})
}

// PlaySteps 与 Play 相同，但每一步交给 fn 处理，调用方可以拿到完整的 Step。
func PlaySteps(ctx context.Context, steps []Step, fn func(ctx context.Context, st Step) error) (int, error) {
	done := 0
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if st.Delay > 0 {
			timer := time.NewTimer(st.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return done, ctx.Err()
			case <-timer.C:
			}
		}
		if err := fn(ctx, st); err != nil {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			log.Printf("[Voice] ⚠️  step %d (%s, %s) failed: %v", i, st.Kind, st.PanelMemberID, err)
		}
		done++
	}
	return done, nil
}

// NewSpeaker 按配置创建语音输出；provider 为 none 时返回 nil，调用方走纯文本。
func NewSpeaker(cfg config.VoiceConfig, sink AudioSink) (Speaker, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "elevenlabs":
		return NewElevenLabsSpeaker(cfg, sink), nil
	default:
		return nil, fmt.Errorf("unsupported voice provider: %s", cfg.Provider)
	}
}

// TextSpeaker 把台词写到终端，供练习模式或没有 TTS 时使用。
type TextSpeaker struct {
	W     io.Writer
	Names map[string]string // voice id -> 显示名
}

func (s *TextSpeaker) Speak(ctx context.Context, text, voiceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := s.Names[voiceID]
	if name == "" {
		name = "Panel"
	}
	_, err := fmt.Fprintf(s.W, "%s: %s\n", name, text)
	return err
}

// ErrNoInput 输入已结束。
var ErrNoInput = errors.New("voice: no more input")

// LineTranscriber 每行文本当作一次发言，空行跳过。
type LineTranscriber struct {
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

func NewLineTranscriber(r io.Reader) *LineTranscriber {
	t := &LineTranscriber{lines: make(chan lineResult)}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			t.lines <- lineResult{text: line}
		}
		err := sc.Err()
		if err == nil {
			err = ErrNoInput
		}
		t.lines <- lineResult{err: err}
		close(t.lines)
	}()
	return t
}

func (t *LineTranscriber) Listen(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-t.lines:
		if !ok {
			return "", ErrNoInput
		}
		return res.text, res.err
	}
}
