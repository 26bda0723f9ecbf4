// Package interaction 决定下一轮提问前是否插入一句反应：
// 面试官对候选人的微反应，或者对上一位面试官的接话。
package interaction

import (
	"math/rand"
	"strings"

	"saphira/server/internal/config"
	"saphira/server/internal/model"
)

// Kind 反应类型。
type Kind string

const (
	KindNone      Kind = "none"
	KindCandidate Kind = "candidate"
	KindPanelist  Kind = "panelist"
)

const strongAnswerChars = 100

// Policy 反应概率。没有实验依据，作为可配置默认值。
type Policy struct {
	NoReaction           float64
	CandidateReaction    float64
	PanelistReaction     float64
	HumanReactionChance  float64
	HumanReactionMinTurn int
}

// DefaultPolicy 60/25/15 与 70% 微反应，前两轮不插微反应。
func DefaultPolicy() Policy {
	return Policy{
		NoReaction:           0.60,
		CandidateReaction:    0.25,
		PanelistReaction:     0.15,
		HumanReactionChance:  0.70,
		HumanReactionMinTurn: 2,
	}
}

// PolicyFromConfig 从引擎配置读取概率；三种反应概率全为 0 视为未配置，使用 DefaultPolicy。
func PolicyFromConfig(cfg config.EngineConfig) Policy {
	if cfg.NoReactionChance == 0 && cfg.CandidateReactChance == 0 && cfg.PanelistReactChance == 0 {
		return DefaultPolicy()
	}
	return Policy{
		NoReaction:           cfg.NoReactionChance,
		CandidateReaction:    cfg.CandidateReactChance,
		PanelistReaction:     cfg.PanelistReactChance,
		HumanReactionChance:  cfg.HumanReactionChance,
		HumanReactionMinTurn: cfg.HumanReactionMinTurn,
	}
}

// Decision 选择结果。Kind 为 none 时 Text 为空。
type Decision struct {
	Kind   Kind
	Text   string
	Target string // 被接话的面试官 id，仅 KindPanelist
}

// Selector 无状态；"上一次微反应"存放在会话里，由调用方传入。
type Selector struct {
	policy Policy
}

func NewSelector(p Policy) *Selector {
	return &Selector{policy: p}
}

// IsStrongAnswer 粗分：长度超过 100 字符并带有因果/举例词。
func IsStrongAnswer(answer string) bool {
	if len(answer) <= strongAnswerChars {
		return false
	}
	lower := strings.ToLower(answer)
	return strings.Contains(lower, "because") || strings.Contains(lower, "example") || strings.Contains(lower, "experience")
}

// Decide 决定是否插入反应。prev 为上一题提问者，next 为下一位提问者。
func (s *Selector) Decide(rng *rand.Rand, answer string, prev, next model.PanelMember) Decision {
	roll := rng.Float64()
	if roll < s.policy.NoReaction {
		return Decision{Kind: KindNone}
	}
	if roll < s.policy.NoReaction+s.policy.CandidateReaction {
		return s.candidateReaction(rng, answer, next)
	}
	if prev.ID != "" && prev.ID != next.ID {
		tpl := panelistTemplates[rng.Intn(len(panelistTemplates))]
		return Decision{
			Kind:   KindPanelist,
			Text:   strings.ReplaceAll(tpl, "{name}", prev.Name),
			Target: prev.ID,
		}
	}
	return s.candidateReaction(rng, answer, next)
}

func (s *Selector) candidateReaction(rng *rand.Rand, answer string, next model.PanelMember) Decision {
	set := candidateReactionSet(next.Personality, IsStrongAnswer(answer))
	return Decision{Kind: KindCandidate, Text: set[rng.Intn(len(set))]}
}

// HumanReaction 微反应：前 HumanReactionMinTurn 轮不插入；按概率触发；同一面试官不连续重复。
// last 是会话的 LastReactions，命中时会被更新。
func (s *Selector) HumanReaction(rng *rand.Rand, last map[string]string, member model.PanelMember, turn int) (string, bool) {
	if turn < s.policy.HumanReactionMinTurn {
		return "", false
	}
	if rng.Float64() >= s.policy.HumanReactionChance {
		return "", false
	}
	set, ok := personalityMicroReactions[member.Personality]
	if !ok {
		set = defaultMicroReactions
	}
	prevReaction := last[member.ID]
	available := make([]string, 0, len(set))
	for _, r := range set {
		if r != prevReaction {
			available = append(available, r)
		}
	}
	if len(available) == 0 {
		return "", false
	}
	reaction := available[rng.Intn(len(available))]
	if last != nil {
		last[member.ID] = reaction
	}
	return reaction, true
}

// ClearReactions 会话结束时清空微反应记录。
func ClearReactions(sess *model.Session) {
	sess.LastReactions = nil
}
