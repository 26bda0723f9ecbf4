// Package personality 是面试官人格的静态查表：语气、开场白、追问与鼓励用语，
// 以及"是否追问这条回答"的策略。
package personality

import (
	"fmt"
	"log"
	"math/rand"
	"strings"

	"saphira/server/internal/model"
)

// DefaultPersonality 未知人格时使用的画像。
const DefaultPersonality = model.PersonalityDirect

// Quality 回答质量的粗分档。
type Quality string

const (
	QualityWeak   Quality = "weak"
	QualityMedium Quality = "medium"
	QualityStrong Quality = "strong"
)

const (
	mediumChallengeChance = 0.7
	strongChallengeChance = 0.3
)

// Get 查表。未知人格返回 direct 画像和 false，调用方决定如何上报。
func Get(tag model.Personality) (Profile, bool) {
	p, ok := profiles[tag]
	if !ok {
		return clone(profiles[DefaultPersonality]), false
	}
	return clone(p), true
}

// Lookup 同 Get，但在回退时打日志，避免配置错误被悄悄吞掉。
func Lookup(tag model.Personality) Profile {
	p, ok := Get(tag)
	if !ok {
		log.Printf("[Personality] ⚠️  unknown personality %q, falling back to %s", tag, DefaultPersonality)
	}
	return p
}

// Known 报告人格标签是否在枚举内。
func Known(tag model.Personality) bool {
	_, ok := profiles[tag]
	return ok
}

func clone(p Profile) Profile {
	p.Traits = append([]string(nil), p.Traits...)
	p.OpeningPhrases = append([]string(nil), p.OpeningPhrases...)
	p.ChallengePhrases = append([]string(nil), p.ChallengePhrases...)
	p.EncouragingPhrases = append([]string(nil), p.EncouragingPhrases...)
	return p
}

// IsChallenging strict/skeptical/technical 会对中等及以上回答继续施压。
func IsChallenging(tag model.Personality) bool {
	switch tag {
	case model.PersonalityStrict, model.PersonalitySkeptical, model.PersonalityTechnical:
		return true
	}
	return false
}

// QualityFromScore 把 1-10 的评分映射到质量档。
func QualityFromScore(score int) Quality {
	switch {
	case score < 5:
		return QualityWeak
	case score < 7:
		return QualityMedium
	default:
		return QualityStrong
	}
}

// ShouldChallenge 弱回答总是追问；中/强回答只有施压型人格按概率追问。
func ShouldChallenge(tag model.Personality, q Quality, rng *rand.Rand) bool {
	if q == QualityWeak {
		return true
	}
	if !IsChallenging(tag) {
		return false
	}
	switch q {
	case QualityMedium:
		return rng.Float64() < mediumChallengeChance
	case QualityStrong:
		return rng.Float64() < strongChallengeChance
	}
	return false
}

// PromptOptions 构建人格 prompt 所需的会话上下文。
type PromptOptions struct {
	UseCase   model.UseCaseConfig
	Company   string
	Topic     string
	Country   string
	ToneGuide string
	Filler    string
}

// BuildPrompt 组装某位面试官的 system prompt。
func BuildPrompt(member model.PanelMember, opts PromptOptions) string {
	p := Lookup(member.Personality)
	var sb strings.Builder

	sb.WriteString("[Role Definition]\n")
	fmt.Fprintf(&sb, "You are %s, %s", member.Name, member.Role)
	if opts.Company != "" {
		fmt.Fprintf(&sb, " at %s", opts.Company)
	}
	sb.WriteString(".\n")
	if opts.UseCase.DisplayName != "" {
		fmt.Fprintf(&sb, "Setting: %s. %s\n", opts.UseCase.DisplayName, opts.UseCase.Description)
	}
	if opts.Topic != "" {
		fmt.Fprintf(&sb, "Role or topic under discussion: %s\n", opts.Topic)
	}
	if member.Focus != "" {
		fmt.Fprintf(&sb, "Your focus area: %s\n", strings.ReplaceAll(member.Focus, "_", " "))
	}
	sb.WriteString("\n")

	sb.WriteString("[Personality]\n")
	fmt.Fprintf(&sb, "PERSONALITY: %s\n%s\n", p.Name, p.Description)
	fmt.Fprintf(&sb, "TRAITS: %s\n", strings.Join(p.Traits, ", "))
	fmt.Fprintf(&sb, "TONE: %s\n", p.Tone)
	fmt.Fprintf(&sb, "QUESTION STYLE: %s\n", p.QuestionStyle)
	fmt.Fprintf(&sb, "FOLLOW-UP STYLE: %s\n\n", p.FollowUpStyle)

	sb.WriteString("[Behavior Rules]\n")
	fmt.Fprintf(&sb, "- Stay consistent with your %s personality throughout\n", p.Type)
	fmt.Fprintf(&sb, "- Use phrases like: %s\n", strings.Join(firstN(p.ChallengePhrases, 3), ", "))
	if opts.Filler != "" {
		fmt.Fprintf(&sb, "- Occasionally use fillers like: %q\n", opts.Filler)
	}
	sb.WriteString("- Never break character\n")
	if opts.Country != "" {
		fmt.Fprintf(&sb, "- Be authentic to %s corporate culture\n", strings.ReplaceAll(opts.Country, "_", " "))
	}
	if opts.UseCase.Formality != "" {
		fmt.Fprintf(&sb, "- Formality: %s, directness: %s\n", opts.UseCase.Formality, opts.UseCase.Directness)
	}
	sb.WriteString("- Be concise - 1-2 sentences max\n")

	if opts.ToneGuide != "" {
		sb.WriteString("\n[Cultural Tone Guide]\n")
		sb.WriteString(strings.TrimSpace(opts.ToneGuide))
		sb.WriteString("\n")
	}
	return sb.String()
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
