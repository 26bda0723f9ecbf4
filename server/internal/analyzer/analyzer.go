// Package analyzer 对候选人的自由文本回答做启发式分类：方言、敬语、回避、自信、紧张，
// 以及具体性、数字、直接程度、相关性等内容信号。
//
// 所有函数都是纯函数：同一输入永远得到同一输出，空输入不会 panic。
package analyzer

import (
	"strings"

	"saphira/server/internal/model"
)

const (
	excessiveContextWords = 100
	directAnswerWords     = 30
	nonAnswerMaxWords     = 10
)

// Analyze 分析一条回答。lastQuestion 为空时相关性视为成立。
func Analyze(text, lastQuestion string) model.ResponseAnalysis {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := wordPattern.FindAllString(lower, -1)
	wordCount := len(words)

	direct := countAll(directIndicatorPatterns, lower)
	hesitation := countAll(hesitationPatterns, lower)
	overconfident := countAll(overconfidencePatterns, lower)
	deference := matchedPhrases(deferencePatterns, lower)

	cultural := model.CulturalContext{
		DialectPhrases:      uniqueMatches(dialectPattern, lower),
		ReligiousReferences: matchedPhrases(religiousPatterns, lower),
		DeferenceMarkers:    deference,
		FamilyObligations:   matchesAny(familyPatterns, lower),
		MentionsGod:         godPattern.MatchString(lower),
		ConfidenceLevel:     confidence(direct, hesitation, overconfident),
		Nervousness:         hesitation >= 3 || (wordCount > 0 && float64(hesitation)/float64(wordCount) > 0.1),
		Overconfidence:      overconfident >= 2,
		Evasiveness:         evasiveness(lower, wordCount, direct),
		ExcessiveRespect:    len(deference) > 2,
	}
	cultural.UsesDialect = len(cultural.DialectPhrases) > 0

	hasNumbers := matchesAny(numberPatterns, lower)
	content := model.ContentSignals{
		HasSpecificExample: achievementPattern.MatchString(lower) && (hasNumbers || exampleNounPattern.MatchString(lower)),
		HasNumbers:         hasNumbers,
		WordCount:          wordCount,
		AnsweredDirectly:   wordCount > 0 && (direct > 0 || wordCount < directAnswerWords),
		TechnicalJargon:    matchesAny(jargonPatterns, lower),
		RelevantToQuestion: relevant(lower, lastQuestion),
	}

	tone := model.ToneSignals{
		Defensive:    countAll(defensivePatterns, lower) >= 1,
		Apologetic:   countAll(apologeticPatterns, lower) >= 1,
		Enthusiastic: countAll(enthusiasmPatterns, lower) >= 2,
	}

	return model.ResponseAnalysis{Cultural: cultural, Content: content, Tone: tone}
}

// IsNonAnswer 判断是否为"我不知道"一类的短回答。
func IsNonAnswer(text string) bool {
	lower := strings.ToLower(text)
	return len(wordPattern.FindAllString(lower, -1)) < nonAnswerMaxWords && nonAnswerPattern.MatchString(lower)
}

func confidence(direct, hesitation, overconfident int) model.ConfidenceLevel {
	switch {
	case direct >= 2 && hesitation <= 1 && overconfident <= 1:
		return model.ConfidenceHigh
	case hesitation >= 3 || overconfident >= 3:
		return model.ConfidenceLow
	default:
		return model.ConfidenceMedium
	}
}

// evasiveness 按优先级判断回避类型：冗长铺垫 > 绕圈叙事 > 空泛概括 > 短句拒答。
func evasiveness(lower string, wordCount, direct int) model.Evasiveness {
	switch {
	case wordCount > excessiveContextWords && direct == 0:
		return model.Evasiveness{IsEvasive: true, Type: model.EvasionExcessiveContext, Confidence: 0.8}
	case circularStoryPattern.MatchString(lower):
		return model.Evasiveness{IsEvasive: true, Type: model.EvasionCircularStory, Confidence: 0.75}
	case len(vaguePattern.FindAllString(lower, -1)) > 3:
		return model.Evasiveness{IsEvasive: true, Type: model.EvasionVagueGeneralities, Confidence: 0.7}
	case wordCount < nonAnswerMaxWords && nonAnswerPattern.MatchString(lower):
		return model.Evasiveness{IsEvasive: true, Type: model.EvasionVagueGeneralities, Confidence: 0.6}
	default:
		return model.Evasiveness{Type: model.EvasionNone}
	}
}

func relevant(lower, question string) bool {
	if strings.TrimSpace(question) == "" {
		return true
	}
	if lower == "" {
		return false
	}
	var keys []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(question), -1) {
		if len(w) > 3 && !questionStopwords[w] {
			keys = append(keys, w)
		}
	}
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
