package interaction

import "saphira/server/internal/model"

var (
	positiveReactions = []string{
		"That's a good point.",
		"I see.",
		"Interesting approach.",
		"That makes sense.",
		"Okay, I understand.",
		"Alright.",
		"Noted.",
	}
	neutralReactions   = []string{"Hmm.", "Okay.", "I hear you.", "Understood.", "Right."}
	skepticalReactions = []string{"Hmm. Are you sure?", "That's one perspective.", "I see. But...", "That's interesting."}
)

// 接上一位面试官的话头，{name} 替换为对方名字。
var panelistTemplates = []string{
	"I agree with {name}.",
	"That's a valid point, {name}, but I'd like to explore further.",
	"Yes, but from my perspective there is more to it.",
	"Building on what {name} said...",
	"I see it differently from {name}.",
	"That's true, however I want to look at another side.",
	"Good point, {name}. Let me add something.",
}

// 微反应（回答后的一句短语）。
var defaultMicroReactions = []string{
	"I see.", "Alright.", "Okay.", "Interesting.", "That's good.", "Hmm.",
	"Noted.", "Understood.", "Right.", "Okay, I hear you.", "I understand.", "Fair enough.",
}

var personalityMicroReactions = map[model.Personality][]string{
	model.PersonalityStrict:     {"Hmm.", "I see.", "Alright.", "Understood.", "Noted.", "Continue."},
	model.PersonalitySupportive: {"That's good.", "I see.", "Okay.", "Interesting.", "Alright.", "Good point.", "Nice."},
	model.PersonalitySkeptical:  {"Hmm.", "Interesting.", "I see.", "Alright.", "Is that so?"},
	model.PersonalityTechnical:  {"I see.", "Understood.", "Alright.", "Noted.", "Go on.", "Continue."},
	model.PersonalityDirect:     {"Alright.", "Okay.", "I see.", "Understood.", "Right."},
	model.PersonalityAnalytical: {"Interesting.", "I see.", "Understood.", "Alright.", "Noted."},
}

// candidateReactionSet 依据下一位面试官的人格与回答强弱挑选反应集合。
func candidateReactionSet(p model.Personality, strong bool) []string {
	switch p {
	case model.PersonalitySupportive:
		if strong {
			return join(positiveReactions, "Good!", "That's nice.", "You're on the right track.")
		}
		return positiveReactions
	case model.PersonalityStrict, model.PersonalitySkeptical:
		if strong {
			return neutralReactions
		}
		return join(skepticalReactions, "That's not entirely convincing.")
	case model.PersonalityTechnical:
		if strong {
			return join(positiveReactions, "Technically sound.")
		}
		return []string{"I need more detail.", "Can you elaborate?"}
	case model.PersonalityDirect, model.PersonalityExecutive:
		return []string{"Alright.", "Okay.", "I see.", "Understood."}
	default:
		return neutralReactions
	}
}

func join(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
