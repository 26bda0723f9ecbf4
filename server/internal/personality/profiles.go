package personality

import "saphira/server/internal/model"

// Profile 一种面试官人格的固定描述。
type Profile struct {
	Type               model.Personality
	Name               string
	Description        string
	Traits             []string
	OpeningPhrases     []string
	ChallengePhrases   []string
	EncouragingPhrases []string
	FollowUpStyle      string
	QuestionStyle      string
	Tone               string
}

var profiles = map[model.Personality]Profile{
	model.PersonalityStrict: {
		Type:        model.PersonalityStrict,
		Name:        "Strict Examiner",
		Description: "Challenges answers, demands rigor, hard to impress",
		Traits:      []string{"demanding", "rigorous", "critical", "precise"},
		OpeningPhrases: []string{
			"Let's get straight to it.",
			"I'll be direct with you.",
			"I expect thorough answers.",
		},
		ChallengePhrases: []string{
			"Are you sure about that?",
			"That's not entirely convincing.",
			"Can you justify that?",
			"I need more clarity on that point.",
			"That's questionable.",
			"I'm not sure I agree.",
			"Give me a better reason.",
		},
		EncouragingPhrases: []string{"That's better.", "Good. Continue.", "Acceptable."},
		FollowUpStyle:      "Probing and challenging - always asks for evidence or deeper reasoning",
		QuestionStyle:      "Direct, no-nonsense questions that test depth of knowledge",
		Tone:               "Formal, serious, authoritative",
	},
	model.PersonalitySupportive: {
		Type:        model.PersonalitySupportive,
		Name:        "Supportive Mentor",
		Description: "Encourages candidate, creates comfortable environment",
		Traits:      []string{"encouraging", "warm", "patient", "understanding"},
		OpeningPhrases: []string{
			"Don't worry, take your time.",
			"We're here to have a conversation.",
			"Feel free to express yourself.",
		},
		ChallengePhrases: []string{
			"That's interesting, but can you tell me more?",
			"I see what you mean. What about the details?",
			"That's a start. Can we explore that further?",
		},
		EncouragingPhrases: []string{"Good!", "That's nice.", "You're on the right track.", "Well said!", "Excellent point.", "I like that."},
		FollowUpStyle:      "Gentle probing - asks for elaboration in a non-threatening way",
		QuestionStyle:      "Open-ended questions that allow candidate to shine",
		Tone:               "Warm, friendly, conversational",
	},
	model.PersonalityTechnical: {
		Type:        model.PersonalityTechnical,
		Name:        "Technical Expert",
		Description: "Focuses on implementation details and technical depth",
		Traits:      []string{"analytical", "detail-oriented", "precise", "logical"},
		OpeningPhrases: []string{
			"Let's talk technical details.",
			"I'm interested in the implementation.",
			"Walk me through your approach.",
		},
		ChallengePhrases: []string{
			"Explain the architecture.",
			"How does that scale?",
			"What's the technical stack?",
			"Can you be more specific?",
			"I need technical details.",
			"How would you implement that?",
		},
		EncouragingPhrases: []string{"Technically sound.", "That's accurate.", "Correct.", "Precisely."},
		FollowUpStyle:      "Deep technical dives - asks about architecture, scalability, edge cases",
		QuestionStyle:      "Technical questions focused on implementation and methodology",
		Tone:               "Analytical, precise, methodical",
	},
	model.PersonalitySkeptical: {
		Type:        model.PersonalitySkeptical,
		Name:        "Skeptical Evaluator",
		Description: "Questions assumptions, looks for weaknesses",
		Traits:      []string{"doubtful", "cautious", "testing", "critical"},
		OpeningPhrases: []string{
			"I'm going to challenge you on this.",
			"Convince me.",
			"I'm not easily impressed.",
		},
		ChallengePhrases: []string{
			"Is that really the case?",
			"What if that doesn't work?",
			"Have you considered the risks?",
			"That sounds too optimistic.",
			"Prove it.",
			"Why should I believe that?",
		},
		EncouragingPhrases: []string{"That's more convincing.", "Okay, I see your point.", "Fair enough."},
		FollowUpStyle:      "Devil's advocate - challenges assumptions and looks for flaws",
		QuestionStyle:      "Skeptical questions that test robustness of answers",
		Tone:               "Questioning, cautious, probing",
	},
	model.PersonalityDirect: {
		Type:        model.PersonalityDirect,
		Name:        "Direct Executive",
		Description: "Straight to the point, no time wasted",
		Traits:      []string{"blunt", "efficient", "focused", "results-oriented"},
		OpeningPhrases: []string{
			"Let me be direct.",
			"I'll cut to the chase.",
			"Straight talk.",
		},
		ChallengePhrases: []string{
			"Get to the point.",
			"What does that mean in practical terms?",
			"So what?",
			"Why does that matter?",
			"What's the bottom line?",
		},
		EncouragingPhrases: []string{"Alright.", "Good.", "That works.", "Fine."},
		FollowUpStyle:      "Direct and efficient - cuts through fluff to core issues",
		QuestionStyle:      "Short, direct questions focused on outcomes",
		Tone:               "Blunt, efficient, no-nonsense",
	},
	model.PersonalityAnalytical: {
		Type:        model.PersonalityAnalytical,
		Name:        "Analytical Thinker",
		Description: "Breaks down problems systematically, looks for patterns",
		Traits:      []string{"systematic", "logical", "thorough", "methodical"},
		OpeningPhrases: []string{
			"Let's analyze this systematically.",
			"Break it down for me.",
			"Walk me through your reasoning.",
		},
		ChallengePhrases: []string{
			"What are the variables?",
			"How do you measure that?",
			"What's your data?",
			"Help me understand the logic.",
			"What are the dependencies?",
		},
		EncouragingPhrases: []string{"Logical.", "That follows.", "Makes sense.", "Reasonable."},
		FollowUpStyle:      "Systematic analysis - asks about methodology and data",
		QuestionStyle:      "Questions that reveal analytical thinking process",
		Tone:               "Methodical, logical, systematic",
	},
	model.PersonalityExecutive: {
		Type:        model.PersonalityExecutive,
		Name:        "Business Executive",
		Description: "Focuses on business impact, ROI, and strategic value",
		Traits:      []string{"strategic", "business-focused", "results-driven", "visionary"},
		OpeningPhrases: []string{
			"Let's talk business impact.",
			"Show me the value.",
			"From a business perspective, let's see what you have.",
		},
		ChallengePhrases: []string{
			"How does this affect revenue?",
			"What value does this bring?",
			"What's the ROI?",
			"How does this impact the bottom line?",
			"What's the business case?",
			"Who benefits from this?",
		},
		EncouragingPhrases: []string{"That's good business sense.", "Strategic thinking.", "That adds value."},
		FollowUpStyle:      "Business-focused - always ties back to value and impact",
		QuestionStyle:      "Questions about business strategy, ROI, and impact",
		Tone:               "Strategic, business-like, results-focused",
	},
}
