package analyzer

import "regexp"

// 词表是刻意粗糙的启发式，不是语义理解。所有模式都在小写文本上匹配。

var dialectPattern = regexp.MustCompile(`\b(?:how far|no be|dey|wey|na|abi|sha|omo|wahala|abeg|shey|naim|kpele|wetin|oya)\b`)

var religiousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bby god'?s grace\b`),
	regexp.MustCompile(`\bby allah'?s will\b`),
	regexp.MustCompile(`\bin jesus'? name\b`),
	regexp.MustCompile(`\binsha'?allah\b`),
	regexp.MustCompile(`\bif god permits\b`),
	regexp.MustCompile(`\bgod willing\b`),
	regexp.MustCompile(`\bprayerfully\b`),
	regexp.MustCompile(`\bblessed\b`),
	regexp.MustCompile(`\bmiracle\b`),
	regexp.MustCompile(`\bthank god\b`),
	regexp.MustCompile(`\bpraise god\b`),
	regexp.MustCompile(`\ball glory to\b`),
	regexp.MustCompile(`\b(?:i|let us|we) pray\b`),
	regexp.MustCompile(`\bit is well\b`),
	regexp.MustCompile(`\bgod will provide\b`),
	regexp.MustCompile(`\bjehovah jireh\b`),
}

var godPattern = regexp.MustCompile(`\b(?:god|allah|jesus|lord)\b`)

var deferencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:sir|ma|madam)\b`),
	regexp.MustCompile(`\bwith (?:due )?respect\b`),
	regexp.MustCompile(`\bbegging\b`),
	regexp.MustCompile(`\bif i may\b`),
	regexp.MustCompile(`\byour (?:highness|excellency|honou?r|lordship)\b`),
	regexp.MustCompile(`\bas you (?:command|wish)\b`),
	regexp.MustCompile(`\bat your service\b`),
}

var familyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:my|our) (?:family|parents|mother|father|siblings|brothers|sisters|relatives)\b`),
	regexp.MustCompile(`\b(?:support|take care of|provide for|responsible for) (?:my|our) (?:family|parents|siblings)\b`),
	regexp.MustCompile(`\bextended family\b`),
	regexp.MustCompile(`\bfirst son\b|\bfirst daughter\b|\bbreadwinner\b`),
}

var hesitationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:u+h+|u+m+|e+r+|a+h+|e+r+m+)\b`),
	regexp.MustCompile(`\b(?:actually|basically|you know|like|sort of|kind of)\b`),
	regexp.MustCompile(`\.{3,}`),
	regexp.MustCompile(`\b(?:i think|i guess|maybe|perhaps|possibly)\b`),
}

var overconfidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:definitely|absolutely|certainly|obviously|clearly)\b`),
	regexp.MustCompile(`\b(?:the best|the greatest|number one|unbeatable|perfect)\b`),
	regexp.MustCompile(`\b(?:i know everything|i can do anything|no one can|nobody can)\b`),
	regexp.MustCompile(`\b(?:always|never) (?:fail|wrong|lose)\b`),
}

var defensivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:that'?s not (?:true|fair|correct)|you don'?t understand|it wasn'?t my fault)\b`),
	regexp.MustCompile(`\b(?:why are you asking|what do you mean|i already (?:said|told you))\b`),
}

var apologeticPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:sorry|apologi[sz]e|forgive me|pardon me|my apologies)\b`),
	regexp.MustCompile(`\bi'?m not sure if\b`),
}

var enthusiasmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:excited|thrilled|passionate|love|dream|opportunity)\b`),
	regexp.MustCompile(`!{2,}`),
	regexp.MustCompile(`\b(?:can'?t wait|looking forward|eager|enthusiastic)\b`),
}

var directIndicatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:yes|no|specifically|exactly|the answer is|to answer your question)\b`),
	regexp.MustCompile(`\b(?:my role was|i was responsible|i led|i managed)\b`),
	regexp.MustCompile(`\b(?:the result was|we achieved|the outcome was)\b`),
}

var circularStoryPattern = regexp.MustCompile(`\b(?:then|after that|so|and then|next|following that)\b.{50,}\b(?:then|after that|so|and then)\b`)

var vaguePattern = regexp.MustCompile(`\b(?:basically|you know|sort of|kind of|stuff like that|things like that|and so on)\b`)

var nonAnswerPattern = regexp.MustCompile(`\b(?:i don'?t know|i do not know|no idea|not sure|i can'?t say|i cannot say|i have no answer)\b`)

var jargonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:api|sdk|backend|frontend|database|microservices?|kubernetes|cloud|devops|ci/cd|algorithm)\b`),
	regexp.MustCompile(`\b(?:roi|kpi|ebitda|cagr|burn rate|runway|cac|ltv|revenue model)\b`),
	regexp.MustCompile(`\b(?:methodology|hypothesis|regression|literature review|sample size|qualitative|quantitative)\b`),
	regexp.MustCompile(`\b(?:synergy|leverage|stakeholders?|scalab(?:le|ility)|deliverables?)\b`),
}

var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s*(?:percent|%|million|billion|thousand|hundred|k\b)`),
	regexp.MustCompile(`\b\d{4}\b`),
	regexp.MustCompile(`\b(?:first|second|third|fourth)\b`),
	regexp.MustCompile(`\bin 20\d{2}\b|\bfor \d+ years?\b`),
	regexp.MustCompile(`[$₦£€]\s?\d`),
}

var achievementPattern = regexp.MustCompile(`\bi (?:led|managed|created|built|developed|implemented|designed|worked|solved|launched|increased|reduced|grew)\b`)

var exampleNounPattern = regexp.MustCompile(`\b(?:project|team|system|product|company)\b`)

var wordPattern = regexp.MustCompile(`[a-z0-9']+`)

// 相关性检查忽略的提问常用词。
var questionStopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "about": true,
	"tell": true, "your": true, "have": true, "this": true, "that": true,
}
