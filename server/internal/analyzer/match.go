package analyzer

import "regexp"

func countAll(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, p := range patterns {
		n += len(p.FindAllStringIndex(s, -1))
	}
	return n
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// matchedPhrases 返回全部命中（保留重复），敬语次数依赖重复计数。
func matchedPhrases(patterns []*regexp.Regexp, s string) []string {
	var out []string
	for _, p := range patterns {
		out = append(out, p.FindAllString(s, -1)...)
	}
	return out
}

func uniqueMatches(p *regexp.Regexp, s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range p.FindAllString(s, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
