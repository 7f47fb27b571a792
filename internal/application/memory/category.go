package memory

import (
	"regexp"
	"strings"
)

// categoryRule pairs a pattern with a category label; label may be a
// template but here labels are fixed strings since Go's regexp package
// doesn't give us Python's {n}-numbered capture substitution cheaply
// outside of explicit named groups. Order matters: first match wins.
type categoryRule struct {
	pattern  *regexp.Regexp
	category string
}

var categoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)\bfavorite\b`), "favorite"},
	{regexp.MustCompile(`(?i)\b(lives? in|located in|hometown|address)\b`), "location"},
	{regexp.MustCompile(`(?i)\b(prefers?|likes?|enjoys?)\b`), "preference"},
	{regexp.MustCompile(`(?i)\b(dislikes?|hates?|can't stand)\b`), "dislike"},
	{regexp.MustCompile(`(?i)\b(goal|plans? to|wants? to|hope to)\b`), "goal"},
	{regexp.MustCompile(`(?i)\b(works? (at|as|for)|job|career|occupation)\b`), "work"},
	{regexp.MustCompile(`(?i)\b(spouse|husband|wife|partner|child|son|daughter|parent|sibling|brother|sister|family)\b`), "family"},
	{regexp.MustCompile(`(?i)\b(is|am) \d+ years? old\b`), "personal_attribute"},
	{regexp.MustCompile(`(?i)\b(studies?|studied|degree|university|college|school)\b`), "education"},
	{regexp.MustCompile(`(?i)\b(hobby|hobbies|enjoys? .*ing)\b`), "hobby"},
	{regexp.MustCompile(`(?i)\b(allerg(y|ic)|medication|condition|diagnos)\b`), "health"},
	{regexp.MustCompile(`(?i)\b(believes?|religion|faith)\b`), "belief"},
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "to": true, "of": true, "and": true, "user": true,
	"user's": true, "in": true, "on": true, "at": true, "it": true,
}

// inferFactCategory labels factText with a coarse category, falling back to
// the first three non-stopword tokens joined with underscores, or "fact" if
// no tokens survive.
func inferFactCategory(factText string) string {
	lower := strings.ToLower(factText)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(lower) {
			return rule.category
		}
	}

	var kept []string
	for _, tok := range strings.Fields(lower) {
		tok = strings.Trim(tok, ".,!?;:")
		if tok == "" || stopWords[tok] {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return "fact"
	}
	return strings.Join(kept, "_")
}
