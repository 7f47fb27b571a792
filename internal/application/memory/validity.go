package memory

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// permanentPatterns short-circuit temporal inference straight to "no
// expiry": these phrasings describe recurring or evergreen facts even
// though they mention a date-like word.
var permanentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbirthday\b`),
	regexp.MustCompile(`(?i)\banniversary\b`),
	regexp.MustCompile(`(?i)\bborn\b`),
	regexp.MustCompile(`(?i)\balways\b`),
	regexp.MustCompile(`(?i)\bevery\b`),
	regexp.MustCompile(`(?i)\bannual(ly)?\b`),
	regexp.MustCompile(`(?i)\bfavorite\s+\w+\s+is\b`),
}

// fixedDurationRule maps a phrase to a fixed number of days of validity from
// now. Grounded on _infer_validity_period's fixed-duration temporal table.
type fixedDurationRule struct {
	pattern *regexp.Regexp
	days    int
}

var fixedDurationRules = []fixedDurationRule{
	{regexp.MustCompile(`(?i)\btomorrow\b`), 2},
	{regexp.MustCompile(`(?i)\btonight\b`), 1},
	{regexp.MustCompile(`(?i)\bthis weekend\b`), 4},
	{regexp.MustCompile(`(?i)\bnext week\b`), 9},
	{regexp.MustCompile(`(?i)\bthis week\b`), 7},
	{regexp.MustCompile(`(?i)\b(party|event)\b`), 3},
}

var inNUnitsPattern = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+(day|week|month)s?\b`)
var untilWeekdayPattern = regexp.MustCompile(`(?i)\buntil\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

var weekdayIndex = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ambiguousTemporalTriggers gate the LLM fallback: phrasing vague enough
// that none of the fixed patterns fire, but that still implies a future
// expiry, is worth a classification call rather than defaulting to
// permanent.
var ambiguousTemporalTriggers = []string{
	"soon", "later", "upcoming", "planned", "planning", "going to", "will be", "about to",
}

// inferValidityPeriodLocal applies the fixed pattern tables without calling
// an LLM. matched is false when nothing fired, signalling the caller should
// consider a temporal LLM fallback (see needsTemporalLLMFallback).
func inferValidityPeriodLocal(factText string, now time.Time) (end *time.Time, matched bool) {
	for _, p := range permanentPatterns {
		if p.MatchString(factText) {
			return nil, true
		}
	}

	for _, r := range fixedDurationRules {
		if r.pattern.MatchString(factText) {
			t := now.AddDate(0, 0, r.days)
			return &t, true
		}
	}

	if m := inNUnitsPattern.FindStringSubmatch(factText); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			var t time.Time
			switch m[2] {
			case "day":
				t = now.AddDate(0, 0, n+1)
			case "week":
				t = now.AddDate(0, 0, n*7+1)
			case "month":
				t = now.AddDate(0, n, 1)
			}
			if !t.IsZero() {
				return &t, true
			}
		}
	}

	if m := untilWeekdayPattern.FindStringSubmatch(factText); m != nil {
		target, ok := weekdayIndex[strings.ToLower(m[1])]
		if ok {
			days := (int(target) - int(now.Weekday()) + 7) % 7
			if days == 0 {
				days = 7
			}
			t := now.AddDate(0, 0, days)
			return &t, true
		}
	}

	return nil, false
}

// needsTemporalLLMFallback reports whether factText should go through the
// LLM temporal classifier because it carries an ambiguous future-tense
// trigger word, or because it landed in the Events bank where precision
// about expiry matters most.
func needsTemporalLLMFallback(factText string, isEventsBank bool) bool {
	if isEventsBank {
		return true
	}
	lower := strings.ToLower(factText)
	for _, trigger := range ambiguousTemporalTriggers {
		if containsWord(lower, trigger) {
			return true
		}
	}
	return false
}

func containsWord(haystack, needle string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(needle) + `\b`)
	return re.MatchString(haystack)
}
