package memory

import "regexp"

// simplePreferencePatterns detects short first-person preference statements
// that can bypass the LLM extraction pipeline entirely. Grounded on
// _is_simple_preference's regex list.
var simplePreferencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi\s+(love|hate|like|enjoy|prefer|dislike)\b`),
	regexp.MustCompile(`(?i)\bmy\s+favorite\b`),
	regexp.MustCompile(`(?i)\bi'm\s+(allergic|intolerant)\b`),
	regexp.MustCompile(`(?i)\bi\s+can't\s+stand\b`),
	regexp.MustCompile(`(?i)\bi\s+(always|never)\b`),
}

// isSimplePreference reports whether text is short enough and matches one of
// the simple-preference patterns, making it eligible for the extraction
// shortcut instead of a full LLM extraction call.
func isSimplePreference(text string, maxLength int) bool {
	if len(text) > maxLength {
		return false
	}
	for _, p := range simplePreferencePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// thirdPersonReplacements is applied in order; order matters because later
// patterns (bare "I"/"my"/"me") would otherwise also match inside the
// contractions handled earlier.
var thirdPersonReplacements = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\bI'm\b`), "User is"},
	{regexp.MustCompile(`\bi'm\b`), "User is"},
	{regexp.MustCompile(`\bI am\b`), "User is"},
	{regexp.MustCompile(`\bi am\b`), "User is"},
	{regexp.MustCompile(`\bI have\b`), "User has"},
	{regexp.MustCompile(`\bi have\b`), "User has"},
	{regexp.MustCompile(`\bI've\b`), "User has"},
	{regexp.MustCompile(`\bi've\b`), "User has"},
	{regexp.MustCompile(`\bI\b`), "User"},
	{regexp.MustCompile(`\bi\b`), "User"},
	{regexp.MustCompile(`\bMy\b`), "User's"},
	{regexp.MustCompile(`\bmy\b`), "User's"},
	{regexp.MustCompile(`\bMe\b`), "User"},
	{regexp.MustCompile(`\bme\b`), "User"},
}

// convertToThirdPerson rewrites a first-person utterance into the
// third-person fact_text form facts are stored and presented in.
func convertToThirdPerson(text string) string {
	out := text
	for _, r := range thirdPersonReplacements {
		out = r.pattern.ReplaceAllString(out, r.repl)
	}
	return out
}

// extractPreferenceShortcut builds a fact key/value/text triple directly
// from a simple-preference utterance, skipping the LLM extraction call.
// fact_key is a coarse slug ("preference") and fact_value is the original
// utterance; fact_text is the third-person rendering stored as the
// presentation string.
func extractPreferenceShortcut(userMessage string) (factKey, factValue, factText string) {
	return "preference", userMessage, convertToThirdPerson(userMessage)
}
