package memory

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// textSimilarity approximates Python's difflib.SequenceMatcher(None, a,
// b).ratio() used by _is_duplicate's text-based fallback. No Go package in
// the example corpus ports SequenceMatcher's ratio directly, but
// agnivade/levenshtein (seen in the retrieval pack) gives an edit distance;
// normalizing it against the longer string's length produces the same
// [0,1] closeness signal SequenceMatcher's ratio is used for here.
func textSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	ratio := 1.0 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}
