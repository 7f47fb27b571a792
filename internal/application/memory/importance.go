package memory

import (
	"regexp"
	"strings"
)

// importance tiers, evaluated highest first. Grounded on _infer_importance's
// four-tier critical/important/medium/default scoring.
var (
	criticalImportancePattern  = regexp.MustCompile(`(?i)\b(name|location|occupation|age|birthday)\b`)
	importantImportancePattern = regexp.MustCompile(`(?i)\b(spouse|husband|wife|partner|child|son|daughter|family|allerg(y|ic)|health|favorite|love|hate)\b`)
	mediumImportancePattern    = regexp.MustCompile(`(?i)\b(hobby|pet|interest|prefer(ence|s)?)\b`)
)

const (
	importanceCritical  = 1.0
	importanceImportant = 0.8
	importanceMedium    = 0.6
	importanceDefault   = 0.7
)

// inferImportance scores a fact's priority for retrieval ranking and
// pruning protection, consulting both the fact key and fact text.
func inferImportance(factKey, factText string) float64 {
	combined := strings.ToLower(factKey + " " + factText)
	switch {
	case criticalImportancePattern.MatchString(combined):
		return importanceCritical
	case importantImportancePattern.MatchString(combined):
		return importanceImportant
	case mediumImportancePattern.MatchString(combined):
		return importanceMedium
	default:
		return importanceDefault
	}
}
