package memory

import (
	"regexp"
	"strings"

	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// bankRule pairs a bank's text patterns (checked against the fact text) with
// a keyword list (checked as a substring of the fact key). Either checked
// against lowercased input.
type bankRule struct {
	bank     models.MemoryBank
	patterns []*regexp.Regexp
	keywords []string
}

// bankRules is evaluated in models.BankEvaluationOrder; the first rule whose
// pattern or keyword list matches wins. Grounded on _infer_memory_bank's
// fixed Events -> Health -> Relationships -> Interests -> Work -> Personal
// tier order, falling through to General.
var bankRules = []bankRule{
	{
		bank: models.BankEvents,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(birthday|anniversary|wedding|party|appointment|meeting|trip|vacation|flight|reservation|deadline)\b`),
			regexp.MustCompile(`(?i)\b(tomorrow|next week|next month|on (monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`),
		},
		keywords: []string{"event", "appointment", "schedule", "trip", "birthday"},
	},
	{
		bank: models.BankHealth,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(allerg(y|ic)|intoleran(t|ce)|medication|diagnos(is|ed)|condition|doctor|therapy|symptom|illness|disease)\b`),
		},
		keywords: []string{"allergy", "health", "medication", "condition", "diet"},
	},
	{
		bank: models.BankRelationships,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(spouse|husband|wife|partner|girlfriend|boyfriend|fianc[ée]e?|child|son|daughter|parent|mother|father|sibling|brother|sister|friend|family)\b`),
		},
		keywords: []string{"spouse", "child", "family", "friend", "relationship"},
	},
	{
		bank: models.BankInterests,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(hobby|hobbies|enjoy|love|favorite|interested in|fan of|passionate about)\b`),
		},
		keywords: []string{"hobby", "interest", "favorite", "pet"},
	},
	{
		bank: models.BankWork,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(job|career|occupation|employer|coworker|colleague|manager|company|office|profession|works? (at|as|for))\b`),
		},
		keywords: []string{"job", "work", "career", "occupation", "employer"},
	},
	{
		bank: models.BankPersonal,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(name is|my name|i am \d|years old|live in|lives in|hometown|born in)\b`),
		},
		keywords: []string{"name", "age", "location", "address"},
	},
}

// inferMemoryBank assigns factText (and its factKey, for keyword checks) to
// the first matching bank tier, defaulting to General.
func inferMemoryBank(factKey, factText string) models.MemoryBank {
	lowerText := strings.ToLower(factText)
	lowerKey := strings.ToLower(factKey)

	for _, rule := range bankRules {
		for _, p := range rule.patterns {
			if p.MatchString(lowerText) {
				return rule.bank
			}
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lowerKey, kw) {
				return rule.bank
			}
		}
	}
	return models.BankGeneral
}
