// Package moderation screens incoming questions before they reach the model.
//
// This is a deliberately simple keyword filter: questions containing abusive
// or violent language are refused outright instead of being embedded and
// answered. It applies to questions only — stored document content is never
// filtered.
package moderation

import "strings"

// RefusalAnswer is returned verbatim for questions the filter blocks.
const RefusalAnswer = "I cannot answer this type of question."

// defaultKeywords is the built-in blocklist. Operators can extend it via
// configuration but not shrink it.
var defaultKeywords = []string{
	"idiot",
	"stupid",
	"moron",
	"hate",
	"kill",
	"violence",
	"racist",
	"sexist",
}

// Filter is a case-insensitive substring keyword filter.
type Filter struct {
	keywords []string
}

// New returns a Filter over the built-in blocklist plus any extra keywords.
// Extra keywords are lowercased; blank entries are ignored.
func New(extra ...string) *Filter {
	keywords := make([]string, 0, len(defaultKeywords)+len(extra))
	keywords = append(keywords, defaultKeywords...)
	for _, k := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Filter{keywords: keywords}
}

// IsInappropriate reports whether text contains any blocked keyword.
// Matching is case-insensitive and substring-based.
func (f *Filter) IsInappropriate(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
