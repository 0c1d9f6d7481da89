package pipeline

import (
	"strings"
)

// RelevanceFilter matches extracted text against a bot's keyword
// allow-list and blacklist term-list.
type RelevanceFilter struct{}

func NewRelevanceFilter() *RelevanceFilter {
	return &RelevanceFilter{}
}

// Run returns the matched keywords and matched blacklist terms. Both
// are substring containment tests over the lower-cased text, computed
// independently - except that any blacklist match discards the keyword
// matches entirely: blacklist always wins over keyword relevance.
func (f *RelevanceFilter) Run(text string, keywords, blacklist []string) (matchedKeywords, matchedBlacklist []string) {
	lowered := strings.ToLower(text)

	for _, term := range blacklist {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(term)) {
			matchedBlacklist = append(matchedBlacklist, term)
		}
	}

	if len(matchedBlacklist) > 0 {
		return nil, matchedBlacklist
	}

	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			matchedKeywords = append(matchedKeywords, keyword)
		}
	}

	return matchedKeywords, nil
}
