package knowledge

import (
	"regexp"
	"sort"
	"strings"
)

// minKeywordLength drops short tokens; anything of length <= 3 is noise for
// ranking purposes ("the", "db", "it").
const minKeywordLength = 4

var nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]+`)

// stopWords is a fixed list of common English function words that carry no
// ranking signal.
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "also": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {},
	"as": {}, "at": {}, "be": {}, "because": {}, "been": {},
	"before": {}, "being": {}, "below": {}, "between": {}, "both": {}, "but": {},
	"by": {}, "can": {}, "cannot": {}, "could": {}, "did": {}, "do": {},
	"does": {}, "doing": {}, "down": {}, "during": {}, "each": {}, "few": {},
	"for": {}, "from": {}, "further": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {}, "him": {},
	"his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "itself": {}, "just": {}, "me": {}, "more": {},
	"most": {}, "my": {}, "myself": {}, "no": {}, "nor": {}, "not": {},
	"now": {}, "of": {}, "off": {}, "on": {}, "once": {}, "only": {}, "or": {},
	"other": {}, "our": {}, "ours": {}, "out": {}, "over": {}, "own": {},
	"same": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "theirs": {}, "them": {},
	"themselves": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {}, "under": {},
	"until": {}, "up": {}, "very": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"whom": {}, "why": {}, "will": {}, "with": {}, "would": {}, "you": {},
	"your": {}, "yours": {}, "yourself": {},
}

// ExtractKeywords normalizes free text into a deduplicated set of
// significant terms: lower-cased, stripped of non-word characters, split on
// whitespace, with short tokens and stop-words removed. It is a total
// function; empty or garbage input yields an empty set.
func ExtractKeywords(text string) map[string]struct{} {
	normalized := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")

	keywords := make(map[string]struct{})
	for _, token := range strings.Fields(normalized) {
		if len(token) < minKeywordLength {
			continue
		}
		if _, isStopWord := stopWords[token]; isStopWord {
			continue
		}
		keywords[token] = struct{}{}
	}

	return keywords
}

// SortedKeywords renders a keyword set as a sorted slice for deterministic
// output (prompt sections, JSON responses, tests).
func SortedKeywords(set map[string]struct{}) []string {
	keywords := make([]string, 0, len(set))
	for keyword := range set {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return keywords
}
