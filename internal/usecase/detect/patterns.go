package detect

import (
	"sort"

	"caregate/internal/domain"
)

// TopicHit is one detected health topic occurrence.
type TopicHit struct {
	PatternType string // e.g. "sleep", "pain", "stress"
	Term        string // the vocabulary term that matched
}

// Topics scans text for health-topic vocabulary. Results are sorted by
// (type, term) so repeated runs over the same text are deterministic.
func Topics(text string) []TopicHit {
	normalized := Normalize(text)

	var hits []TopicHit
	for patternType, terms := range topicTerms {
		for _, term := range terms {
			if hasTerm(normalized, Normalize(term)) {
				hits = append(hits, TopicHit{PatternType: patternType, Term: term})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].PatternType != hits[j].PatternType {
			return hits[i].PatternType < hits[j].PatternType
		}
		return hits[i].Term < hits[j].Term
	})
	return hits
}

// TrendOf classifies the severity direction expressed in text.
func TrendOf(text string) domain.Trend {
	normalized := Normalize(text)
	switch {
	case matchFirst(normalized, worseningTerms) != "":
		return domain.TrendWorsening
	case matchFirst(normalized, improvingTerms) != "":
		return domain.TrendImproving
	default:
		return domain.TrendUnknown
	}
}
