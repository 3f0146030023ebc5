package detect

// Critical scans raw text for the fixed critical-keyword set and returns
// the matched terms. This scan is unconditional: the orchestrator runs it
// on every message regardless of how agents scored.
func Critical(text string) (bool, []string) {
	normalized := Normalize(text)
	hits := matchAny(normalized, criticalTerms)
	return len(hits) > 0, hits
}

// CriticalTermCount returns the size of the critical-keyword table.
// Intended for tests guarding accidental table truncation.
func CriticalTermCount() int { return len(criticalTerms) }
