package search

import (
	"github.com/xplr/topicsearch/internal/tokenizer"
)

// QueryPlan is the normalized form of a free-text query: the distinct terms
// surviving the shared tokenization policy, combined with OR semantics.
type QueryPlan struct {
	RawQuery string
	Terms    []string
}

// Parse tokenizes the query with the same analysis chain used at index time
// and deduplicates the resulting terms, preserving first-seen order. A query
// with no surviving terms yields an empty plan, not an error.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
	}
	seen := make(map[string]struct{})
	for _, term := range tokenizer.Tokenize(query) {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		plan.Terms = append(plan.Terms, term)
	}
	return plan
}
