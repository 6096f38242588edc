package search

import (
	"math"
	"sort"

	"github.com/xplr/topicsearch/internal/index"
)

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Rank scores OR-combined candidates with TF-IDF: for each matched query
// term, termFrequency × idf(term), summed per document. idf uses additive
// smoothing, idf = 1 + ln(totalDocs/df), so a term occurring in every
// document still contributes its term frequency instead of zeroing out.
// Results are sorted by descending score, ties broken by ascending URL.
// limit <= 0 means unlimited.
func Rank(postingsPerTerm map[string]index.PostingList, totalDocs int, limit int) []ScoredDoc {
	if totalDocs < 1 {
		totalDocs = 1
	}
	scores := make(map[string]float64)
	for _, postings := range postingsPerTerm {
		idf := computeIDF(totalDocs, len(postings))
		for _, posting := range postings {
			scores[posting.URL] += float64(posting.Frequency) * idf
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for url, score := range scores {
		result = append(result, ScoredDoc{
			URL:   url,
			Score: math.Round(score*10000) / 10000,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].URL < result[j].URL
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func computeIDF(totalDocs, docFreq int) float64 {
	if docFreq < 1 {
		docFreq = 1
	}
	return 1 + math.Log(float64(totalDocs)/float64(docFreq))
}
