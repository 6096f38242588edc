package search

import (
	"reflect"
	"testing"

	"github.com/xplr/topicsearch/internal/index"
)

func urlsOf(docs []ScoredDoc) []string {
	urls := make([]string, 0, len(docs))
	for _, doc := range docs {
		urls = append(urls, doc.URL)
	}
	return urls
}

// Higher term frequency wins at equal document frequency.
func TestRankTermFrequencyOrdering(t *testing.T) {
	postings := map[string]index.PostingList{
		"financ": {
			{URL: "http://a.com", Frequency: 2},
			{URL: "http://b.com", Frequency: 1},
		},
	}
	ranked := Rank(postings, 2, 0)
	want := []string{"http://a.com", "http://b.com"}
	if got := urlsOf(ranked); !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank order = %v, want %v", got, want)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("scores not descending: %v", ranked)
	}
}

// A term occurring in every document must still contribute its term
// frequency; the smoothed idf never reaches zero.
func TestRankUbiquitousTermStillScores(t *testing.T) {
	postings := map[string]index.PostingList{
		"technolog": {
			{URL: "http://a.com", Frequency: 1},
			{URL: "http://b.com", Frequency: 1},
		},
	}
	ranked := Rank(postings, 2, 0)
	for _, doc := range ranked {
		if doc.Score <= 0 {
			t.Errorf("score for %s = %v, want > 0", doc.URL, doc.Score)
		}
	}
}

// Equal scores break ties by ascending URL, keeping results deterministic.
func TestRankTieBreakByURL(t *testing.T) {
	postings := map[string]index.PostingList{
		"technolog": {
			{URL: "http://b.com", Frequency: 1},
			{URL: "http://a.com", Frequency: 1},
		},
	}
	want := []string{"http://a.com", "http://b.com"}
	if got := urlsOf(Rank(postings, 2, 0)); !reflect.DeepEqual(got, want) {
		t.Fatalf("tie-break order = %v, want %v", got, want)
	}
}

// Rarer terms carry more weight: a match on a term in one of many documents
// outranks an equal-frequency match on a term found everywhere.
func TestRankIDFWeighting(t *testing.T) {
	postings := map[string]index.PostingList{
		"common": {
			{URL: "http://common.com", Frequency: 1},
			{URL: "http://other1.com", Frequency: 1},
			{URL: "http://other2.com", Frequency: 1},
			{URL: "http://other3.com", Frequency: 1},
		},
		"rare": {
			{URL: "http://rare.com", Frequency: 1},
		},
	}
	ranked := Rank(postings, 4, 0)
	if ranked[0].URL != "http://rare.com" {
		t.Fatalf("rare-term match should rank first: %v", ranked)
	}
}

// OR semantics: a document matching several query terms accumulates score
// across them.
func TestRankAccumulatesAcrossTerms(t *testing.T) {
	postings := map[string]index.PostingList{
		"technolog": {
			{URL: "http://both.com", Frequency: 1},
			{URL: "http://tech.com", Frequency: 1},
		},
		"ai": {
			{URL: "http://both.com", Frequency: 1},
		},
	}
	ranked := Rank(postings, 2, 0)
	if ranked[0].URL != "http://both.com" {
		t.Fatalf("multi-term match should rank first: %v", ranked)
	}
}

func TestRankLimit(t *testing.T) {
	postings := map[string]index.PostingList{
		"technolog": {
			{URL: "http://a.com", Frequency: 3},
			{URL: "http://b.com", Frequency: 2},
			{URL: "http://c.com", Frequency: 1},
		},
	}
	ranked := Rank(postings, 3, 2)
	if len(ranked) != 2 {
		t.Fatalf("limit ignored: %v", ranked)
	}
	if ranked[0].URL != "http://a.com" {
		t.Errorf("top result = %s, want http://a.com", ranked[0].URL)
	}
}

func TestRankNoPostings(t *testing.T) {
	if got := Rank(map[string]index.PostingList{}, 10, 0); len(got) != 0 {
		t.Fatalf("Rank with no postings = %v", got)
	}
}
