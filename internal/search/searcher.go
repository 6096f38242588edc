// Package search is the query engine: it parses free-text queries with the
// shared tokenization policy, OR-combines postings from the committed index,
// ranks candidates with TF-IDF, and returns ordered URLs.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/xplr/topicsearch/internal/index"
	"github.com/xplr/topicsearch/pkg/logger"
	"github.com/xplr/topicsearch/pkg/metrics"
)

// PostingSource is the read-side index contract the engine needs; it is
// satisfied by *store.Reader.
type PostingSource interface {
	Postings(term string) (index.PostingList, error)
	DocCount() int
}

// Searcher answers free-text queries against one open index reader.
type Searcher struct {
	source  PostingSource
	cache   *QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithCache attaches an optional query cache. nil disables caching.
func WithCache(cache *QueryCache) SearcherOption {
	return func(s *Searcher) {
		s.cache = cache
	}
}

// WithMetrics attaches Prometheus collectors. nil disables recording.
func WithMetrics(m *metrics.Metrics) SearcherOption {
	return func(s *Searcher) {
		s.metrics = m
	}
}

func NewSearcher(source PostingSource, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		source: source,
		logger: logger.WithComponent("searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a single Search call.
type Option func(*searchOptions)

type searchOptions struct {
	maxResults int
}

// WithMaxResults caps the number of returned URLs at n. n <= 0 means
// unlimited.
func WithMaxResults(n int) Option {
	return func(o *searchOptions) {
		o.maxResults = n
	}
}

// Search returns URLs ranked by relevance to the query. An empty query or a
// query matching nothing returns an empty slice; an error is returned only
// when the index itself cannot be read.
func (s *Searcher) Search(ctx context.Context, query string, opts ...Option) ([]string, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()
	plan := Parse(query)
	if len(plan.Terms) == 0 {
		s.observe("zero_result", start, 0)
		return []string{}, nil
	}

	if s.cache != nil {
		urls, cached, err := s.cache.GetOrCompute(ctx, plan, o.maxResults, func() ([]string, error) {
			return s.execute(plan, o.maxResults)
		})
		if err != nil {
			s.observe("error", start, 0)
			return nil, err
		}
		if cached {
			s.logger.Debug("query served from cache", "query", plan.RawQuery)
		}
		s.observeResult(urls, start)
		return urls, nil
	}

	urls, err := s.execute(plan, o.maxResults)
	if err != nil {
		s.observe("error", start, 0)
		return nil, err
	}
	s.observeResult(urls, start)
	return urls, nil
}

func (s *Searcher) execute(plan *QueryPlan, limit int) ([]string, error) {
	postingsPerTerm := make(map[string]index.PostingList, len(plan.Terms))
	for _, term := range plan.Terms {
		postings, err := s.source.Postings(term)
		if err != nil {
			return nil, err
		}
		if len(postings) > 0 {
			postingsPerTerm[term] = postings
		}
	}
	ranked := Rank(postingsPerTerm, s.source.DocCount(), limit)
	urls := make([]string, 0, len(ranked))
	for _, doc := range ranked {
		urls = append(urls, doc.URL)
	}
	s.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"matched_terms", len(postingsPerTerm),
		"results", len(urls),
	)
	return urls, nil
}

func (s *Searcher) observeResult(urls []string, start time.Time) {
	resultType := "hit"
	if len(urls) == 0 {
		resultType = "zero_result"
	}
	s.observe(resultType, start, len(urls))
}

func (s *Searcher) observe(resultType string, start time.Time, count int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	if resultType != "error" {
		s.metrics.SearchResultsCount.Observe(float64(count))
	}
}
