// Command topicsearch indexes URLs by their predicted topics and answers
// free-text queries against the index.
//
// Indexing reads a URL list, resolves each URL's topics through the remote
// prediction API, and upserts the results into the on-disk index:
//
//	topicsearch -index -source urls.txt -key APIKEY -host api.example.com [-flush]
//
// Querying prints matching URLs, best first:
//
//	topicsearch -query "machine learning" [-limit 10]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/xplr/topicsearch/internal/index"
	"github.com/xplr/topicsearch/internal/predict"
	"github.com/xplr/topicsearch/internal/search"
	"github.com/xplr/topicsearch/internal/store"
	"github.com/xplr/topicsearch/pkg/config"
	apperrors "github.com/xplr/topicsearch/pkg/errors"
	"github.com/xplr/topicsearch/pkg/health"
	"github.com/xplr/topicsearch/pkg/logger"
	"github.com/xplr/topicsearch/pkg/metrics"
	pkgredis "github.com/xplr/topicsearch/pkg/redis"
	"github.com/xplr/topicsearch/pkg/tracing"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		doIndex    = flag.Bool("index", false, "perform topics prediction and indexation")
		query      = flag.String("query", "", "perform query on topics")
		indexDir   = flag.String("indexdir", "", "index directory")
		sourceFile = flag.String("source", "", "source list of URLs to index, one per line")
		doFlush    = flag.Bool("flush", false, "flush index before indexing")
		apiKey     = flag.String("key", "", "prediction API key")
		apiHost    = flag.String("host", "", "prediction API host")
		apiPort    = flag.Int("port", 0, "prediction API port")
		apiSSL     = flag.Bool("ssl", false, "use ssl on prediction API calls")
		limit      = flag.Int("limit", 0, "maximum number of query results (0 = unlimited)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitFailure
	}
	applyFlags(cfg, *indexDir, *apiKey, *apiHost, *apiPort, *apiSSL)
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if !*doIndex && *query == "" {
		fmt.Fprintln(os.Stderr, "either -index or -query is required")
		flag.Usage()
		return apperrors.ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port, buildHealthChecker(cfg))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	if *doIndex {
		if *sourceFile == "" {
			fmt.Fprintln(os.Stderr, "-source is required with -index")
			return apperrors.ExitUsage
		}
		if cfg.Predict.Host == "" {
			fmt.Fprintln(os.Stderr, "prediction API host is required with -index")
			return apperrors.ExitUsage
		}
		mode := store.OpenOrCreate
		if *doFlush {
			mode = store.Flush
		}
		if err := runIndex(ctx, cfg, m, *sourceFile, mode); err != nil {
			slog.Error("indexing failed", "error", err)
			return apperrors.ExitCode(err)
		}
	}

	if *query != "" {
		resultLimit := *limit
		if resultLimit == 0 {
			resultLimit = cfg.Search.DefaultLimit
		}
		if cfg.Search.MaxResults > 0 && (resultLimit == 0 || resultLimit > cfg.Search.MaxResults) {
			resultLimit = cfg.Search.MaxResults
		}
		if err := runQuery(ctx, cfg, m, *query, resultLimit); err != nil {
			slog.Error("query failed", "error", err)
			return apperrors.ExitCode(err)
		}
	}
	return apperrors.ExitOK
}

// applyFlags lets command-line flags override the loaded config, matching
// the original program's precedence.
func applyFlags(cfg *config.Config, indexDir, apiKey, apiHost string, apiPort int, apiSSL bool) {
	if indexDir != "" {
		cfg.Index.Dir = indexDir
	}
	if apiKey != "" {
		cfg.Predict.APIKey = apiKey
	}
	if apiHost != "" {
		cfg.Predict.Host = apiHost
	}
	if apiPort != 0 {
		cfg.Predict.Port = apiPort
	}
	if apiSSL {
		cfg.Predict.SSL = true
	}
}

// buildHealthChecker registers checks for the diagnostics listener: the
// index directory must be reachable, and the query cache must answer pings
// when configured.
func buildHealthChecker(cfg *config.Config) *health.Checker {
	checker := health.NewChecker()
	checker.Register("index_dir", func(ctx context.Context) health.ComponentHealth {
		if _, err := os.Stat(cfg.Index.Dir); err != nil {
			return health.Down(err)
		}
		return health.Up()
	})
	if cfg.Redis.Enabled() {
		checker.Register("query_cache", func(ctx context.Context) health.ComponentHealth {
			client, err := pkgredis.NewClient(cfg.Redis)
			if err != nil {
				return health.Down(err)
			}
			defer client.Close()
			return health.Up()
		})
	}
	return checker
}

// runIndex drives the indexing pipeline: URL list, prediction batch,
// upserts, commit. Per-document failures are collected and reported but do
// not abort the batch; only store-level failures do.
func runIndex(ctx context.Context, cfg *config.Config, m *metrics.Metrics, sourceFile string, mode store.OpenMode) error {
	urls, err := readURLList(sourceFile)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}
	slog.Info("indexing started", "urls", len(urls), "dir", cfg.Index.Dir, "flush", mode == store.Flush)

	ctx, span := tracing.StartSpan(ctx, "index-run")
	span.SetAttr("urls", len(urls))
	defer func() {
		span.End()
		span.Log()
	}()

	client := predict.NewClient(cfg.Predict, m)
	predictCtx, predictSpan := tracing.StartChildSpan(ctx, "predict-batch")
	results, err := client.PredictBatch(predictCtx, urls, cfg.Predict.Concurrency)
	predictSpan.End()
	if err != nil {
		return fmt.Errorf("prediction batch aborted: %w", err)
	}

	s, err := store.Open(cfg.Index.Dir, mode)
	if err != nil {
		return err
	}
	defer s.Close()

	var failures *multierror.Error
	indexed := 0
	for _, result := range results {
		if result.Err != nil {
			slog.Warn("prediction failed", "url", result.URL, "error", result.Err)
			failures = multierror.Append(failures, result.Err)
			m.DocsFailedTotal.Inc()
			continue
		}
		doc, err := index.NewDocument(result.URL, result.Prediction.Topics)
		if err != nil {
			slog.Warn("invalid document", "url", result.URL, "error", err)
			failures = multierror.Append(failures, err)
			m.DocsFailedTotal.Inc()
			continue
		}
		if err := s.Upsert(doc); err != nil {
			return err
		}
		slog.Info("indexed", "url", result.URL, "title", result.Prediction.Title, "topics", result.Prediction.Topics)
		indexed++
		m.DocsIndexedTotal.Inc()
	}

	_, commitSpan := tracing.StartChildSpan(ctx, "commit")
	err = s.Commit()
	commitSpan.End()
	if err != nil {
		m.CommitsTotal.WithLabelValues("error").Inc()
		return err
	}
	m.CommitsTotal.WithLabelValues("ok").Inc()

	invalidateCache(ctx, cfg, m)

	failed := len(failures.WrappedErrors())
	slog.Info("indexing complete",
		"indexed", indexed,
		"failed", failed,
		"total", len(urls),
	)
	if failed > 0 {
		slog.Warn("some documents were not indexed", "error", failures.ErrorOrNil())
	}
	return nil
}

// invalidateCache drops cached query results after a commit. Best effort: a
// missing or unreachable cache never fails an indexing run.
func invalidateCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Redis.Enabled() {
		return
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("query cache unreachable, skipping invalidation", "error", err)
		return
	}
	defer client.Close()
	if err := search.NewQueryCache(client, cfg.Redis, m).Invalidate(ctx); err != nil {
		slog.Warn("query cache invalidation failed", "error", err)
	}
}

// runQuery executes one search and prints matching URLs to stdout, best
// match first. Failures abort cleanly with no partial output.
func runQuery(ctx context.Context, cfg *config.Config, m *metrics.Metrics, query string, limit int) error {
	reader, err := store.OpenReader(cfg.Index.Dir)
	if err != nil {
		return err
	}
	defer reader.Close()

	opts := []search.SearcherOption{search.WithMetrics(m)}
	if cfg.Redis.Enabled() {
		if client, err := pkgredis.NewClient(cfg.Redis); err != nil {
			slog.Warn("query cache unreachable, searching without cache", "error", err)
		} else {
			defer client.Close()
			opts = append(opts, search.WithCache(search.NewQueryCache(client, cfg.Redis, m)))
		}
	}
	searcher := search.NewSearcher(reader, opts...)

	ctx, span := tracing.StartSpan(ctx, "query-run")
	span.SetAttr("query", query)
	urls, err := searcher.Search(ctx, query, search.WithMaxResults(limit))
	span.End()
	span.Log()
	if err != nil {
		return err
	}
	for _, url := range urls {
		fmt.Println(url)
	}
	slog.Info("query complete", "query", query, "results", len(urls))
	return nil
}

// readURLList reads one URL per line, skipping blanks and # comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, errors.New("no urls in source file")
	}
	return urls, nil
}
