// Command loadtest measures sustained query throughput and latency against a
// committed index. It runs concurrent workers issuing queries for a fixed
// duration and prints a latency report.
//
//	loadtest -indexdir /tmp/topicsearch_index -concurrency 10 -duration 30s
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xplr/topicsearch/internal/search"
	"github.com/xplr/topicsearch/internal/store"
	apperrors "github.com/xplr/topicsearch/pkg/errors"
)

type stats struct {
	totalQueries atomic.Int64
	errorCount   atomic.Int64
	emptyCount   atomic.Int64
	latencies    []time.Duration
	latenciesMu  sync.Mutex
}

func (s *stats) record(duration time.Duration, results int, err error) {
	s.totalQueries.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if results == 0 {
		s.emptyCount.Add(1)
	}
	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()
}

var defaultQueries = []string{
	"technology",
	"machine learning",
	"finance",
	"sports",
	"entertainment",
	"cloud computing",
	"artificial intelligence",
	"web development",
	"data science",
	"security",
}

func main() {
	indexDir := flag.String("indexdir", "/tmp/topicsearch_index", "index directory")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	queriesFile := flag.String("queries", "", "file with one query per line (default: built-in topic queries)")
	limit := flag.Int("limit", 10, "result limit per query")
	flag.Parse()

	queries := defaultQueries
	if *queriesFile != "" {
		loaded, err := readQueries(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(apperrors.ExitInvalidInput)
		}
		queries = loaded
	}

	reader, err := store.OpenReader(*indexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening index: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	defer reader.Close()
	searcher := search.NewSearcher(reader)

	fmt.Println("=== Topic Search Load Test ===")
	fmt.Printf("Index:       %s (%d docs, %d terms)\n", *indexDir, reader.DocCount(), reader.TermCount())
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d unique\n", len(queries))
	fmt.Println()

	st := runLoadTest(searcher, queries, *concurrency, *duration, *limit)
	printReport(st, *duration)
}

func runLoadTest(searcher *search.Searcher, queries []string, concurrency int, duration time.Duration, limit int) *stats {
	st := &stats{latencies: make([]time.Duration, 0, 100000)}
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				query := queries[queryIdx%len(queries)]
				queryIdx++

				start := time.Now()
				urls, err := searcher.Search(context.Background(), query, search.WithMaxResults(limit))
				st.record(time.Since(start), len(urls), err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return st
}

func printReport(st *stats, duration time.Duration) {
	total := st.totalQueries.Load()
	errors := st.errorCount.Load()
	empty := st.emptyCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Queries:  %d\n", total)
	fmt.Printf("Errors:         %d\n", errors)
	fmt.Printf("Empty Results:  %d\n", empty)
	if total > 0 {
		fmt.Printf("Queries/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	st.latenciesMu.Lock()
	latencies := make([]time.Duration, len(st.latencies))
	copy(latencies, st.latencies)
	st.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: no queries completed")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return queries, nil
}
