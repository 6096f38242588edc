package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xplr/topicsearch/pkg/config"
	apperrors "github.com/xplr/topicsearch/pkg/errors"
)

func testConfig(t *testing.T, server *httptest.Server) config.PredictConfig {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing test server port: %v", err)
	}
	return config.PredictConfig{
		Host:        u.Hostname(),
		Port:        port,
		APIKey:      "test-key",
		TopicsCount: 5,
		Concurrency: 2,
		Timeout:     5 * time.Second,
		MaxRetries:  1,
	}
}

func predictionHandler(t *testing.T, topics map[string][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("XPLR-Api-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var req struct {
			Document struct {
				URI string `json:"uri"`
			} `json:"document"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		labels, ok := topics[req.Document.URI]
		if !ok {
			fmt.Fprint(w, `{"status":{"code":404},"body":{}}`)
			return
		}
		resp := map[string]any{
			"status": map[string]any{"code": 200},
			"body": map[string]any{
				"extracted_title": "Title of " + req.Document.URI,
				"topics":          topicsJSON(labels),
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func topicsJSON(labels []string) []map[string]any {
	out := make([]map[string]any, 0, len(labels))
	for _, label := range labels {
		out = append(out, map[string]any{
			"labels": []map[string]any{{"label": label}},
		})
	}
	return out
}

func TestPredict(t *testing.T) {
	server := httptest.NewServer(predictionHandler(t, map[string][]string{
		"http://a.com": {"technology", "ai"},
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server), nil)
	prediction, err := client.Predict(context.Background(), "http://a.com")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if prediction.Title != "Title of http://a.com" {
		t.Errorf("Title = %q", prediction.Title)
	}
	if !reflect.DeepEqual(prediction.Topics, []string{"technology", "ai"}) {
		t.Errorf("Topics = %v", prediction.Topics)
	}
}

func TestPredictNonOKStatusCode(t *testing.T) {
	server := httptest.NewServer(predictionHandler(t, nil))
	defer server.Close()

	client := NewClient(testConfig(t, server), nil)
	_, err := client.Predict(context.Background(), "http://unknown.com")
	if !errors.Is(err, apperrors.ErrPredictFailed) {
		t.Fatalf("expected ErrPredictFailed, got %v", err)
	}
}

func TestPredictHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server), nil)
	_, err := client.Predict(context.Background(), "http://a.com")
	if !errors.Is(err, apperrors.ErrPredictFailed) {
		t.Fatalf("expected ErrPredictFailed, got %v", err)
	}
}

func TestPredictRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "temporarily down", http.StatusServiceUnavailable)
			return
		}
		predictionHandler(t, map[string][]string{
			"http://a.com": {"technology"},
		})(w, r)
	}))
	defer server.Close()

	cfg := testConfig(t, server)
	cfg.MaxRetries = 2
	client := NewClient(cfg, nil)
	prediction, err := client.Predict(context.Background(), "http://a.com")
	if err != nil {
		t.Fatalf("Predict after retry: %v", err)
	}
	if len(prediction.Topics) != 1 {
		t.Errorf("Topics = %v", prediction.Topics)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

// Per-URL failures stay in their Result slot; the rest of the batch
// completes, and input order is preserved.
func TestPredictBatch(t *testing.T) {
	server := httptest.NewServer(predictionHandler(t, map[string][]string{
		"http://a.com": {"technology"},
		"http://c.com": {"finance"},
	}))
	defer server.Close()

	client := NewClient(testConfig(t, server), nil)
	urls := []string{"http://a.com", "http://b.com", "http://c.com"}
	results, err := client.PredictBatch(context.Background(), urls, 2)
	if err != nil {
		t.Fatalf("PredictBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %v", results)
	}
	for i, result := range results {
		if result.URL != urls[i] {
			t.Errorf("result[%d].URL = %s, want %s (order must be preserved)", i, result.URL, urls[i])
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected failures: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, apperrors.ErrPredictFailed) {
		t.Errorf("result[1].Err = %v, want ErrPredictFailed", results[1].Err)
	}
}
