// Package predict is the client for the remote topic-prediction service.
// It resolves a URL into a title and a list of topic labels; the index core
// only ever sees the resolved (url, topics) pairs. Retry and circuit-breaker
// policy live here, never in the core.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/xplr/topicsearch/pkg/config"
	apperrors "github.com/xplr/topicsearch/pkg/errors"
	"github.com/xplr/topicsearch/pkg/logger"
	"github.com/xplr/topicsearch/pkg/metrics"
	"github.com/xplr/topicsearch/pkg/resilience"
)

const apiKeyHeader = "XPLR-Api-Key"

// Prediction is the resolved result for one URL.
type Prediction struct {
	URL    string
	Title  string
	Topics []string
}

type predictRequest struct {
	Parameters predictParameters `json:"parameters"`
	Document   predictDocument   `json:"document"`
}

type predictParameters struct {
	Labels      bool     `json:"labels"`
	TopicsLimit int      `json:"topics_limit"`
	Qualifiers  bool     `json:"qualifiers"`
	FiltersIn   []string `json:"filters_in"`
	FiltersOut  []string `json:"filters_out"`
}

type predictDocument struct {
	URI string `json:"uri"`
}

type predictResponse struct {
	Status struct {
		Code int `json:"code"`
	} `json:"status"`
	Body struct {
		ExtractedTitle string `json:"extracted_title"`
		Topics         []struct {
			Labels []struct {
				Label string `json:"label"`
			} `json:"labels"`
		} `json:"topics"`
	} `json:"body"`
}

// Client calls the prediction API.
type Client struct {
	httpClient *http.Client
	cfg        config.PredictConfig
	breaker    *resilience.CircuitBreaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient builds a prediction client from config. m may be nil.
func NewClient(cfg config.PredictConfig, m *metrics.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("predict-api", resilience.CircuitBreakerConfig{}),
		logger:  logger.WithComponent("predict"),
		metrics: m,
	}
}

// Predict resolves one URL into its predicted topics, retrying transient
// failures with backoff. All failures surface as ErrPredictFailed.
func (c *Client) Predict(ctx context.Context, url string) (Prediction, error) {
	var prediction Prediction
	retryCfg := resilience.RetryConfig{
		MaxAttempts: c.cfg.MaxRetries,
	}
	err := resilience.Retry(ctx, "predict", retryCfg, func() error {
		return c.breaker.Execute(func() error {
			p, err := c.predictOnce(ctx, url)
			if err != nil {
				return err
			}
			prediction = p
			return nil
		})
	})
	if err != nil {
		c.record("error")
		return Prediction{}, apperrors.Newf(apperrors.ErrPredictFailed, "%s: %v", url, err)
	}
	c.record("ok")
	return prediction, nil
}

func (c *Client) predictOnce(ctx context.Context, url string) (Prediction, error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.PredictDuration.Observe(time.Since(start).Seconds())
		}
	}()

	body, err := json.Marshal(predictRequest{
		Parameters: predictParameters{
			Labels:      true,
			TopicsLimit: c.cfg.TopicsCount,
			Qualifiers:  true,
			FiltersIn:   []string{"content_extraction"},
			FiltersOut:  []string{"content", "title"},
		},
		Document: predictDocument{URI: url},
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL()+"/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("calling prediction api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Prediction{}, fmt.Errorf("prediction api returned http %d", resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Prediction{}, fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Status.Code != http.StatusOK {
		return Prediction{}, fmt.Errorf("prediction status code %d", parsed.Status.Code)
	}

	topics := make([]string, 0, len(parsed.Body.Topics))
	for _, topic := range parsed.Body.Topics {
		if len(topic.Labels) > 0 {
			topics = append(topics, topic.Labels[0].Label)
		}
	}
	c.logger.Debug("prediction resolved",
		"url", url,
		"title", parsed.Body.ExtractedTitle,
		"topics", len(topics),
	)
	return Prediction{
		URL:    url,
		Title:  parsed.Body.ExtractedTitle,
		Topics: topics,
	}, nil
}

func (c *Client) record(status string) {
	if c.metrics != nil {
		c.metrics.PredictRequestsTotal.WithLabelValues(status).Inc()
	}
}
