package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/adminlove520/daily-stock-analysis/internal/adapters/config"
	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	"github.com/adminlove520/daily-stock-analysis/internal/metrics"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// Compile-time check
var _ analysis.Engine = (*Client)(nil)

// Client talks to the analysis pipeline service over HTTP. Calls block for
// as long as the pipeline takes; timeouts are the engine's concern and the
// HTTP client's deadline is deliberately generous.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a new engine client
func NewClient(cfg config.EngineConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With("component", "engine_client"),
	}
}

type singleStockResponse struct {
	Data *analysis.Result `json:"data"`
}

type marketReviewResponse struct {
	Report string `json:"report"`
}

// ProcessSingleStock runs the full analysis pipeline for one stock code
func (c *Client) ProcessSingleStock(ctx context.Context, code string) (*analysis.Result, error) {
	start := time.Now()

	var out singleStockResponse
	err := c.getJSON(ctx, c.baseURL+"/api/analysis/"+code, &out)
	metrics.EngineCallDuration.WithLabelValues("single_stock").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if out.Data == nil {
		return nil, errors.ErrEmptyResult
	}

	c.log.Infow("Single stock analysis completed",
		"code", code,
		"score", out.Data.SentimentScore,
		"duration", time.Since(start),
	)

	return out.Data, nil
}

// MarketReview generates the plain-text market review report
func (c *Client) MarketReview(ctx context.Context) (string, error) {
	start := time.Now()

	var out marketReviewResponse
	err := c.getJSON(ctx, c.baseURL+"/api/market/review", &out)
	metrics.EngineCallDuration.WithLabelValues("market_review").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	if out.Report == "" {
		return "", errors.ErrEmptyResult
	}

	c.log.Infow("Market review completed",
		"length", len(out.Report),
		"duration", time.Since(start),
	)

	return out.Report, nil
}

// getJSON performs a GET request and decodes the JSON response.
// 404 maps to ErrEmptyResult: the pipeline reports "nothing to say" that way.
func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build engine request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrEngineUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.ErrEmptyResult
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrEngineUnavailable, "engine returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read engine response")
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrap(err, "failed to decode engine response")
	}

	return nil
}
