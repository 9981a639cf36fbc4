// Package groundx implements search.Gateway over the GroundX search API.
package groundx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/metrics"
	"github.com/nadzzz/doctech/internal/search"
)

const defaultBaseURL = "https://api.groundx.ai/api/v1"

// Client queries one GroundX bucket. Consecutive upstream failures open a
// circuit breaker; empty result sets do not count as failures.
type Client struct {
	baseURL  string
	apiKey   string
	bucketID int
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

var _ search.Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New creates a GroundX client.
func New(cfg config.GroundXConfig, breaker config.BreakerConfig, logger *zap.Logger, opts ...Option) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	maxFailures := breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	c := &Client{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		bucketID: cfg.BucketID,
		http:     &http.Client{},
		logger:   logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "groundx",
		MaxRequests: 1,
		Timeout:     breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, message.ErrNoMatch) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Search struct {
		Results []result `json:"results"`
	} `json:"search"`
}

type result struct {
	SourceURL     string  `json:"sourceUrl"`
	FileName      string  `json:"fileName"`
	DocumentID    string  `json:"documentId"`
	Score         float64 `json:"score"`
	BoundingBoxes []struct {
		PageNumber int `json:"pageNumber"`
	} `json:"boundingBoxes"`
}

// Search returns the top-ranked result for query.
func (c *Client) Search(ctx context.Context, query string) (search.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return search.Match{}, fmt.Errorf("blank query: %w", message.ErrNoMatch)
	}

	start := time.Now()
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, query)
	})
	switch {
	case err == nil:
		metrics.SearchRequestsTotal.WithLabelValues("match").Inc()
	case errors.Is(err, message.ErrNoMatch):
		metrics.SearchRequestsTotal.WithLabelValues("no_match").Inc()
		return search.Match{}, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.SearchRequestsTotal.WithLabelValues("rejected").Inc()
		return search.Match{}, fmt.Errorf("groundx: %w: %w", message.ErrSearchUnavailable, err)
	default:
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return search.Match{}, err
	}

	match := v.(search.Match)
	c.logger.Debug("groundx search complete",
		zap.String("document", match.FileName),
		zap.Ints("pages", match.Pages),
		zap.Duration("duration", time.Since(start)),
	)
	return match, nil
}

func (c *Client) do(ctx context.Context, query string) (search.Match, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return search.Match{}, fmt.Errorf("encoding search request: %w", err)
	}

	endpoint := c.baseURL + "/search/" + strconv.Itoa(c.bucketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return search.Match{}, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return search.Match{}, fmt.Errorf("groundx request: %w: %w", message.ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return search.Match{}, fmt.Errorf("groundx status %d: %s: %w", resp.StatusCode, bytes.TrimSpace(detail), message.ErrSearchUnavailable)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return search.Match{}, fmt.Errorf("decoding groundx response: %w: %w", message.ErrSearchUnavailable, err)
	}
	if len(decoded.Search.Results) == 0 {
		return search.Match{}, fmt.Errorf("no results for %q: %w", query, message.ErrNoMatch)
	}

	top := decoded.Search.Results[0]
	match := search.Match{
		SourceURL:  top.SourceURL,
		FileName:   top.FileName,
		DocumentID: top.DocumentID,
		Score:      top.Score,
	}
	for _, b := range top.BoundingBoxes {
		match.Pages = append(match.Pages, b.PageNumber)
	}
	return match, nil
}
