package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/worker"
)

// Candidate is one search hit: a URL to consider fetching. Snippets are
// discovery hints only and never become evidence text.
type Candidate struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Engine  string  `json:"engine,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Client is the web-search interface: query in, ranked candidates out
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// HTTPClient queries a SearxNG-compatible JSON endpoint
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *worker.Limiter
	cache      cache.Cache
	maxResults int
	logger     *zap.Logger
}

// NewHTTPClient creates a search client. The limiter and cache may be nil.
func NewHTTPClient(cfg model.SearchConfig, limiter *worker.Limiter, pageCache cache.Cache, logger *zap.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("search base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 8
	}

	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		cache:      pageCache,
		maxResults: maxResults,
		logger:     logger,
	}, nil
}

// searxResponse mirrors the SearxNG JSON result format
type searxResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Engine  string  `json:"engine"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs one query and returns ranked URL candidates
func (c *HTTPClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	if c.cache != nil {
		if data, found := c.cache.Get(cache.SearchKey(query, limit)); found {
			var cached []Candidate
			if err := json.Unmarshal(data, &cached); err == nil {
				if len(cached) > limit {
					cached = cached[:limit]
				}
				return cached, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.baseURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4_000_000))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed searxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	candidates := make([]Candidate, 0, limit)
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Engine:  r.Engine,
			Score:   r.Score,
		})
		if len(candidates) >= limit {
			break
		}
	}

	if c.cache != nil {
		if data, err := json.Marshal(candidates); err == nil {
			_ = c.cache.Set(cache.SearchKey(query, limit), data, 0)
		}
	}

	c.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)))

	return candidates, nil
}
