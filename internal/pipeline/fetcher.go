package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/util"
	"github.com/veridict/veridict/internal/worker"
)

const fetchMaxAttempts = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher retrieves candidate pages under hard size, redirect, and timeout
// limits. Non-text content is never treated as evidence text.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher. Robots checker, limiter, and cache may
// be nil to disable the corresponding behavior.
func NewFetcher(cfg model.HTTPConfig, robots *util.RobotsChecker, limiter *worker.Limiter, pageCache cache.Cache, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 3
	}

	transport := &http.Transport{
		Proxy: proxySelector(cfg.HTTPProxy, cfg.HTTPSProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		robots:    robots,
		limiter:   limiter,
		cache:     pageCache,
		logger:    logger,
	}
}

// proxySelector routes requests through the configured proxies, by scheme
// when both are set. With neither set the process environment decides.
func proxySelector(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// FetchResult contains the fetched page text and metadata
type FetchResult struct {
	Text        string // Visible text extracted from the page
	FinalURL    string
	StatusCode  int
	ContentType string
}

// Fetch retrieves and extracts the visible text of one page. Transient
// failures are retried with exponential backoff; the attempt counter is
// explicit state so callers see a single bounded call.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.cache != nil {
		if data, found := f.cache.Get(cache.PageKey(rawURL)); found {
			return &FetchResult{Text: string(data), FinalURL: rawURL}, nil
		}
	}

	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err == nil && !allowed {
			return nil, fmt.Errorf("robots.txt disallows %s", rawURL)
		}
		if f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
	} else if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var result *FetchResult
	var lastErr error
	for attempt := 0; attempt < fetchMaxAttempts; attempt++ {
		result, lastErr = f.fetchOnce(ctx, rawURL)
		if lastErr == nil || !isRetryableFetchError(lastErr) {
			break
		}
		if attempt < fetchMaxAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fetchSleepFunc(backoff)
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if f.cache != nil {
		_ = f.cache.Set(cache.PageKey(rawURL), []byte(result.Text), 0)
	}

	return result, nil
}

// fetchOnce performs a single fetch attempt
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextContent(contentType) {
		return nil, fmt.Errorf("non-text content type %q cannot be evidence text", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	text := string(body)
	if strings.Contains(contentType, "html") {
		text = ExtractVisibleText(text)
	}

	return &FetchResult{
		Text:        text,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
	}, nil
}

// isTextContent gates content types the extractor can parse
func isTextContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") ||
		strings.Contains(ct, "text/plain") ||
		strings.Contains(ct, "application/xhtml") ||
		strings.Contains(ct, "application/xml") ||
		strings.Contains(ct, "text/xml")
}

// isRetryableFetchError checks error strings for transient network failures
func isRetryableFetchError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "status: 429") ||
		strings.Contains(s, "status: 5")
}
