package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/model"
)

const searxBody = `{
	"results": [
		{"title": "First", "url": "https://example.org/a", "content": "snippet a", "engine": "duckduckgo", "score": 2.5},
		{"title": "No URL", "url": "", "content": "dropped"},
		{"title": "Second", "url": "https://example.org/b", "content": "snippet b", "engine": "brave", "score": 1.1},
		{"title": "Third", "url": "https://example.org/c"}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, pageCache cache.Cache) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(model.SearchConfig{
		BaseURL:    server.URL,
		MaxResults: 8,
		Timeout:    5 * time.Second,
	}, nil, pageCache, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	return client
}

func TestSearch_ParsesResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("Expected format=json, got %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "test query" {
			t.Errorf("Expected query passed through, got %q", got)
		}
		_, _ = fmt.Fprint(w, searxBody)
	}, nil)

	candidates, err := client.Search(context.Background(), "test query", 8)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates (empty URL dropped), got %d", len(candidates))
	}
	if candidates[0].URL != "https://example.org/a" || candidates[0].Snippet != "snippet a" {
		t.Errorf("Unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].Engine != "brave" {
		t.Errorf("Expected engine carried through, got %q", candidates[1].Engine)
	}
}

func TestSearch_LimitClamped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, searxBody)
	}, nil)

	candidates, err := client.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("Expected limit 2 respected, got %d", len(candidates))
	}

	// A limit beyond max_results falls back to the configured cap
	candidates, err = client.Search(context.Background(), "q2", 100)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(candidates) != 3 {
		t.Errorf("Expected all 3 under the configured cap, got %d", len(candidates))
	}
}

func TestSearch_CacheHitSkipsHTTP(t *testing.T) {
	var requests atomic.Int32
	pageCache := cache.NewMemoryCache(time.Minute, time.Minute)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = fmt.Fprint(w, searxBody)
	}, pageCache)

	first, err := client.Search(context.Background(), "cached query", 3)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	second, err := client.Search(context.Background(), "cached query", 3)
	if err != nil {
		t.Fatalf("Expected cached success, got %v", err)
	}
	if requests.Load() != 1 {
		t.Errorf("Expected 1 HTTP request, got %d", requests.Load())
	}
	if len(first) != len(second) {
		t.Errorf("Cached result differs: %d vs %d", len(first), len(second))
	}
}

func TestSearch_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)

	_, err := client.Search(context.Background(), "q", 3)
	if err == nil {
		t.Fatal("Expected error for non-200 status")
	}
}

func TestSearch_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html>not json</html>")
	}, nil)

	_, err := client.Search(context.Background(), "q", 3)
	if err == nil {
		t.Fatal("Expected error for malformed response body")
	}
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(model.SearchConfig{}, nil, nil, nil)
	if err == nil {
		t.Fatal("Expected error when base URL is missing")
	}
}
