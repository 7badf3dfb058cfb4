package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veridict/veridict/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
	}
}

func TestFetch_ExtractsVisibleText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><head><script>var x=1;</script></head><body><p>Visible content</p></body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, nil, nil, nil)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(result.Text, "Visible content") {
		t.Errorf("Expected visible text extracted, got %q", result.Text)
	}
	if strings.Contains(result.Text, "var x=1") {
		t.Errorf("Script content must not appear in extracted text: %q", result.Text)
	}
}

func TestFetch_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "recovered")
	}))
	defer server.Close()

	// Override sleep for fast tests
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(testHTTPConfig(), nil, nil, nil, nil)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("Unexpected text: %q", result.Text)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_PermanentFailureNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(testHTTPConfig(), nil, nil, nil, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if attempts.Load() != 1 {
		t.Errorf("404 is not retryable; expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetch_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(testHTTPConfig(), nil, nil, nil, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != int32(fetchMaxAttempts) {
		t.Errorf("Expected %d attempts, got %d", fetchMaxAttempts, attempts.Load())
	}
}

func TestFetch_NonTextContentRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, nil, nil, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Non-text content must never become evidence text")
	}
	if !strings.Contains(err.Error(), "non-text content") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestFetch_BodySizeCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for i := 0; i < 1000; i++ {
			_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
		}
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 500
	fetcher := NewFetcher(cfg, nil, nil, nil, nil)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected truncated fetch to succeed, got %v", err)
	}
	if len(result.Text) > 500 {
		t.Errorf("Expected body capped at 500 bytes, got %d", len(result.Text))
	}
}
