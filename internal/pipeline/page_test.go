package pipeline

import (
	"strings"
	"testing"
)

func TestExtractVisibleText_SkipsNonContent(t *testing.T) {
	input := `<html><head>
		<script>alert("hi")</script>
		<style>body { color: red; }</style>
	</head><body>
		<nav>Home About</nav>
		<p>First paragraph.</p>
		<noscript>Enable JS</noscript>
		<p>Second paragraph.</p>
		<footer>Copyright 2026</footer>
	</body></html>`

	text := ExtractVisibleText(input)

	if !strings.Contains(text, "First paragraph.") || !strings.Contains(text, "Second paragraph.") {
		t.Errorf("Expected body text preserved, got %q", text)
	}
	for _, hidden := range []string{"alert", "color: red", "Home About", "Enable JS", "Copyright"} {
		if strings.Contains(text, hidden) {
			t.Errorf("Expected %q to be stripped, got %q", hidden, text)
		}
	}
}

func TestExtractVisibleText_TrimsPerNode(t *testing.T) {
	text := ExtractVisibleText("<p>  spaced  </p><p>  words  </p>")
	if text != "spaced words" {
		t.Errorf("Expected per-node trimming with single separators, got %q", text)
	}
}

func TestExtractVisibleText_PlainTextPassthrough(t *testing.T) {
	// html.Parse accepts bare text; the walker should return it intact.
	text := ExtractVisibleText("just some plain text")
	if text != "just some plain text" {
		t.Errorf("Expected plain text preserved, got %q", text)
	}
}

func TestTruncateText(t *testing.T) {
	long := "First sentence here. Second sentence follows. Third one is cut off mid"

	truncated := TruncateText(long, 50)
	if truncated != "First sentence here. Second sentence follows." {
		t.Errorf("Expected cut at sentence boundary, got %q", truncated)
	}

	if got := TruncateText("short", 50); got != "short" {
		t.Errorf("Text under the limit must be unchanged, got %q", got)
	}

	if got := TruncateText(long, 0); got != long {
		t.Errorf("Zero limit disables truncation, got %q", got)
	}

	// No sentence boundary in the second half: hard cut at the limit.
	noBoundary := strings.Repeat("x", 100)
	if got := TruncateText(noBoundary, 40); len(got) != 40 {
		t.Errorf("Expected hard cut at 40 chars, got %d", len(got))
	}
}
