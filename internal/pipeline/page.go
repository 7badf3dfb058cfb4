package pipeline

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractVisibleText extracts visible text from an HTML document, skipping
// scripts, styles, and other non-content tags. Parse failures degrade to
// the raw input so a slightly malformed page is not lost.
func ExtractVisibleText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String())
}

// TruncateText bounds page text before it is embedded in an extraction
// prompt, cutting at a sentence boundary where possible.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	if idx := strings.LastIndexAny(cut, ".!?"); idx > maxChars/2 {
		return cut[:idx+1]
	}
	return cut
}
