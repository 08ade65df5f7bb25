package classify

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// Everything outside word characters, whitespace and basic sentence
	// punctuation is stripped.
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?'"-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// Normalize cleans raw feed text for classification: markup is replaced by
// its visible text, characters outside the permitted set are removed, and
// whitespace runs collapse to single spaces. Normalize(Normalize(x)) ==
// Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := htmlText(raw)
	text = disallowedChars.ReplaceAllString(text, "")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// htmlText extracts the visible text of a markup fragment, separating text
// nodes with spaces so adjacent elements don't run together.
func htmlText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range doc.Nodes {
		walk(node)
	}
	return strings.Join(parts, " ")
}
