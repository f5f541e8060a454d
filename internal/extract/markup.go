// Package extract turns transcribed tenor text into sentence strings:
// inline markup is removed and the text is segmented at punctuation.
package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripMarkup removes inline tags from a transcription and returns its text
// content. Text nodes are joined without separators so words split by
// inline elements ("Hein<sup>r</sup>icus") stay whole. Entities are decoded.
func StripMarkup(text string) (string, error) {
	if !strings.ContainsAny(text, "<&") {
		return text, nil
	}

	nodes, err := html.ParseFragment(strings.NewReader(text), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return "", fmt.Errorf("strip markup: %w", err)
	}

	var buf strings.Builder
	for _, n := range nodes {
		extractText(n, &buf)
	}
	return buf.String(), nil
}

// extractText appends text nodes, skipping scripts, styles and comments
func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}

	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
}
