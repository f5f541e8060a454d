package adapters

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/charta/internal/model"
)

// HTMLAdapter reads charter pages as published by online archives. The
// tenor is the first element with class or id "tenor", else the body.
type HTMLAdapter struct {
	BaseAdapter
}

// NewHTMLAdapter creates a new HTML adapter
func NewHTMLAdapter() *HTMLAdapter {
	return &HTMLAdapter{}
}

// Name returns the adapter name
func (a *HTMLAdapter) Name() string {
	return "html"
}

// CanHandle checks the extension or the content type
func (a *HTMLAdapter) CanHandle(path string, contentType string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

// Decode extracts the tenor text and the page language
func (a *HTMLAdapter) Decode(path string, data []byte) (*model.Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	tenorNode := a.FindFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			(a.HasClass(n, "tenor") || a.GetAttribute(n, "id") == "tenor")
	})
	if tenorNode == nil {
		tenorNode = a.FindFirst(root, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "body"
		})
	}
	if tenorNode == nil {
		tenorNode = root
	}

	lang := ""
	if htmlNode := a.FindFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "html"
	}); htmlNode != nil {
		lang = languageName(a.GetAttribute(htmlNode, "lang"))
	}
	if l := a.GetAttribute(tenorNode, "lang"); l != "" {
		lang = languageName(l)
	}

	tenor := strings.TrimSpace(a.ExtractText(tenorNode))
	sentences, err := segmentTenor(tenor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &model.Document{
		ID:        documentID(path),
		Path:      path,
		Language:  lang,
		Tenor:     tenor,
		Sentences: sentences,
	}, nil
}

// languageName maps the ISO 639 code for Latin to its name
func languageName(code string) string {
	code = strings.TrimSpace(code)
	if strings.EqualFold(code, "la") || strings.HasPrefix(strings.ToLower(code), "la-") {
		return "latin"
	}
	return code
}
