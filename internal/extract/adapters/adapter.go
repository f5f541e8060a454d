// Package adapters decodes corpus files of different formats into
// documents.
package adapters

import (
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/charta/internal/extract"
	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// Adapter defines the interface for format-specific decoders
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can decode the given path/content type
	CanHandle(path string, contentType string) bool

	// Decode builds a document from the file contents
	Decode(path string, data []byte) (*model.Document, error)
}

// Registry manages format adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	// Register built-in adapters
	registry.Register(NewCEIAdapter())
	registry.Register(NewYAMLAdapter())
	registry.Register(NewHTMLAdapter())

	// Plain text is the fallback
	registry.generic = NewTextAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the first adapter for the path and content type
func (r *Registry) FindAdapter(path string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(path, contentType) {
			return adapter
		}
	}

	return r.generic
}

// documentID derives an identifier from a file name: "1189_V_18.cei.xml"
// becomes "1189_V_18"
func documentID(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// segmentTenor builds unlabeled sentences from tenor text
func segmentTenor(tenor string) ([]*model.Sentence, error) {
	plain, err := extract.StripMarkup(tenor)
	if err != nil {
		return nil, err
	}
	var sentences []*model.Sentence
	for i, text := range extract.Segment(plain) {
		sentences = append(sentences, model.NewSentence(i, text))
	}
	return sentences, nil
}

// segmentLabeled builds training sentences from the text of one annotated
// part, starting at index offset
func segmentLabeled(text string, l label.Label, offset int) ([]*model.Sentence, error) {
	plain, err := extract.StripMarkup(text)
	if err != nil {
		return nil, err
	}
	var sentences []*model.Sentence
	for i, s := range extract.Segment(plain) {
		sentences = append(sentences, model.NewTrainingSentence(offset+i, s, l))
	}
	return sentences, nil
}

// BaseAdapter provides node helpers for markup-based adapters
type BaseAdapter struct{}

// ExtractText extracts the text content of a node
func (b *BaseAdapter) ExtractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
			continue
		}
		buf.WriteString(b.ExtractText(c))
	}
	return buf.String()
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}
