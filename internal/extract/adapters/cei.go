package adapters

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// CEIAdapter decodes charters encoded in CEI XML. The full text is read from
// <cei:tenor>, the language from <cei:lang_MOM>. Annotated training charters
// wrap the text of each part in label elements nested in paragraph elements:
// <cei:tenor><cei:protocol><cei:invocatio>…</cei:invocatio>…
type CEIAdapter struct{}

// NewCEIAdapter creates a new CEI adapter
func NewCEIAdapter() *CEIAdapter {
	return &CEIAdapter{}
}

// Name returns the adapter name
func (a *CEIAdapter) Name() string {
	return "cei"
}

// CanHandle accepts .xml files and XML content types
func (a *CEIAdapter) CanHandle(path string, contentType string) bool {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "xml")
}

type ceiPart struct {
	label label.Label
	text  strings.Builder
}

// Decode reads the charter with a token stream; element names are matched
// without namespace prefix
func (a *CEIAdapter) Decode(path string, data []byte) (*model.Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var (
		stack    []string
		tenor    strings.Builder
		language strings.Builder
		idno     strings.Builder
		parts    []*ceiPart
		current  *ceiPart
		// depth of the tenor element in stack, -1 outside
		tenorDepth = -1
		seenTenor  bool
		seenIdno   bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			stack = append(stack, name)
			depth := len(stack) - 1

			switch {
			case name == "tenor" && !seenTenor:
				tenorDepth = depth
				seenTenor = true
			case tenorDepth >= 0 && depth == tenorDepth+2:
				par, perr := label.ParseParagraph(stack[tenorDepth+1])
				l, lerr := label.Parse(name)
				if perr == nil && lerr == nil && l.Paragraph() == par {
					current = &ceiPart{label: l}
					parts = append(parts, current)
				}
			}

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			depth := len(stack) - 1
			switch {
			case depth == tenorDepth:
				tenorDepth = -1
			case tenorDepth >= 0 && depth == tenorDepth+2:
				current = nil
			case stack[depth] == "idno":
				seenIdno = idno.Len() > 0
			}
			stack = stack[:depth]

		case xml.CharData:
			text := string(t)
			switch {
			case tenorDepth >= 0:
				tenor.WriteString(text)
				if current != nil {
					current.text.WriteString(text)
				}
			case len(stack) > 0 && stack[len(stack)-1] == "lang_MOM":
				language.WriteString(text)
			case len(stack) > 0 && stack[len(stack)-1] == "idno" && !seenIdno:
				idno.WriteString(text)
			}
		}
	}

	doc := &model.Document{
		ID:       strings.TrimSpace(idno.String()),
		Path:     path,
		Language: strings.TrimSpace(language.String()),
		Tenor:    strings.TrimSpace(tenor.String()),
	}
	if doc.ID == "" {
		doc.ID = documentID(path)
	}

	if len(parts) == 0 {
		sentences, err := segmentTenor(doc.Tenor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		doc.Sentences = sentences
		return doc, nil
	}
	for _, p := range parts {
		sentences, err := segmentLabeled(p.text.String(), p.label, len(doc.Sentences))
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", filepath.Base(path), p.label, err)
		}
		doc.Sentences = append(doc.Sentences, sentences...)
	}
	return doc, nil
}
