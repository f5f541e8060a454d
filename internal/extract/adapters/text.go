package adapters

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/charta/internal/model"
)

// TextAdapter is the fallback for plain transcriptions. The whole file is
// the tenor; plain text carries no metadata and is taken to be Latin.
type TextAdapter struct{}

// NewTextAdapter creates a new plain text adapter
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{}
}

// Name returns the adapter name
func (a *TextAdapter) Name() string {
	return "text"
}

// CanHandle always returns true (fallback adapter)
func (a *TextAdapter) CanHandle(path string, contentType string) bool {
	return true
}

// Decode treats the contents as tenor text
func (a *TextAdapter) Decode(path string, data []byte) (*model.Document, error) {
	tenor := strings.TrimSpace(string(data))
	sentences, err := segmentTenor(tenor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &model.Document{
		ID:        documentID(path),
		Path:      path,
		Language:  "latin",
		Tenor:     tenor,
		Sentences: sentences,
	}, nil
}
