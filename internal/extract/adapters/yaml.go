package adapters

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// CorpusFile is the YAML/JSON layout of one diploma
type CorpusFile struct {
	ID        string           `yaml:"id" json:"id"`
	Language  string           `yaml:"language" json:"language"`
	Tenor     string           `yaml:"tenor" json:"tenor"`
	Sentences []CorpusSentence `yaml:"sentences" json:"sentences"`
}

// CorpusSentence is a pre-segmented sentence, labeled in training files
type CorpusSentence struct {
	Text  string `yaml:"text" json:"text"`
	Label string `yaml:"label" json:"label,omitempty"`
}

// YAMLAdapter decodes .yaml, .yml and .json corpus files
type YAMLAdapter struct{}

// NewYAMLAdapter creates a new corpus file adapter
func NewYAMLAdapter() *YAMLAdapter {
	return &YAMLAdapter{}
}

// Name returns the adapter name
func (a *YAMLAdapter) Name() string {
	return "yaml"
}

// CanHandle checks the file extension or content type
func (a *YAMLAdapter) CanHandle(path string, contentType string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml") || strings.Contains(ct, "application/json")
}

// Decode decodes a corpus file. Without pre-segmented sentences the tenor
// is stripped of markup and segmented.
func (a *YAMLAdapter) Decode(path string, data []byte) (*model.Document, error) {
	var f CorpusFile
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	doc := &model.Document{
		ID:       f.ID,
		Path:     path,
		Language: strings.TrimSpace(f.Language),
		Tenor:    f.Tenor,
	}
	if doc.ID == "" {
		doc.ID = documentID(path)
	}

	if len(f.Sentences) == 0 {
		sentences, err := segmentTenor(f.Tenor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		doc.Sentences = sentences
		return doc, nil
	}

	texts := make([]string, 0, len(f.Sentences))
	for i, s := range f.Sentences {
		truth := label.None
		if err := truth.UnmarshalText([]byte(s.Label)); err != nil {
			return nil, fmt.Errorf("%s sentence %d: %w", filepath.Base(path), i, err)
		}
		if truth.Valid() {
			doc.Sentences = append(doc.Sentences, model.NewTrainingSentence(i, s.Text, truth))
		} else {
			doc.Sentences = append(doc.Sentences, model.NewSentence(i, s.Text))
		}
		texts = append(texts, s.Text)
	}
	if doc.Tenor == "" {
		doc.Tenor = strings.Join(texts, " ")
	}
	return doc, nil
}
