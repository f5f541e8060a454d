package model

import (
	"fmt"

	"github.com/ppiankov/charta/internal/label"
)

// Source records which pass assigned a sentence's label
type Source string

const (
	SourceNone      Source = ""
	SourceIndicator Source = "indicator" // Pass C: indicator rule matched
	SourceGapFill   Source = "gap_fill"  // Pass D: gap between identical labels
	SourceDefault   Source = "default"   // Pass E: order-constrained argmax
)

// Truth is the manual annotation of a training sentence
type Truth struct {
	Label     label.Label     `json:"label"`
	Paragraph label.Paragraph `json:"paragraph"`
}

// Sentence is one sentence of a diploma together with its classification state.
// Training and classification sentences share this type; Truth is nil for
// sentences without manual annotation.
type Sentence struct {
	Index int    `json:"index"`
	Raw   string `json:"raw"`  // Text as read from the corpus
	Text  string `json:"text"` // Normalized text, rewritten by preprocessing

	Tokens  []string  `json:"-"`
	Lemmas  []string  `json:"-"`
	Bigrams []string  `json:"-"`
	Vector  []float64 `json:"-"`

	// Word positions, 1-based; inverted positions count from the document end
	FirstWord     int     `json:"first_word"`
	LastWord      int     `json:"last_word"`
	InvFirstWord  int     `json:"inv_first_word"`
	InvLastWord   int     `json:"inv_last_word"`
	RelativeIndex float64 `json:"relative_index"`

	// Probs is an unnormalized score product aligned to label order
	Probs     []float64       `json:"probs"`
	Label     label.Label     `json:"label"`
	Source    Source          `json:"source,omitempty"`
	Rule      string          `json:"rule,omitempty"` // Indicator phrase for SourceIndicator
	Paragraph label.Paragraph `json:"paragraph"`

	Truth *Truth `json:"truth,omitempty"`
}

// NewSentence creates an unlabeled sentence with a neutral probability vector
func NewSentence(index int, raw string) *Sentence {
	return &Sentence{
		Index:     index,
		Raw:       raw,
		Text:      raw,
		Probs:     NeutralVector(),
		Label:     label.None,
		Paragraph: label.NoParagraph,
	}
}

// NewTrainingSentence creates a sentence carrying a manual annotation
func NewTrainingSentence(index int, raw string, truth label.Label) *Sentence {
	s := NewSentence(index, raw)
	s.Truth = &Truth{Label: truth, Paragraph: truth.Paragraph()}
	return s
}

// NeutralVector returns an all-ones distribution, the identity for
// multiplicative updates
func NeutralVector() []float64 {
	v := make([]float64, label.Count)
	for i := range v {
		v[i] = 1.0
	}
	return v
}

// HasLabel reports whether some pass has assigned a label
func (s *Sentence) HasLabel() bool {
	return s.Label.Valid()
}

// Assign sets the label and records the assigning pass
func (s *Sentence) Assign(l label.Label, src Source) {
	s.Label = l
	s.Source = src
}

// UpdateProbabilities multiplies dist element-wise into the probability vector
func (s *Sentence) UpdateProbabilities(dist []float64) error {
	if len(dist) != label.Count {
		return fmt.Errorf("distribution has %d entries, want %d", len(dist), label.Count)
	}
	if len(s.Probs) != label.Count {
		s.Probs = NeutralVector()
	}
	for i, p := range dist {
		s.Probs[i] *= p
	}
	return nil
}

// WordCount is the number of tokens used for word positions
func (s *Sentence) WordCount() int {
	return len(s.Tokens)
}

// Features returns the bigrams or lemmas used for vectorization
func (s *Sentence) Features(useBigrams bool) []string {
	if useBigrams {
		return s.Bigrams
	}
	return s.Lemmas
}

// Reset clears every classification result so the sentence can be
// preprocessed and classified again. Raw text and truth are kept.
func (s *Sentence) Reset() {
	s.Text = s.Raw
	s.Tokens = nil
	s.Lemmas = nil
	s.Bigrams = nil
	s.ClearClassification()
}

// ClearClassification drops vector, probabilities and labels but keeps the
// preprocessed text, tokens and lemmas
func (s *Sentence) ClearClassification() {
	s.Vector = nil
	s.Probs = NeutralVector()
	s.Label = label.None
	s.Source = SourceNone
	s.Rule = ""
	s.Paragraph = label.NoParagraph
}

// Clone returns a deep copy of the sentence
func (s *Sentence) Clone() *Sentence {
	c := *s
	c.Tokens = append([]string(nil), s.Tokens...)
	c.Lemmas = append([]string(nil), s.Lemmas...)
	c.Bigrams = append([]string(nil), s.Bigrams...)
	c.Vector = append([]float64(nil), s.Vector...)
	c.Probs = append([]float64(nil), s.Probs...)
	if s.Truth != nil {
		t := *s.Truth
		c.Truth = &t
	}
	return &c
}
