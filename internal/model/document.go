package model

// Document is a diploma: an ordered list of sentences in reading order
type Document struct {
	ID         string      `json:"id"`
	Path       string      `json:"path,omitempty"`
	Language   string      `json:"language"`
	Tenor      string      `json:"-"`
	Sentences  []*Sentence `json:"sentences"`
	TotalWords int         `json:"total_words"`
}

// AssignPositions renumbers the sentences and sets their word positions from
// the token counts. Must run after tokenization. Positions are 1-based;
// with w words before a sentence and w' words up to its end,
// InvFirstWord = total - w + 1 and InvLastWord = total - w', so the last
// sentence ends at InvLastWord 0.
func (d *Document) AssignPositions() {
	total := 0
	for _, s := range d.Sentences {
		total += s.WordCount()
	}
	d.TotalWords = total

	wc := 0
	for i, s := range d.Sentences {
		s.Index = i
		s.FirstWord = wc + 1
		s.InvFirstWord = total - wc + 1
		wc += s.WordCount()
		s.LastWord = wc
		s.InvLastWord = total - wc
		if total > 0 {
			s.RelativeIndex = float64(wc) / float64(total)
		}
	}
}

// IsTraining reports whether every sentence carries a manual annotation
func (d *Document) IsTraining() bool {
	if len(d.Sentences) == 0 {
		return false
	}
	for _, s := range d.Sentences {
		if s.Truth == nil {
			return false
		}
	}
	return true
}

// Reset clears classification state on all sentences
func (d *Document) Reset() {
	for _, s := range d.Sentences {
		s.Reset()
	}
}

// ClearClassification clears labels and probabilities on all sentences
func (d *Document) ClearClassification() {
	for _, s := range d.Sentences {
		s.ClearClassification()
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	c := *d
	c.Sentences = make([]*Sentence, len(d.Sentences))
	for i, s := range d.Sentences {
		c.Sentences[i] = s.Clone()
	}
	return &c
}

// Flatten pools the sentences of all documents, preserving order
func Flatten(docs []*Document) []*Sentence {
	n := 0
	for _, d := range docs {
		n += len(d.Sentences)
	}
	out := make([]*Sentence, 0, n)
	for _, d := range docs {
		out = append(out, d.Sentences...)
	}
	return out
}

// CloneAll deep-copies a slice of documents
func CloneAll(docs []*Document) []*Document {
	out := make([]*Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
