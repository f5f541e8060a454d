package score

import (
	"math"
	"sort"

	"github.com/ppiankov/charta/internal/model"
)

// Vectorizer maps lemma or bigram features onto the training vocabulary
type Vectorizer struct {
	kind       model.VectorType
	useBigrams bool

	vocabulary []string
	index      map[string]int
	docFreq    []int // Number of training sentences containing each type
	sentences  int
}

// NewVectorizer creates an unfitted vectorizer
func NewVectorizer(kind model.VectorType, useBigrams bool) *Vectorizer {
	if kind == "" {
		kind = model.VectorBinary
	}
	return &Vectorizer{
		kind:       kind,
		useBigrams: useBigrams,
		index:      make(map[string]int),
	}
}

// Fit builds the vocabulary and document frequencies from training sentences.
// The vocabulary is sorted so vectors are reproducible between runs.
func (v *Vectorizer) Fit(sentences []*model.Sentence) {
	freq := make(map[string]int)
	for _, s := range sentences {
		seen := make(map[string]struct{})
		for _, f := range s.Features(v.useBigrams) {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			freq[f]++
		}
	}

	v.vocabulary = make([]string, 0, len(freq))
	for f := range freq {
		v.vocabulary = append(v.vocabulary, f)
	}
	sort.Strings(v.vocabulary)

	v.index = make(map[string]int, len(v.vocabulary))
	v.docFreq = make([]int, len(v.vocabulary))
	for i, f := range v.vocabulary {
		v.index[f] = i
		v.docFreq[i] = freq[f]
	}
	v.sentences = len(sentences)
}

// Size returns the vocabulary size
func (v *Vectorizer) Size() int {
	return len(v.vocabulary)
}

// Vocabulary returns the fitted types in vector order
func (v *Vectorizer) Vocabulary() []string {
	return v.vocabulary
}

// Transform returns the feature vector of a sentence. Features outside the
// training vocabulary are ignored.
func (v *Vectorizer) Transform(s *model.Sentence) []float64 {
	counts := make([]float64, len(v.vocabulary))
	for _, f := range s.Features(v.useBigrams) {
		if i, ok := v.index[f]; ok {
			counts[i]++
		}
	}

	switch v.kind {
	case model.VectorCount:
		return counts
	case model.VectorTfIdf:
		return v.tfidf(counts)
	default:
		for i, c := range counts {
			if c > 0 {
				counts[i] = 1
			}
		}
		return counts
	}
}

// tfidf weighs counts by count/maxCount * log(N/df)
func (v *Vectorizer) tfidf(counts []float64) []float64 {
	highest := 0.0
	for _, c := range counts {
		if c > highest {
			highest = c
		}
	}

	out := make([]float64, len(counts))
	if highest == 0 {
		return out
	}
	for i, c := range counts {
		if c == 0 || v.docFreq[i] == 0 {
			continue
		}
		tf := c / highest
		idf := math.Log(float64(v.sentences) / float64(v.docFreq[i]))
		out[i] = tf * idf
	}
	return out
}

// Apply stores the vector on every sentence
func (v *Vectorizer) Apply(sentences []*model.Sentence) {
	for _, s := range sentences {
		s.Vector = v.Transform(s)
	}
}
