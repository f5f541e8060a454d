package score

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// ErrNotTrained is returned when scoring with an untrained model
var ErrNotTrained = errors.New("naive bayes model is not trained")

// NaiveBayes is a multinomial Naive Bayes classifier with Laplace smoothing
// over word weights and class priors
type NaiveBayes struct {
	vectorizer *Vectorizer

	logPrior []float64   // [label]
	logProb  [][]float64 // [label][type]
	trained  bool
}

// NewNaiveBayes creates an untrained classifier
func NewNaiveBayes(kind model.VectorType, useBigrams bool) *NaiveBayes {
	return &NaiveBayes{vectorizer: NewVectorizer(kind, useBigrams)}
}

func (nb *NaiveBayes) Name() string { return "naive_bayes" }

// Vectorizer exposes the fitted vectorizer
func (nb *NaiveBayes) Vectorizer() *Vectorizer {
	return nb.vectorizer
}

// Train fits the vocabulary and the class statistics. Sentences without
// ground truth are ignored.
func (nb *NaiveBayes) Train(sentences []*model.Sentence) error {
	training := make([]*model.Sentence, 0, len(sentences))
	for _, s := range sentences {
		if s.Truth != nil && s.Truth.Label.Valid() {
			training = append(training, s)
		}
	}
	if len(training) == 0 {
		return fmt.Errorf("no annotated sentences to train on")
	}

	nb.vectorizer.Fit(training)
	vocab := nb.vectorizer.Size()

	classCount := make([]float64, label.Count)
	weights := make([][]float64, label.Count)
	totals := make([]float64, label.Count)
	for c := range weights {
		weights[c] = make([]float64, vocab)
	}

	for _, s := range training {
		c := s.Truth.Label
		classCount[c]++
		vec := nb.vectorizer.Transform(s)
		for i, w := range vec {
			weights[c][i] += w
			totals[c] += w
		}
	}

	n := float64(len(training))
	nb.logPrior = make([]float64, label.Count)
	nb.logProb = make([][]float64, label.Count)
	for c := 0; c < label.Count; c++ {
		nb.logPrior[c] = math.Log((classCount[c] + 1) / (n + float64(label.Count)))
		nb.logProb[c] = make([]float64, vocab)
		denom := totals[c] + float64(vocab)
		for i := range weights[c] {
			nb.logProb[c][i] = math.Log((weights[c][i] + 1) / denom)
		}
	}
	nb.trained = true
	return nil
}

// Score returns the posterior distribution over labels. A stored vector of
// the right size is reused; otherwise the sentence is vectorized on the fly.
func (nb *NaiveBayes) Score(ctx context.Context, s *model.Sentence) ([]float64, error) {
	if !nb.trained {
		return nil, ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := s.Vector
	if len(vec) != nb.vectorizer.Size() {
		vec = nb.vectorizer.Transform(s)
	}

	logDist := make([]float64, label.Count)
	highest := math.Inf(-1)
	for c := range logDist {
		sum := nb.logPrior[c]
		for i, w := range vec {
			if w != 0 {
				sum += w * nb.logProb[c][i]
			}
		}
		logDist[c] = sum
		if sum > highest {
			highest = sum
		}
	}

	dist := make([]float64, label.Count)
	total := 0.0
	for c, l := range logDist {
		dist[c] = math.Exp(l - highest)
		total += dist[c]
	}
	for c := range dist {
		dist[c] /= total
	}
	return dist, nil
}
