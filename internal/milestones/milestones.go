// Package milestones derives positional priors from annotated diplomas: where
// the protocol usually ends, where the eschatocol usually starts, and how much
// of each paragraph a label typically covers.
package milestones

import (
	"math"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// Priors is immutable once built and safe for concurrent reads
type Priors struct {
	// AverageProtocolEnd is the mean last-word index of the leading protocol run
	AverageProtocolEnd float64 `json:"average_protocol_end"`
	// InvAverageEschatocolStart is the mean inverted first-word index of the
	// trailing eschatocol run
	InvAverageEschatocolStart float64 `json:"inv_average_eschatocol_start"`

	Overall    []float64 `json:"overall"`
	Protocol   []float64 `json:"protocol"`
	Context    []float64 `json:"context"`
	Eschatocol []float64 `json:"eschatocol"`

	Documents int `json:"documents"`
	Tolerance int `json:"tolerance"`
}

// Default returns the placeholder priors: both boundaries infinite, so every
// sentence counts as context, and every probability neutral. It must not be
// used to produce classification output.
func Default() *Priors {
	return &Priors{
		AverageProtocolEnd:        math.Inf(1),
		InvAverageEschatocolStart: math.Inf(1),
		Overall:                   model.NeutralVector(),
		Protocol:                  model.NeutralVector(),
		Context:                   model.NeutralVector(),
		Eschatocol:                model.NeutralVector(),
	}
}

// IsDegenerate reports whether the priors were built without training data
func (p *Priors) IsDegenerate() bool {
	return p.Documents == 0
}

// ForParagraph returns the distribution for a paragraph group
func (p *Priors) ForParagraph(par label.Paragraph) []float64 {
	switch par {
	case label.Protocol:
		return p.Protocol
	case label.Eschatocol:
		return p.Eschatocol
	case label.Context:
		return p.Context
	default:
		return p.Overall
	}
}

// Compute builds priors from training documents. Sentences must carry
// ground truth and tokens. A negative tolerance is treated as zero.
func Compute(docs []*model.Document, tolerance int) *Priors {
	training := make([]*model.Document, 0, len(docs))
	for _, d := range docs {
		if d.IsTraining() {
			training = append(training, d)
		}
	}
	if len(training) == 0 {
		return Default()
	}
	if tolerance < 0 {
		tolerance = 0
	}

	p := &Priors{
		Documents: len(training),
		Tolerance: tolerance,
	}
	p.AverageProtocolEnd, p.InvAverageEschatocolStart = averageBoundaries(training)
	p.Overall = overallDistribution(training)
	p.Protocol = paragraphDistribution(training, label.Protocol, tolerance, p.Overall)
	p.Context = paragraphDistribution(training, label.Context, tolerance, p.Overall)
	p.Eschatocol = paragraphDistribution(training, label.Eschatocol, tolerance, p.Overall)
	return p
}

func averageBoundaries(docs []*model.Document) (float64, float64) {
	var protocolEndSum, eschatocolStartSum float64

	for _, d := range docs {
		protocolEnd := 0
		for _, s := range d.Sentences {
			if s.Truth.Paragraph != label.Protocol {
				break
			}
			protocolEnd = s.LastWord
		}

		eschatocolStart := 0
		for i := len(d.Sentences) - 1; i >= 0; i-- {
			s := d.Sentences[i]
			if s.Truth.Paragraph != label.Eschatocol {
				break
			}
			eschatocolStart = s.InvFirstWord
		}

		protocolEndSum += float64(protocolEnd)
		eschatocolStartSum += float64(eschatocolStart)
	}

	n := float64(len(docs))
	return protocolEndSum / n, eschatocolStartSum / n
}

func overallDistribution(docs []*model.Document) []float64 {
	sums := make([]float64, label.Count)
	for _, d := range docs {
		total := 0
		for _, s := range d.Sentences {
			total += s.WordCount()
		}
		accumulateRuns(sums, d.Sentences, label.First, 0, total)
	}
	for i := range sums {
		sums[i] /= float64(len(docs))
	}
	return sums
}

func paragraphDistribution(docs []*model.Document, par label.Paragraph, tolerance int, overall []float64) []float64 {
	first, last := par.Range()
	tolMin := first - label.Label(tolerance)
	if tolMin < label.First {
		tolMin = label.First
	}
	tolMax := last + label.Label(tolerance)
	if tolMax > label.Last {
		tolMax = label.Last
	}

	sums := make([]float64, label.Count)
	for _, d := range docs {
		var inside, pre, post []*model.Sentence
		var insideWords, preWords, postWords int

		for _, s := range d.Sentences {
			l := s.Truth.Label
			switch {
			case s.Truth.Paragraph == par:
				inside = append(inside, s)
				insideWords += s.WordCount()
			case l >= tolMin && l < first:
				pre = append(pre, s)
				preWords += s.WordCount()
			case l > last && l <= tolMax:
				post = append(post, s)
				postWords += s.WordCount()
			}
		}

		withTolerance := insideWords + preWords + postWords
		accumulateRuns(sums, inside, first, 0, insideWords)
		if len(pre) > 0 {
			accumulateRuns(sums, pre, tolMin, 0, withTolerance)
		}
		if len(post) > 0 {
			accumulateRuns(sums, post, last+1, preWords+insideWords, withTolerance)
		}
	}

	dist := make([]float64, label.Count)
	for i := range dist {
		l := label.Label(i)
		if l >= tolMin && l <= tolMax {
			dist[i] = sums[i] / float64(len(docs))
		} else {
			dist[i] = overall[i]
		}
	}
	return dist
}

// accumulateRuns walks sentences in order and credits the relative word span
// of every maximal same-label run to that label. The walk starts in the run
// of startLabel at offset words out of total.
func accumulateRuns(sums []float64, sentences []*model.Sentence, startLabel label.Label, offset, total int) {
	if total <= 0 || len(sentences) == 0 {
		return
	}

	current := startLabel
	partStart := float64(offset) / float64(total)
	partEnd := partStart
	words := offset

	for _, s := range sentences {
		words += s.WordCount()
		position := float64(words) / float64(total)
		if s.Truth.Label == current {
			partEnd = position
			continue
		}
		sums[current] += partEnd - partStart
		partStart = partEnd
		partEnd = position
		current = s.Truth.Label
	}
	sums[current] += partEnd - partStart
}
