package score

import (
	"context"
	"fmt"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// Scorer produces a per-label probability distribution for a sentence.
// The returned slice is aligned to label order and has label.Count entries.
type Scorer interface {
	Name() string
	Score(ctx context.Context, s *model.Sentence) ([]float64, error)
}

// Neutral returns all ones for every sentence. It stands in when no trained
// scorer is available.
type Neutral struct{}

func (Neutral) Name() string { return "neutral" }

func (Neutral) Score(_ context.Context, _ *model.Sentence) ([]float64, error) {
	return model.NeutralVector(), nil
}

// Product multiplies the distributions of several scorers
type Product struct {
	scorers []Scorer
}

// NewProduct combines scorers; nil entries are skipped
func NewProduct(scorers ...Scorer) *Product {
	p := &Product{}
	for _, s := range scorers {
		if s != nil {
			p.scorers = append(p.scorers, s)
		}
	}
	return p
}

func (p *Product) Name() string {
	name := "product("
	for i, s := range p.scorers {
		if i > 0 {
			name += ","
		}
		name += s.Name()
	}
	return name + ")"
}

// Score fails as soon as one scorer fails
func (p *Product) Score(ctx context.Context, s *model.Sentence) ([]float64, error) {
	dist := model.NeutralVector()
	for _, scorer := range p.scorers {
		d, err := scorer.Score(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", scorer.Name(), err)
		}
		if err := checkDistribution(d); err != nil {
			return nil, fmt.Errorf("%s: %w", scorer.Name(), err)
		}
		for i := range dist {
			dist[i] *= d[i]
		}
	}
	return dist, nil
}

func checkDistribution(d []float64) error {
	if len(d) != label.Count {
		return fmt.Errorf("distribution has %d entries, want %d", len(d), label.Count)
	}
	return nil
}
