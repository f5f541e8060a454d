package indicator

import (
	"github.com/ppiankov/charta/internal/milestones"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/similarity"
)

// Matcher applies rules in file order; the first rule that fits wins
type Matcher struct {
	rules     []Rule
	priors    *milestones.Priors
	threshold float64
}

// NewMatcher creates a matcher. A threshold of zero or less falls back to
// model.DefaultSimilarityThreshold.
func NewMatcher(rules []Rule, priors *milestones.Priors, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = model.DefaultSimilarityThreshold
	}
	if priors == nil {
		priors = milestones.Default()
	}
	return &Matcher{
		rules:     rules,
		priors:    priors,
		threshold: threshold,
	}
}

// Rules returns the loaded rules
func (m *Matcher) Rules() []Rule {
	return m.rules
}

// Match returns the first rule whose position and strength conditions hold
// for the sentence
func (m *Matcher) Match(s *model.Sentence) (Rule, bool) {
	for _, r := range m.rules {
		if !m.positionAllows(r.Position, s) {
			continue
		}
		if m.phraseMatches(r, s.Text) {
			return r, true
		}
	}
	return Rule{}, false
}

func (m *Matcher) positionAllows(pos Position, s *model.Sentence) bool {
	inProtocol := float64(s.FirstWord) <= m.priors.AverageProtocolEnd
	inEschatocol := float64(s.InvLastWord) <= m.priors.InvAverageEschatocolStart

	switch pos {
	case PositionProtocol:
		return inProtocol
	case PositionEschatocol:
		return inEschatocol
	case PositionContext:
		return !inProtocol && !inEschatocol
	default:
		return true
	}
}

func (m *Matcher) phraseMatches(r Rule, text string) bool {
	switch r.Strength {
	case StrengthSubstring:
		return similarity.ContainsOrderedSubstring(r.Phrase, text)
	case StrengthSubset:
		return similarity.ContainsAllTokensUnordered(r.Phrase, text)
	default:
		return similarity.WindowedJaccard(r.Phrase, text) >= m.threshold
	}
}
