package preprocess

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/model"
)

// Resources are the regex-pair files used to clean sentence text
type Resources struct {
	Parentheses   []RegexPair
	Resolvers     []RegexPair
	Abbreviations []RegexPair
	Capitals      []RegexPair
}

// LoadResources reads every configured pair file; unset paths are empty
func LoadResources(cfg model.ResourceConfig, logger *zap.Logger) (*Resources, error) {
	var r Resources
	files := []struct {
		name string
		path string
		dst  *[]RegexPair
	}{
		{"parentheses", cfg.Parentheses, &r.Parentheses},
		{"resolvers", cfg.Resolvers, &r.Resolvers},
		{"abbreviations", cfg.Abbreviations, &r.Abbreviations},
		{"capital_letters", cfg.CapitalLetters, &r.Capitals},
	}
	for _, f := range files {
		pairs, err := LoadPairs(f.path, logger)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.name, err)
		}
		*f.dst = pairs
	}
	return &r, nil
}

// Preprocessor prepares sentences for indicator matching and scoring
type Preprocessor struct {
	resources  Resources
	normalizer *Normalizer
	lemmas     *LemmaStore
	logger     *zap.Logger
}

// New creates a preprocessor. Nil resources mean no regex pairs; a nil
// store lemmatizes with Identity.
func New(resources *Resources, lemmas *LemmaStore, logger *zap.Logger) *Preprocessor {
	if resources == nil {
		resources = &Resources{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lemmas == nil {
		lemmas = NewLemmaStore(Identity{}, nil, 0, logger)
	}
	return &Preprocessor{
		resources:  *resources,
		normalizer: NewNormalizer(resources.Capitals),
		lemmas:     lemmas,
		logger:     logger.Named("preprocess"),
	}
}

// Normalizer returns the normalizer used for sentences. Indicator phrases
// go through it too, so both sides are compared in the same form.
func (p *Preprocessor) Normalizer() *Normalizer {
	return p.normalizer
}

// Clean removes editorial annotations, resolves abbreviations and
// normalizes the text
func (p *Preprocessor) Clean(text string) string {
	text = strings.TrimSpace(text)
	text = ApplyPairs(text, p.resources.Parentheses)
	text = ApplyPairs(text, p.resources.Resolvers)
	text = ApplyPairs(text, p.resources.Abbreviations)
	return p.normalizer.Normalize(text)
}

// Prepare rewrites the sentence text and splits it into tokens
func (p *Preprocessor) Prepare(s *model.Sentence) {
	s.Text = p.Clean(s.Raw)
	s.Tokens = Tokenize(s.Text)
}

// PrepareAll prepares every sentence
func (p *Preprocessor) PrepareAll(sentences []*model.Sentence) {
	for _, s := range sentences {
		p.Prepare(s)
	}
}

// Lemmatize sets the lemmas of every sentence. Unknown word forms are
// collected across all sentences and lemmatized in one call. Returns the
// number of newly lemmatized forms.
func (p *Preprocessor) Lemmatize(ctx context.Context, sentences []*model.Sentence) (int, error) {
	var forms []string
	for _, s := range sentences {
		forms = append(forms, s.Tokens...)
	}

	n, err := p.lemmas.Resolve(ctx, forms)
	if err != nil {
		return 0, fmt.Errorf("lemmatize: %w", err)
	}
	if n > 0 {
		p.logger.Info("lemmatized new word forms", zap.Int("forms", n), zap.Int("known", p.lemmas.Len()))
	} else {
		p.logger.Debug("all word forms known")
	}

	for _, s := range sentences {
		s.Lemmas = make([]string, len(s.Tokens))
		for i, tok := range s.Tokens {
			lemma, ok := p.lemmas.Lookup(tok)
			if !ok {
				lemma = tok
			}
			s.Lemmas[i] = lemma
		}
	}
	return n, nil
}

// Bigrams sets the bigrams of every sentence from its lemmas
func (p *Preprocessor) Bigrams(sentences []*model.Sentence) {
	for _, s := range sentences {
		s.Bigrams = Bigrams(s.Lemmas)
	}
}

// Tokenize splits text on whitespace, dropping empty tokens
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Bigrams joins adjacent lemmas with a space. A single lemma is its own
// bigram.
func Bigrams(lemmas []string) []string {
	if len(lemmas) < 2 {
		return append([]string(nil), lemmas...)
	}
	out := make([]string, 0, len(lemmas)-1)
	for i := 0; i+1 < len(lemmas); i++ {
		out = append(out, lemmas[i]+" "+lemmas[i+1])
	}
	return out
}
