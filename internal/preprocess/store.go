package preprocess

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/cache"
	"github.com/ppiankov/charta/internal/logging"
)

const lemmaNamespace = "lemma"

// LemmaStore remembers the chosen lemma of every word form it has seen, in
// memory and in the shared cache, so forms are lemmatized once
type LemmaStore struct {
	mu     sync.RWMutex
	known  map[string]string
	cache  cache.Cache
	ttl    time.Duration
	source Lemmatizer
	logger *zap.Logger
}

// NewLemmaStore creates a store backed by c; a nil cache keeps lemmas in
// memory only
func NewLemmaStore(source Lemmatizer, c cache.Cache, ttl time.Duration, logger *zap.Logger) *LemmaStore {
	if source == nil {
		source = Identity{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &LemmaStore{
		known:  make(map[string]string),
		cache:  c,
		ttl:    ttl,
		source: source,
		logger: logging.OrNop(logger),
	}
}

// Lookup returns the known lemma of a form
func (s *LemmaStore) Lookup(form string) (string, bool) {
	s.mu.RLock()
	lemma, ok := s.known[form]
	s.mu.RUnlock()
	if ok {
		return lemma, true
	}

	if cache.GetJSON(s.cache, cache.Key(lemmaNamespace, s.source.Name(), form), &lemma) {
		s.remember(form, lemma)
		return lemma, true
	}
	return "", false
}

// Resolve makes sure every form has a lemma, asking the lemmatizer only for
// unknown forms. It returns the number of forms that were lemmatized.
func (s *LemmaStore) Resolve(ctx context.Context, forms []string) (int, error) {
	unknown := make(map[string]struct{})
	for _, f := range forms {
		if _, ok := s.Lookup(f); !ok {
			unknown[f] = struct{}{}
		}
	}
	if len(unknown) == 0 {
		return 0, nil
	}

	pending := make([]string, 0, len(unknown))
	for f := range unknown {
		pending = append(pending, f)
	}
	sort.Strings(pending)

	candidates, err := s.source.Lemmatize(ctx, pending)
	if err != nil {
		return 0, err
	}
	for _, f := range pending {
		lemma := BestLemma(f, candidates[f])
		s.remember(f, lemma)
		if err := cache.SetJSON(s.cache, cache.Key(lemmaNamespace, s.source.Name(), f), lemma, s.ttl); err != nil {
			s.logger.Warn("caching lemma failed", zap.String("form", f), zap.Error(err))
		}
	}
	return len(pending), nil
}

// Len returns the number of forms known in memory
func (s *LemmaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.known)
}

func (s *LemmaStore) remember(form, lemma string) {
	s.mu.Lock()
	s.known[form] = lemma
	s.mu.Unlock()
}
