package preprocess

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/charta/internal/cache"
	"github.com/ppiankov/charta/internal/model"
)

func init() {
	httpRetryBase = time.Millisecond
}

func TestBestLemma(t *testing.T) {
	assert.Equal(t, "nomen", BestLemma("nomine", []string{"nomen"}))
	assert.Equal(t, "b", BestLemma("x", []string{"a", "b", "b", "a"}))
	assert.Equal(t, "a", BestLemma("x", []string{"a", "b"}))
	assert.Equal(t, "x", BestLemma("x", nil))
}

func TestBatches(t *testing.T) {
	got := batches([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, got)
	assert.Empty(t, batches(nil, 2))
}

var lemlatOutput = strings.Join([]string{
	"LEMLAT 3 header",
	lemlatWordform + " Nomine",
	lemlatLemma,
	"nomen  N3 n",
	lemlatLemma,
	"nomen  N3 n",
	lemlatWordform + " xyz",
	lemlatWordform + " sancte",
	lemlatLemma,
	"sancte ADV",
	lemlatLemma,
	"sanctus ADJ",
}, "\n")

func TestParseLemlatOutput(t *testing.T) {
	got, err := ParseLemlatOutput(strings.NewReader(lemlatOutput))
	require.NoError(t, err)

	assert.Equal(t, []string{"nomen", "nomen"}, got["nomine"])
	assert.Equal(t, []string{"xyz"}, got["xyz"])
	assert.Equal(t, []string{"sancte", "sanctus"}, got["sancte"])
}

func TestLemlat_FailureFallsBackToForms(t *testing.T) {
	l := NewLemlat("/nonexistent/lemlat", t.TempDir(), 2, time.Second, zap.NewNop())

	got, err := l.Lemmatize(context.Background(), []string{"dei", "gratia", "rex"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"dei":    {"dei"},
		"gratia": {"gratia"},
		"rex":    {"rex"},
	}, got)
}

func TestLemlat_CancelledContext(t *testing.T) {
	l := NewLemlat("/nonexistent/lemlat", "", 0, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Lemmatize(ctx, []string{"dei"})
	assert.ErrorIs(t, err, context.Canceled)
}

func lemmaServer(t *testing.T, failures int32, lemmas map[string][]string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req lemmaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := lemmaResponse{Lemmas: map[string][]string{}}
		for _, f := range req.Forms {
			if l, ok := lemmas[f]; ok {
				resp.Lemmas[f] = l
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestHTTPLemmatizer_Lemmatize(t *testing.T) {
	server, calls := lemmaServer(t, 0, map[string][]string{"nomine": {"nomen"}})
	h := NewHTTPLemmatizer(server.URL, server.Client(), nil, 1, "charta-test", nil)

	got, err := h.Lemmatize(context.Background(), []string{"nomine", "xyz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nomen"}, got["nomine"])
	assert.Equal(t, []string{"xyz"}, got["xyz"])
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "one request per batch")
}

func TestHTTPLemmatizer_RetriesServerErrors(t *testing.T) {
	server, calls := lemmaServer(t, 2, map[string][]string{"dei": {"deus"}})
	h := NewHTTPLemmatizer(server.URL, server.Client(), nil, 0, "", nil)

	got, err := h.Lemmatize(context.Background(), []string{"dei"})
	require.NoError(t, err)
	assert.Equal(t, []string{"deus"}, got["dei"])
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestHTTPLemmatizer_GivesUpWithIdentity(t *testing.T) {
	server, calls := lemmaServer(t, 100, nil)
	h := NewHTTPLemmatizer(server.URL, server.Client(), nil, 0, "", nil)

	got, err := h.Lemmatize(context.Background(), []string{"dei"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dei"}, got["dei"])
	assert.Equal(t, int32(httpMaxRetries), atomic.LoadInt32(calls))
}

func TestHTTPLemmatizer_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	h := NewHTTPLemmatizer(server.URL, server.Client(), nil, 0, "", nil)
	_, err := h.Lemmatize(context.Background(), []string{"dei"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// countingLemmatizer records the forms it was asked for
type countingLemmatizer struct {
	asked []string
}

func (c *countingLemmatizer) Name() string { return "counting" }

func (c *countingLemmatizer) Lemmatize(_ context.Context, forms []string) (map[string][]string, error) {
	c.asked = append(c.asked, forms...)
	out := make(map[string][]string, len(forms))
	for _, f := range forms {
		out[f] = []string{strings.ToUpper(f)}
	}
	return out, nil
}

func TestLemmaStore_LemmatizesOnce(t *testing.T) {
	source := &countingLemmatizer{}
	store := NewLemmaStore(source, cache.NewMemoryCache(time.Minute, time.Minute), time.Hour, zap.NewNop())

	n, err := store.Resolve(context.Background(), []string{"rex", "dei", "rex"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Resolve(context.Background(), []string{"rex", "gratia"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []string{"dei", "rex", "gratia"}, source.asked)

	lemma, ok := store.Lookup("gratia")
	require.True(t, ok)
	assert.Equal(t, "GRATIA", lemma)
}

func TestLemmaStore_ReadsSharedCache(t *testing.T) {
	shared := cache.NewMemoryCache(time.Minute, time.Minute)
	first := NewLemmaStore(&countingLemmatizer{}, shared, time.Hour, nil)
	_, err := first.Resolve(context.Background(), []string{"dei"})
	require.NoError(t, err)

	source := &countingLemmatizer{}
	second := NewLemmaStore(source, shared, time.Hour, nil)
	n, err := second.Resolve(context.Background(), []string{"dei"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, source.asked)
}

// failingCache accepts no writes
type failingCache struct{ cache.Nop }

func (failingCache) Set(string, []byte, time.Duration) error {
	return errors.New("disk full")
}

func TestLemmaStore_LogsCacheWriteFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := NewLemmaStore(&countingLemmatizer{}, failingCache{}, time.Hour, zap.New(core))

	n, err := store.Resolve(context.Background(), []string{"rex"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lemma, ok := store.Lookup("rex")
	require.True(t, ok)
	assert.Equal(t, "REX", lemma)

	entries := logs.FilterMessage("caching lemma failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rex", entries[0].ContextMap()["form"])
}

func TestPreprocessor_Pipeline(t *testing.T) {
	p := New(nil, NewLemmaStore(&countingLemmatizer{}, nil, 0, nil), zap.NewNop())

	s1 := model.NewSentence(0, "In nomine domini.")
	s2 := model.NewSentence(1, "Amen")
	sentences := []*model.Sentence{s1, s2}

	p.PrepareAll(sentences)
	assert.Equal(t, "in nomine domini", s1.Text)
	assert.Equal(t, []string{"in", "nomine", "domini"}, s1.Tokens)
	assert.Equal(t, "In nomine domini.", s1.Raw)

	_, err := p.Lemmatize(context.Background(), sentences)
	require.NoError(t, err)
	assert.Equal(t, []string{"IN", "NOMINE", "DOMINI"}, s1.Lemmas)

	p.Bigrams(sentences)
	assert.Equal(t, []string{"IN NOMINE", "NOMINE DOMINI"}, s1.Bigrams)
	assert.Equal(t, []string{"AMEN"}, s2.Bigrams)
}

func TestPreprocessor_CleanAppliesPairsInOrder(t *testing.T) {
	parens, err := ParsePairs(strings.NewReader(`\(\?\),`+"\n"), nil)
	require.NoError(t, err)
	abbrevs, err := ParsePairs(strings.NewReader(`\bimp\.,imperator`+"\n"), nil)
	require.NoError(t, err)

	p := New(&Resources{Parentheses: parens, Abbreviations: abbrevs}, nil, nil)
	assert.Equal(t, "otto romanorum imperator", p.Clean("otto (?) romanorum imp."))
}

func TestBigrams(t *testing.T) {
	assert.Equal(t, []string{"a b", "b c"}, Bigrams([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"a"}, Bigrams([]string{"a"}))
	assert.Empty(t, Bigrams(nil))
}
