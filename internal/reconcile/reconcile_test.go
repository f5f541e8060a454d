package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/charta/internal/indicator"
	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/milestones"
	"github.com/ppiankov/charta/internal/model"
)

// newDoc builds a document from normalized texts; a label.None entry leaves
// the sentence unlabeled
func newDoc(texts []string, labels []label.Label) *model.Document {
	d := &model.Document{ID: "doc"}
	for i, text := range texts {
		s := model.NewSentence(i, text)
		s.Tokens = strings.Fields(text)
		if labels != nil && labels[i] != label.None {
			s.Assign(labels[i], model.SourceIndicator)
		}
		d.Sentences = append(d.Sentences, s)
	}
	d.AssignPositions()
	return d
}

func labelsOf(d *model.Document) []label.Label {
	out := make([]label.Label, len(d.Sentences))
	for i, s := range d.Sentences {
		out[i] = s.Label
	}
	return out
}

func uniform(v float64) []float64 {
	p := make([]float64, label.Count)
	for i := range p {
		p[i] = v
	}
	return p
}

type indexScorer struct {
	byIndex map[int]label.Label
	failOn  map[int]bool
}

func (s indexScorer) Name() string { return "index" }

func (s indexScorer) Score(_ context.Context, sent *model.Sentence) ([]float64, error) {
	if s.failOn[sent.Index] {
		return nil, errors.New("scorer unavailable")
	}
	dist := uniform(0.1)
	if l, ok := s.byIndex[sent.Index]; ok {
		dist[l] = 0.9
	}
	return dist, nil
}

type countingRecorder struct {
	assigned   map[model.Source]int
	failures   int
	violations []model.SignalType
}

func (c *countingRecorder) LabelsAssigned(src model.Source, n int) {
	if c.assigned == nil {
		c.assigned = make(map[model.Source]int)
	}
	c.assigned[src] += n
}

func (c *countingRecorder) ScorerFailed() { c.failures++ }

func (c *countingRecorder) InvariantViolated(kind model.SignalType) {
	c.violations = append(c.violations, kind)
}

func rule(phrase string, l label.Label) indicator.Rule {
	return indicator.Rule{Raw: phrase, Phrase: phrase, Label: l, Strength: indicator.StrengthSubstring}
}

func TestFillGaps(t *testing.T) {
	A, B, N := label.Dispositio, label.Corroboratio, label.None

	d := newDoc([]string{"a", "b", "c", "d"}, []label.Label{A, N, N, A})
	assert.Equal(t, 2, FillGaps(d))
	assert.Equal(t, []label.Label{A, A, A, A}, labelsOf(d))
	assert.Equal(t, model.SourceGapFill, d.Sentences[1].Source)

	d = newDoc([]string{"a", "b", "c", "d"}, []label.Label{A, N, N, B})
	assert.Equal(t, 0, FillGaps(d))
	assert.Equal(t, []label.Label{A, N, N, B}, labelsOf(d))
}

func TestFillGaps_ImplicitLeadingInvocatio(t *testing.T) {
	I, N := label.Invocatio, label.None
	d := newDoc([]string{"a", "b", "c"}, []label.Label{N, N, I})
	assert.Equal(t, 2, FillGaps(d))
	assert.Equal(t, []label.Label{I, I, I}, labelsOf(d))
}

func TestAssignDefaults_TieBreakPrefersLowerLabel(t *testing.T) {
	N := label.None
	d := newDoc([]string{"a", "b", "c"}, []label.Label{label.Intitulatio, N, label.Arenga})
	d.Sentences[1].Probs = uniform(0.5)

	r := New(nil, nil, nil, zaptest.NewLogger(t))
	n, signals := r.AssignDefaults(d)

	assert.Equal(t, 1, n)
	assert.Empty(t, signals)
	assert.Equal(t, label.Intitulatio, d.Sentences[1].Label)
	assert.Equal(t, model.SourceDefault, d.Sentences[1].Source)
}

func TestAssignDefaults_LowerBoundAdvances(t *testing.T) {
	N := label.None
	d := newDoc([]string{"a", "b", "c"}, []label.Label{N, N, N})
	d.Sentences[0].Probs = uniform(0.1)
	d.Sentences[0].Probs[label.Narratio] = 0.8
	// Prefers arenga, but arenga would regress behind narratio
	d.Sentences[1].Probs = uniform(0.1)
	d.Sentences[1].Probs[label.Arenga] = 0.9
	d.Sentences[2].Probs = uniform(0.1)
	d.Sentences[2].Probs[label.Datatio] = 0.7

	r := New(nil, nil, nil, zaptest.NewLogger(t))
	_, _ = r.AssignDefaults(d)

	assert.Equal(t, []label.Label{label.Narratio, label.Narratio, label.Datatio}, labelsOf(d))
}

func TestAssignDefaults_AllZeroRange(t *testing.T) {
	N := label.None
	d := newDoc([]string{"a", "b", "c"}, []label.Label{label.Narratio, N, label.Sanctio})
	d.Sentences[1].Probs = uniform(0)
	d.Sentences[1].Probs[label.Datatio] = 1

	r := New(nil, nil, nil, zaptest.NewLogger(t))
	_, signals := r.AssignDefaults(d)

	assert.Equal(t, label.Narratio, d.Sentences[1].Label)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalLowConfidence, signals[0].Type)
	assert.Equal(t, 1, *signals[0].Sentence)
}

// randomDoc labels some sentences with a non-decreasing label sequence and
// gives every sentence either a random or an all-zero probability vector
func randomDoc(rng *rand.Rand, id string) *model.Document {
	n := 1 + rng.Intn(25)
	texts := make([]string, n)
	labels := make([]label.Label, n)
	next := label.First
	for i := range texts {
		texts[i] = fmt.Sprintf("s%d", i)
		labels[i] = label.None
		if rng.Intn(3) == 0 {
			next += label.Label(rng.Intn(3))
			if next > label.Last {
				next = label.Last
			}
			labels[i] = next
		}
	}

	d := newDoc(texts, labels)
	d.ID = id
	for _, s := range d.Sentences {
		if rng.Intn(4) == 0 {
			s.Probs = uniform(0)
			continue
		}
		s.Probs = make([]float64, label.Count)
		for l := range s.Probs {
			if rng.Intn(3) > 0 {
				s.Probs[l] = rng.Float64()
			}
		}
	}
	return d
}

func TestFillGapsAndDefaults_RandomDocuments(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := New(nil, nil, nil, zaptest.NewLogger(t))

	for i := 0; i < 500; i++ {
		d := randomDoc(rng, fmt.Sprintf("doc-%d", i))
		before := labelsOf(d)

		FillGaps(d)
		r.AssignDefaults(d)

		require.NoError(t, CheckCoverage(d), "document %s", d.ID)
		require.NoError(t, CheckOrder(d), "document %s", d.ID)
		for j, s := range d.Sentences {
			assert.True(t, s.Label.Valid(), "document %s sentence %d", d.ID, j)
			if before[j] != label.None {
				assert.Equal(t, before[j], s.Label, "indicator label of %s sentence %d changed", d.ID, j)
			}
		}
	}
}

func TestEndToEnd_GapBetweenDifferentLabels(t *testing.T) {
	I, D, N := label.Invocatio, label.Dispositio, label.None
	labels := []label.Label{I, I, N, D, D, label.Apprecatio}
	texts := []string{"a", "b", "c", "d", "e", "f"}

	for _, tc := range []struct {
		favour label.Label
		want   label.Label
	}{
		{label.Apprecatio, I},
		{label.Dispositio, D},
		{label.Invocatio, I},
		{label.Narratio, label.Narratio},
	} {
		d := newDoc(texts, labels)
		d.Sentences[2].Probs = uniform(0.1)
		d.Sentences[2].Probs[tc.favour] = 0.9

		assert.Equal(t, 0, FillGaps(d))
		assert.False(t, d.Sentences[2].HasLabel())

		r := New(nil, nil, nil, zaptest.NewLogger(t))
		r.AssignDefaults(d)
		assert.Equal(t, tc.want, d.Sentences[2].Label, "favouring %s", tc.favour)
		assert.NotEqual(t, label.Apprecatio, d.Sentences[2].Label)
		assert.NoError(t, CheckOrder(d))
	}
}

func TestRun(t *testing.T) {
	d := newDoc([]string{
		"in nomine sancte trinitatis",
		"ego otto rex",
		"notum sit omnibus fidelibus",
		"quapropter damus",
		"datum anno domini",
		"amen",
	}, nil)

	rules := []indicator.Rule{
		rule("in nomine sancte trinitatis", label.Invocatio),
		rule("datum", label.Datatio),
		rule("amen", label.Apprecatio),
	}
	priors := milestones.Default()
	scorer := indexScorer{byIndex: map[int]label.Label{
		1: label.Intitulatio,
		2: label.Publicatio,
		3: label.Dispositio,
	}}
	rec := &countingRecorder{}

	r := New(priors, indicator.NewMatcher(rules, priors, 0), scorer, zaptest.NewLogger(t))
	r.SetRecorder(rec)
	res, err := r.Run(context.Background(), []*model.Document{d})
	require.NoError(t, err)

	assert.Equal(t, []label.Label{
		label.Invocatio, label.Intitulatio, label.Publicatio,
		label.Dispositio, label.Datatio, label.Apprecatio,
	}, labelsOf(d))
	assert.Equal(t, "datum", d.Sentences[4].Rule)

	wantParagraphs := []label.Paragraph{
		label.Protocol, label.Protocol, label.Context,
		label.Context, label.Eschatocol, label.Eschatocol,
	}
	for i, s := range d.Sentences {
		assert.Equal(t, wantParagraphs[i], s.Paragraph, "sentence %d", i)
	}

	assert.Equal(t, 3, res.Assigned[model.SourceIndicator])
	assert.Equal(t, 3, res.Assigned[model.SourceDefault])
	assert.Equal(t, 0, res.Violations)
	assert.Equal(t, 3, rec.assigned[model.SourceIndicator])
	assert.NoError(t, CheckOrder(d))
	assert.NoError(t, CheckCoverage(d))
}

func TestRun_ScorerFailureFallsBackToNeutral(t *testing.T) {
	d := newDoc([]string{"a", "b", "c"}, nil)
	scorer := indexScorer{failOn: map[int]bool{1: true}}
	rec := &countingRecorder{}

	r := New(nil, nil, scorer, zaptest.NewLogger(t))
	r.SetRecorder(rec)
	res, err := r.Run(context.Background(), []*model.Document{d})
	require.NoError(t, err)

	assert.Equal(t, 1, res.ScorerFailures)
	assert.Equal(t, 1, rec.failures)
	require.NotEmpty(t, res.Signals)
	assert.Equal(t, model.SignalScorerFallback, res.Signals[0].Type)
	assert.Equal(t, 1.0, d.Sentences[1].Probs[label.Apprecatio])
	assert.NoError(t, CheckCoverage(d))
}

func TestRun_RegressionIsReportedNotRepaired(t *testing.T) {
	d := newDoc([]string{"datum", "ego otto rex", "in nomine"}, nil)
	rules := []indicator.Rule{
		rule("datum", label.Datatio),
		rule("in nomine", label.Invocatio),
	}
	priors := milestones.Default()
	rec := &countingRecorder{}

	r := New(priors, indicator.NewMatcher(rules, priors, 0), nil, zaptest.NewLogger(t))
	r.SetRecorder(rec)
	res, err := r.Run(context.Background(), []*model.Document{d})
	require.NoError(t, err)

	assert.Equal(t, []label.Label{label.Datatio, label.Datatio, label.Invocatio}, labelsOf(d))
	assert.Equal(t, 1, res.Violations)
	assert.Equal(t, []model.SignalType{model.SignalOrderViolation}, rec.violations)

	err = CheckOrder(d)
	assert.ErrorIs(t, err, ErrOrderViolation)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(nil, nil, nil, nil)
	_, err := r.Run(ctx, []*model.Document{newDoc([]string{"a"}, nil)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckCoverage(t *testing.T) {
	d := newDoc([]string{"a", "b"}, []label.Label{label.Invocatio, label.None})
	assert.ErrorIs(t, CheckCoverage(d), ErrUnlabeled)

	d.Sentences[1].Assign(label.Arenga, model.SourceDefault)
	assert.NoError(t, CheckCoverage(d))
}

func TestInjectPriors(t *testing.T) {
	d := newDoc([]string{"a b", "c d", "e f"}, nil)
	priors := milestones.Default()
	priors.AverageProtocolEnd = 2
	priors.InvAverageEschatocolStart = 2
	priors.Protocol = uniform(1)
	priors.Protocol[label.Invocatio] = 0.5
	priors.Context = uniform(1)
	priors.Context[label.Narratio] = 0.5
	priors.Eschatocol = uniform(1)
	priors.Eschatocol[label.Datatio] = 0.5

	New(priors, nil, nil, nil).InjectPriors(d.Sentences)

	// firstWord 1 < 2; firstWord 3, invLast 2 is not < 2; invLast 0 < 2
	assert.Equal(t, 0.5, d.Sentences[0].Probs[label.Invocatio])
	assert.Equal(t, 0.5, d.Sentences[1].Probs[label.Narratio])
	assert.Equal(t, 0.5, d.Sentences[2].Probs[label.Datatio])
}
