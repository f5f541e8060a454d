package model

import (
	"strings"
	"testing"

	"github.com/ppiankov/charta/internal/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWithTokens(counts ...int) *Document {
	d := &Document{ID: "doc"}
	for i, n := range counts {
		s := NewSentence(i, "")
		s.Tokens = strings.Fields(strings.Repeat("w ", n))
		d.Sentences = append(d.Sentences, s)
	}
	return d
}

func TestAssignPositions_PartitionsWords(t *testing.T) {
	d := docWithTokens(3, 2, 5)
	d.AssignPositions()

	require.Equal(t, 10, d.TotalWords)

	s0, s1, s2 := d.Sentences[0], d.Sentences[1], d.Sentences[2]
	assert.Equal(t, 1, s0.FirstWord)
	assert.Equal(t, 3, s0.LastWord)
	assert.Equal(t, 11, s0.InvFirstWord)
	assert.Equal(t, 7, s0.InvLastWord)

	assert.Equal(t, 4, s1.FirstWord)
	assert.Equal(t, 5, s1.LastWord)

	assert.Equal(t, 6, s2.FirstWord)
	assert.Equal(t, 10, s2.LastWord)
	assert.Equal(t, 6, s2.InvFirstWord)
	assert.Equal(t, 0, s2.InvLastWord)
	assert.InDelta(t, 1.0, s2.RelativeIndex, 1e-9)

	for i := 1; i < len(d.Sentences); i++ {
		assert.Equal(t, d.Sentences[i-1].LastWord+1, d.Sentences[i].FirstWord)
		assert.Equal(t, i, d.Sentences[i].Index)
	}
}

func TestSentence_UpdateProbabilities(t *testing.T) {
	s := NewSentence(0, "x")
	dist := make([]float64, label.Count)
	for i := range dist {
		dist[i] = float64(i)
	}
	require.NoError(t, s.UpdateProbabilities(dist))
	require.NoError(t, s.UpdateProbabilities(dist))
	assert.Equal(t, 4.0, s.Probs[2])

	assert.Error(t, s.UpdateProbabilities([]float64{1, 2}))
}

func TestSentence_ResetKeepsTruth(t *testing.T) {
	s := NewTrainingSentence(0, "In nomine domini", label.Invocatio)
	s.Text = "in nomine domini"
	s.Assign(label.Arenga, SourceDefault)
	s.Probs[0] = 0

	s.Reset()

	assert.Equal(t, "In nomine domini", s.Text)
	assert.False(t, s.HasLabel())
	assert.Equal(t, 1.0, s.Probs[0])
	require.NotNil(t, s.Truth)
	assert.Equal(t, label.Protocol, s.Truth.Paragraph)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	d := docWithTokens(2, 2)
	d.Sentences[0].Truth = &Truth{Label: label.Invocatio}
	c := d.Clone()

	c.Sentences[0].Probs[0] = 42
	c.Sentences[0].Truth.Label = label.Datatio

	assert.Equal(t, 1.0, d.Sentences[0].Probs[0])
	assert.Equal(t, label.Invocatio, d.Sentences[0].Truth.Label)
}

func TestParseVectorType(t *testing.T) {
	vt, err := ParseVectorType("TF-IDF")
	require.NoError(t, err)
	assert.Equal(t, VectorTfIdf, vt)

	_, err = ParseVectorType("dense")
	assert.Error(t, err)
}

func TestReport_Summarize(t *testing.T) {
	d := docWithTokens(1, 1)
	d.Sentences[0].Assign(label.Invocatio, SourceIndicator)
	d.Sentences[1].Assign(label.Datatio, SourceDefault)

	r := &Report{
		Documents: []DocumentResult{NewDocumentResult(d)},
		Skipped:   []SkippedDocument{{ID: "bad", Reason: "language"}},
		Signals:   []Signal{{Type: SignalOrderViolation}},
	}
	r.Summarize()

	assert.Equal(t, 1, r.Summary.Documents)
	assert.Equal(t, 2, r.Summary.Sentences)
	assert.Equal(t, 1, r.Summary.ByLabel["datatio"])
	assert.Equal(t, 1, r.Summary.BySource["indicator"])
	assert.Equal(t, 1, r.Summary.Skipped)
	assert.Equal(t, 1, r.Summary.Violations)
}

func TestDocument_ClearClassificationKeepsPreprocessing(t *testing.T) {
	d := docWithTokens(2)
	s := d.Sentences[0]
	s.Lemmas = []string{"w", "w"}
	s.Assign(label.Datatio, SourceIndicator)
	s.Probs[3] = 0.5

	d.ClearClassification()

	assert.Len(t, s.Tokens, 2)
	assert.Len(t, s.Lemmas, 2)
	assert.False(t, s.HasLabel())
	assert.Equal(t, SourceNone, s.Source)
	assert.Equal(t, 1.0, s.Probs[3])
}
