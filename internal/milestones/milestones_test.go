package milestones

import (
	"math"
	"strings"
	"testing"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	label label.Label
	words int
}

func trainingDoc(parts ...part) *model.Document {
	d := &model.Document{ID: "t"}
	for i, p := range parts {
		s := model.NewTrainingSentence(i, "", p.label)
		s.Tokens = strings.Fields(strings.Repeat("w ", p.words))
		d.Sentences = append(d.Sentences, s)
	}
	d.AssignPositions()
	return d
}

func TestCompute_NoDocumentsIsDegenerate(t *testing.T) {
	p := Compute(nil, 1)

	assert.True(t, p.IsDegenerate())
	assert.True(t, math.IsInf(p.AverageProtocolEnd, 1))
	assert.True(t, math.IsInf(p.InvAverageEschatocolStart, 1))
	for _, dist := range [][]float64{p.Overall, p.Protocol, p.Context, p.Eschatocol} {
		require.Len(t, dist, label.Count)
		for _, v := range dist {
			assert.Equal(t, 1.0, v)
		}
	}
}

func TestCompute_IgnoresUnannotatedDocuments(t *testing.T) {
	d := &model.Document{Sentences: []*model.Sentence{model.NewSentence(0, "x")}}
	assert.True(t, Compute([]*model.Document{d}, 0).IsDegenerate())
}

func TestCompute_SingleDocument(t *testing.T) {
	d := trainingDoc(
		part{label.Invocatio, 2},
		part{label.Intitulatio, 2},
		part{label.Dispositio, 4},
		part{label.Datatio, 2},
	)
	p := Compute([]*model.Document{d}, 1)

	assert.Equal(t, 1, p.Documents)
	assert.InDelta(t, 4.0, p.AverageProtocolEnd, 1e-9)
	// Datatio starts after 8 of 10 words: 10 - 8 + 1
	assert.InDelta(t, 3.0, p.InvAverageEschatocolStart, 1e-9)

	assert.InDelta(t, 0.2, p.Overall[label.Invocatio], 1e-9)
	assert.InDelta(t, 0.2, p.Overall[label.Intitulatio], 1e-9)
	assert.InDelta(t, 0.4, p.Overall[label.Dispositio], 1e-9)
	assert.InDelta(t, 0.2, p.Overall[label.Datatio], 1e-9)
	assert.Equal(t, 0.0, p.Overall[label.Narratio])

	// Protocol band covers labels 0..3; the rest falls back to overall
	assert.InDelta(t, 0.5, p.Protocol[label.Invocatio], 1e-9)
	assert.InDelta(t, 0.5, p.Protocol[label.Intitulatio], 1e-9)
	assert.Equal(t, 0.0, p.Protocol[label.Arenga])
	assert.InDelta(t, 0.4, p.Protocol[label.Dispositio], 1e-9)
	assert.InDelta(t, 0.2, p.Protocol[label.Datatio], 1e-9)

	assert.InDelta(t, 1.0, p.Context[label.Dispositio], 1e-9)
	assert.Equal(t, 0.0, p.Context[label.Inscriptio])
	assert.InDelta(t, 0.2, p.Context[label.Invocatio], 1e-9)

	assert.InDelta(t, 1.0, p.Eschatocol[label.Datatio], 1e-9)
	assert.Equal(t, 0.0, p.Eschatocol[label.Corroboratio])
	assert.InDelta(t, 0.4, p.Eschatocol[label.Dispositio], 1e-9)
}

func TestCompute_ToleranceSentences(t *testing.T) {
	d := trainingDoc(
		part{label.Inscriptio, 2},
		part{label.Dispositio, 2},
		part{label.Subscriptio, 1},
	)
	p := Compute([]*model.Document{d}, 1)

	assert.InDelta(t, 0.4, p.Context[label.Inscriptio], 1e-9)
	assert.InDelta(t, 1.0, p.Context[label.Dispositio], 1e-9)
	assert.InDelta(t, 0.2, p.Context[label.Subscriptio], 1e-9)

	p0 := Compute([]*model.Document{d}, 0)
	// Without tolerance the neighbours keep their overall share
	assert.InDelta(t, p0.Overall[label.Inscriptio], p0.Context[label.Inscriptio], 1e-9)
}

func TestCompute_AveragesOverDocuments(t *testing.T) {
	a := trainingDoc(part{label.Invocatio, 2}, part{label.Dispositio, 2})
	b := trainingDoc(part{label.Invocatio, 4}, part{label.Dispositio, 4})
	p := Compute([]*model.Document{a, b}, 0)

	assert.InDelta(t, 3.0, p.AverageProtocolEnd, 1e-9)
	assert.Equal(t, 0.0, p.InvAverageEschatocolStart)
	assert.InDelta(t, 0.5, p.Overall[label.Invocatio], 1e-9)
}

func TestCompute_EmptySentencesDoNotDivideByZero(t *testing.T) {
	d := trainingDoc(part{label.Invocatio, 0}, part{label.Datatio, 0})
	p := Compute([]*model.Document{d}, 2)

	for _, v := range p.Overall {
		assert.False(t, math.IsNaN(v))
	}
	for _, v := range p.Eschatocol {
		assert.False(t, math.IsNaN(v))
	}
}

func TestForParagraph(t *testing.T) {
	p := Default()
	p.Context = make([]float64, label.Count)
	assert.Equal(t, p.Context, p.ForParagraph(label.Context))
	assert.Equal(t, p.Overall, p.ForParagraph(label.NoParagraph))
}
