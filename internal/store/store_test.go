package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "charta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func classifyReport(id string, created time.Time) *model.Report {
	truth := label.Invocatio
	r := &model.Report{
		RunID:     id,
		Mode:      model.ModeClassify,
		CreatedAt: created,
		Settings:  model.DefaultClassification(),
		Documents: []model.DocumentResult{{
			ID: "1189_V_18",
			Sentences: []model.SentenceResult{
				{Index: 0, Text: "In nomine domini.", Label: label.Invocatio, Paragraph: label.Protocol, Source: model.SourceIndicator, Rule: "in nomine", TrueLabel: &truth},
				{Index: 1, Text: "Amen.", Label: label.Apprecatio, Paragraph: label.Eschatocol, Source: model.SourceDefault},
			},
		}},
	}
	r.Summarize()
	return r
}

func TestStore_SaveAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveReport(ctx, classifyReport("older", base)))
	require.NoError(t, s.SaveReport(ctx, classifyReport("newer", base.Add(time.Hour))))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)
	assert.Equal(t, model.ModeClassify, runs[0].Mode)
	assert.Equal(t, 2, runs[0].Sentences)
	assert.True(t, runs[0].CreatedAt.Equal(base.Add(time.Hour)))

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := s.CountSentences(ctx, "older")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_DuplicateRunRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	r := classifyReport("same", time.Now())

	require.NoError(t, s.SaveReport(ctx, r))
	assert.Error(t, s.SaveReport(ctx, r))

	n, err := s.CountSentences(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_Evaluations(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	weak := model.EvaluationResult{Settings: model.ClassificationConfig{Tolerance: 0, VectorType: model.VectorCount}}
	weak.Macro.F1 = 0.4
	strong := model.EvaluationResult{Settings: model.DefaultClassification()}
	strong.Macro.F1 = 0.9

	r := &model.Report{
		RunID:       "eval",
		Mode:        model.ModeEvaluate,
		CreatedAt:   time.Now(),
		Evaluations: []model.EvaluationResult{weak, strong},
	}
	require.NoError(t, s.SaveReport(ctx, r))

	got, err := s.Evaluations(ctx, "eval")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, strong.Settings, got[0].Settings)
	assert.InDelta(t, 0.4, got[1].Macro.F1, 1e-9)
}
