package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/charta/internal/model"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.LabelsAssigned(model.SourceIndicator, 3)
	m.LabelsAssigned(model.SourceIndicator, 2)
	m.LabelsAssigned(model.SourceDefault, 0)
	m.ScorerFailed()
	m.InvariantViolated(model.SignalOrderViolation)
	m.DocumentSkipped("language")
	m.DocumentSkipped("language")
	m.DocumentsClassified(model.ModeClassify, 4)
	m.FormsLemmatized(10)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.labelsAssigned.WithLabelValues("indicator")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.labelsAssigned), "zero counts create no series")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scorerFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("order_violation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.documentsSkipped.WithLabelValues("language")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.documents.WithLabelValues("classify")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.lemmatizedForms))
}

func TestMetrics_Evaluation(t *testing.T) {
	m := New()
	res := model.EvaluationResult{Settings: model.DefaultClassification()}
	res.Macro.F1 = 0.8
	m.ObserveEvaluation(res)
	m.ObserveRun(model.ModeEvaluate, 2*time.Second)

	assert.InDelta(t, 0.8, testutil.ToFloat64(m.evaluationMacroF1.WithLabelValues(res.Settings.String())), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := New()
	m.DocumentSkipped("tenor_length")

	path := filepath.Join(t.TempDir(), "charta.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `charta_documents_skipped_total{reason="tenor_length"} 1`))
}
