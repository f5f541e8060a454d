// Package evaluate measures classification quality against annotated
// diplomas by cross-validation.
package evaluate

import (
	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// Matrix is a confusion matrix indexed [true][predicted]
type Matrix [][]int

// NewMatrix returns an empty label.Count × label.Count matrix
func NewMatrix() Matrix {
	m := make(Matrix, label.Count)
	for i := range m {
		m[i] = make([]int, label.Count)
	}
	return m
}

// Add counts one sentence. Pairs with an invalid label are ignored and
// reported as false.
func (m Matrix) Add(truth, predicted label.Label) bool {
	if !truth.Valid() || !predicted.Valid() {
		return false
	}
	m[truth][predicted]++
	return true
}

// Merge adds the counts of o
func (m Matrix) Merge(o Matrix) {
	for i := range m {
		for j := range m[i] {
			m[i][j] += o[i][j]
		}
	}
}

// Total is the number of counted sentences
func (m Matrix) Total() int {
	n := 0
	for i := range m {
		for j := range m[i] {
			n += m[i][j]
		}
	}
	return n
}

// AddDocuments counts every annotated sentence of the documents and returns
// how many sentences could not be counted
func (m Matrix) AddDocuments(docs []*model.Document) int {
	skipped := 0
	for _, d := range docs {
		for _, s := range d.Sentences {
			if s.Truth == nil || !m.Add(s.Truth.Label, s.Label) {
				skipped++
			}
		}
	}
	return skipped
}

// Scores derives per-label counts and measures. tn is computed from the
// matrix total.
func (m Matrix) Scores() []model.LabelScore {
	total := m.Total()
	scores := make([]model.LabelScore, label.Count)
	for i := range m {
		tp := m[i][i]
		fp, fn := -tp, -tp
		for j := range m {
			fp += m[j][i]
			fn += m[i][j]
		}
		scores[i] = newLabelScore(label.Label(i), tp, fp, total-tp-fp-fn, fn)
	}
	return scores
}

func newLabelScore(l label.Label, tp, fp, tn, fn int) model.LabelScore {
	s := model.LabelScore{Label: l, TP: tp, FP: fp, TN: tn, FN: fn}
	s.Used = tp != 0 || fn != 0
	s.Precision, s.Recall, s.Accuracy, s.F1 = measures(tp, fp, tn, fn)
	return s
}

func measures(tp, fp, tn, fn int) (precision, recall, accuracy, f1 float64) {
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if all := tp + fp + tn + fn; all > 0 {
		accuracy = float64(tp+tn) / float64(all)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, accuracy, f1
}

// MacroAverage averages the measures of used labels
func MacroAverage(scores []model.LabelScore) model.Average {
	var avg model.Average
	n := 0
	for _, s := range scores {
		if !s.Used {
			continue
		}
		n++
		avg.Precision += s.Precision
		avg.Recall += s.Recall
		avg.Accuracy += s.Accuracy
		avg.F1 += s.F1
	}
	if n == 0 {
		return model.Average{}
	}
	avg.Precision /= float64(n)
	avg.Recall /= float64(n)
	avg.Accuracy /= float64(n)
	avg.F1 /= float64(n)
	return avg
}

// MicroAverage computes the measures over the summed counts of used labels
func MicroAverage(scores []model.LabelScore) model.Average {
	var tp, fp, tn, fn int
	for _, s := range scores {
		if !s.Used {
			continue
		}
		tp += s.TP
		fp += s.FP
		tn += s.TN
		fn += s.FN
	}
	var avg model.Average
	avg.Precision, avg.Recall, avg.Accuracy, avg.F1 = measures(tp, fp, tn, fn)
	return avg
}

// Result summarizes a matrix for one configuration
func Result(settings model.ClassificationConfig, m Matrix) model.EvaluationResult {
	scores := m.Scores()
	res := model.EvaluationResult{
		Settings: settings,
		Matrix:   m,
		Labels:   scores,
		Macro:    MacroAverage(scores),
		Micro:    MicroAverage(scores),
	}
	for _, s := range scores {
		if !s.Used {
			res.Unused = append(res.Unused, s.Label)
		}
	}
	return res
}
