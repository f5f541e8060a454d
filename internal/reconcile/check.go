package reconcile

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/model"
)

var (
	// ErrOrderViolation is returned when a label precedes a lower label
	ErrOrderViolation = errors.New("label order violated")
	// ErrUnlabeled is returned when a sentence has no label after reconciliation
	ErrUnlabeled = errors.New("sentence left unlabeled")
)

// CheckOrder reports the first label regression in a document
func CheckOrder(d *model.Document) error {
	var prev *model.Sentence
	for _, s := range d.Sentences {
		if !s.HasLabel() {
			continue
		}
		if prev != nil && s.Label < prev.Label {
			return fmt.Errorf("%w: document %s sentence %d is %s after %s at sentence %d",
				ErrOrderViolation, d.ID, s.Index, s.Label, prev.Label, prev.Index)
		}
		prev = s
	}
	return nil
}

// CheckCoverage reports the first unlabeled sentence in a document
func CheckCoverage(d *model.Document) error {
	for _, s := range d.Sentences {
		if !s.HasLabel() {
			return fmt.Errorf("%w: document %s sentence %d", ErrUnlabeled, d.ID, s.Index)
		}
	}
	return nil
}

// check runs both invariant checks and turns failures into critical signals
func (r *Reconciler) check(d *model.Document) []model.Signal {
	var signals []model.Signal

	if err := CheckCoverage(d); err != nil {
		r.logger.Error("invariant violated", zap.String("document", d.ID), zap.Error(err))
		r.recorder.InvariantViolated(model.SignalUnlabeled)
		signals = append(signals, model.Signal{
			Type:        model.SignalUnlabeled,
			Severity:    model.SeverityCritical,
			Document:    d.ID,
			Description: err.Error(),
		})
	}
	if err := CheckOrder(d); err != nil {
		r.logger.Error("invariant violated", zap.String("document", d.ID), zap.Error(err))
		r.recorder.InvariantViolated(model.SignalOrderViolation)
		signals = append(signals, model.Signal{
			Type:        model.SignalOrderViolation,
			Severity:    model.SeverityCritical,
			Document:    d.ID,
			Description: err.Error(),
		})
	}
	return signals
}
