// Package reconcile turns per-sentence evidence into a label sequence that
// respects the canonical order of a diploma.
//
// Passes run in a fixed order over a fully materialized batch:
//
//	A  multiply in the positional prior of the sentence's likely paragraph
//	B  multiply in the probabilistic scorer's distribution
//	C  assign labels from indicator rules
//	D  fill gaps between two sentences with the same label
//	E  assign the most probable label allowed by the neighbouring labels
//	F  derive paragraph labels
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/indicator"
	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/milestones"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/score"
)

// Recorder receives counters from a reconciliation run
type Recorder interface {
	LabelsAssigned(source model.Source, n int)
	ScorerFailed()
	InvariantViolated(kind model.SignalType)
}

type nopRecorder struct{}

func (nopRecorder) LabelsAssigned(model.Source, int)   {}
func (nopRecorder) ScorerFailed()                      {}
func (nopRecorder) InvariantViolated(model.SignalType) {}

// Reconciler holds the trained components of one classification setup.
// It keeps no state between runs.
type Reconciler struct {
	priors   *milestones.Priors
	matcher  *indicator.Matcher
	scorer   score.Scorer
	logger   *zap.Logger
	recorder Recorder
}

// Result summarizes one run
type Result struct {
	Signals        []model.Signal
	Assigned       map[model.Source]int
	ScorerFailures int
	Violations     int
}

// New creates a reconciler. A nil scorer falls back to score.Neutral.
func New(priors *milestones.Priors, matcher *indicator.Matcher, scorer score.Scorer, logger *zap.Logger) *Reconciler {
	if priors == nil {
		priors = milestones.Default()
	}
	if matcher == nil {
		matcher = indicator.NewMatcher(nil, priors, 0)
	}
	if scorer == nil {
		scorer = score.Neutral{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		priors:   priors,
		matcher:  matcher,
		scorer:   scorer,
		logger:   logger.Named("reconcile"),
		recorder: nopRecorder{},
	}
}

// SetRecorder attaches a counter sink
func (r *Reconciler) SetRecorder(rec Recorder) {
	if rec == nil {
		rec = nopRecorder{}
	}
	r.recorder = rec
}

// Run labels every sentence of the given documents. Documents must have
// tokens, normalized text and word positions. Only context cancellation
// aborts the run; invariant violations are reported in the result.
func (r *Reconciler) Run(ctx context.Context, docs []*model.Document) (*Result, error) {
	res := &Result{Assigned: make(map[model.Source]int)}
	sentences := model.Flatten(docs)
	if r.priors.IsDegenerate() {
		r.logger.Warn("running with placeholder priors, positional evidence is neutral")
	}

	// A. Positional priors
	r.InjectPriors(sentences)

	// B. Probabilistic scoring
	if err := r.ScoreSentences(ctx, docs, res); err != nil {
		return nil, err
	}

	// C. Indicator rules
	res.Assigned[model.SourceIndicator] = r.AssignByIndicators(sentences)

	for _, d := range docs {
		// D. Gap filling
		res.Assigned[model.SourceGapFill] += FillGaps(d)

		// E. Order-constrained defaults
		n, signals := r.AssignDefaults(d)
		res.Assigned[model.SourceDefault] += n
		res.Signals = append(res.Signals, signals...)
	}

	// F. Paragraphs
	AssignParagraphs(sentences)

	for _, d := range docs {
		for _, sig := range r.check(d) {
			res.Signals = append(res.Signals, sig)
			res.Violations++
		}
	}

	for src, n := range res.Assigned {
		r.recorder.LabelsAssigned(src, n)
	}

	r.logger.Debug("reconciliation finished",
		zap.Int("documents", len(docs)),
		zap.Int("sentences", len(sentences)),
		zap.Int("indicator", res.Assigned[model.SourceIndicator]),
		zap.Int("gap_fill", res.Assigned[model.SourceGapFill]),
		zap.Int("default", res.Assigned[model.SourceDefault]),
		zap.Int("scorer_failures", res.ScorerFailures),
		zap.Int("violations", res.Violations))

	return res, nil
}

// InjectPriors multiplies in the prior of the paragraph the sentence most
// likely belongs to
func (r *Reconciler) InjectPriors(sentences []*model.Sentence) {
	for _, s := range sentences {
		par := label.Context
		switch {
		case float64(s.FirstWord) < r.priors.AverageProtocolEnd:
			par = label.Protocol
		case float64(s.InvLastWord) < r.priors.InvAverageEschatocolStart:
			par = label.Eschatocol
		}
		// Priors always carry label.Count entries
		_ = s.UpdateProbabilities(r.priors.ForParagraph(par))
	}
}

// ScoreSentences multiplies in the scorer's distribution. A failing sentence
// gets the neutral vector; the failure is logged, counted and signalled.
func (r *Reconciler) ScoreSentences(ctx context.Context, docs []*model.Document, res *Result) error {
	for _, d := range docs {
		for _, s := range d.Sentences {
			if err := ctx.Err(); err != nil {
				return err
			}

			dist, err := r.scorer.Score(ctx, s)
			if err == nil {
				err = s.UpdateProbabilities(dist)
			}
			if err == nil {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			r.logger.Warn("scorer failed, using neutral distribution",
				zap.String("scorer", r.scorer.Name()),
				zap.String("document", d.ID),
				zap.Int("sentence", s.Index),
				zap.Error(err))
			_ = s.UpdateProbabilities(model.NeutralVector())
			r.recorder.ScorerFailed()

			idx := s.Index
			res.ScorerFailures++
			res.Signals = append(res.Signals, model.Signal{
				Type:        model.SignalScorerFallback,
				Severity:    model.SeverityWarning,
				Document:    d.ID,
				Sentence:    &idx,
				Description: fmt.Sprintf("Scorer %s failed, neutral distribution used", r.scorer.Name()),
				Data:        map[string]interface{}{"error": err.Error()},
			})
		}
	}
	return nil
}

// AssignByIndicators labels every unlabeled sentence matched by a rule and
// returns the number of labels assigned
func (r *Reconciler) AssignByIndicators(sentences []*model.Sentence) int {
	n := 0
	for _, s := range sentences {
		if s.HasLabel() {
			continue
		}
		rule, ok := r.matcher.Match(s)
		if !ok {
			continue
		}
		s.Assign(rule.Label, model.SourceIndicator)
		s.Rule = rule.Raw
		n++
	}
	return n
}

// FillGaps labels unlabeled runs enclosed by two sentences with the same
// label. The walk starts as if an invocatio preceded the document.
func FillGaps(d *model.Document) int {
	n := 0
	last := label.Invocatio
	var pending []*model.Sentence

	for _, s := range d.Sentences {
		switch {
		case !s.HasLabel():
			pending = append(pending, s)
		case s.Label == last:
			for _, p := range pending {
				p.Assign(last, model.SourceGapFill)
				n++
			}
			pending = pending[:0]
		default:
			last = s.Label
			pending = pending[:0]
		}
	}
	return n
}

// AssignDefaults labels every remaining sentence with its most probable label
// between the preceding and the following label
func (r *Reconciler) AssignDefaults(d *model.Document) (int, []model.Signal) {
	n := 0
	var signals []model.Signal
	lower := label.Invocatio
	var pending []*model.Sentence

	for _, s := range d.Sentences {
		if !s.HasLabel() {
			pending = append(pending, s)
			continue
		}
		if len(pending) > 0 {
			signals = append(signals, r.labelRun(d, pending, lower, s.Label)...)
			n += len(pending)
			pending = pending[:0]
		}
		lower = s.Label
	}
	if len(pending) > 0 {
		signals = append(signals, r.labelRun(d, pending, lower, label.Last)...)
		n += len(pending)
	}
	return n, signals
}

// labelRun scans [lower, upper] with a strict comparison starting from zero,
// so ties and all-zero ranges resolve to the lowest label
func (r *Reconciler) labelRun(d *model.Document, run []*model.Sentence, lower, upper label.Label) []model.Signal {
	var signals []model.Signal

	if upper < lower {
		r.logger.Warn("label regression around unlabeled run, assigning lower bound",
			zap.String("document", d.ID),
			zap.Int("first_sentence", run[0].Index),
			zap.Stringer("lower", lower),
			zap.Stringer("upper", upper))
		for _, s := range run {
			s.Assign(lower, model.SourceDefault)
		}
		return nil
	}

	for _, s := range run {
		best := lower
		highest := 0.0
		for l := lower; l <= upper; l++ {
			if s.Probs[l] > highest {
				highest = s.Probs[l]
				best = l
			}
		}
		s.Assign(best, model.SourceDefault)

		if highest == 0 {
			r.logger.Debug("all-zero probability range, assigning lower bound",
				zap.String("document", d.ID),
				zap.Int("sentence", s.Index),
				zap.Stringer("lower", lower),
				zap.Stringer("upper", upper))
			idx := s.Index
			signals = append(signals, model.Signal{
				Type:        model.SignalLowConfidence,
				Severity:    model.SeverityInfo,
				Document:    d.ID,
				Sentence:    &idx,
				Description: fmt.Sprintf("No probability mass between %s and %s", lower, upper),
				Data: map[string]interface{}{
					"lower": lower.String(),
					"upper": upper.String(),
				},
			})
		}
		lower = best
	}
	return signals
}

// AssignParagraphs derives the paragraph label of every labeled sentence
func AssignParagraphs(sentences []*model.Sentence) {
	for _, s := range sentences {
		s.Paragraph = s.Label.Paragraph()
	}
}
