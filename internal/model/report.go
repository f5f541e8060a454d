package model

import (
	"time"

	"github.com/ppiankov/charta/internal/label"
)

// Report represents the result of one charta run
type Report struct {
	RunID     string               `json:"run_id"`
	Mode      RunMode              `json:"mode"`
	CreatedAt time.Time            `json:"created_at"`
	Settings  ClassificationConfig `json:"settings"`

	Documents []DocumentResult  `json:"documents,omitempty"`
	Skipped   []SkippedDocument `json:"skipped,omitempty"`

	Summary     Summary            `json:"summary"`
	Signals     []Signal           `json:"signals,omitempty"`     // Diagnostic signals with transparent data
	Evaluations []EvaluationResult `json:"evaluations,omitempty"` // Only for evaluation runs
}

// RunMode distinguishes classification from evaluation runs
type RunMode string

const (
	ModeClassify RunMode = "classify"
	ModeEvaluate RunMode = "evaluate"
)

// DocumentResult is the labeled sequence of one diploma
type DocumentResult struct {
	ID        string           `json:"id"`
	Path      string           `json:"path,omitempty"`
	Sentences []SentenceResult `json:"sentences"`
}

// SentenceResult is the final labeling of one sentence
type SentenceResult struct {
	Index     int             `json:"index"`
	Text      string          `json:"text"`
	Label     label.Label     `json:"label"`
	Paragraph label.Paragraph `json:"paragraph"`
	Source    Source          `json:"source"`
	Rule      string          `json:"rule,omitempty"`
	TrueLabel *label.Label    `json:"true_label,omitempty"`
}

// SkippedDocument records a document excluded from the batch
type SkippedDocument struct {
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

// Summary aggregates label counts over a run
type Summary struct {
	Documents   int            `json:"documents"`
	Sentences   int            `json:"sentences"`
	ByLabel     map[string]int `json:"by_label"`
	BySource    map[string]int `json:"by_source"`
	Skipped     int            `json:"skipped"`
	Violations  int            `json:"violations"`
	ElapsedSecs float64        `json:"elapsed_secs"`
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`     // Signal classification
	Severity    SignalSeverity         `json:"severity"` // info, warning, critical
	Document    string                 `json:"document,omitempty"`
	Sentence    *int                   `json:"sentence,omitempty"`
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs that produced the signal
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalScorerFallback  SignalType = "scorer_fallback"   // Classifier failed, neutral vector used
	SignalLowConfidence   SignalType = "low_confidence"    // Default assignment over an all-zero range
	SignalOrderViolation  SignalType = "order_violation"   // Label regressed within a document
	SignalUnlabeled       SignalType = "unlabeled"         // Sentence left without label
	SignalSkippedDocument SignalType = "skipped_document"  // Document failed qualification
	SignalDroppedRule     SignalType = "dropped_indicator" // Indicator row rejected at load time
	SignalDegeneratePrior SignalType = "degenerate_prior"  // Priors built without training documents
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// NewDocumentResult captures the final labels of a classified document
func NewDocumentResult(d *Document) DocumentResult {
	res := DocumentResult{
		ID:        d.ID,
		Path:      d.Path,
		Sentences: make([]SentenceResult, len(d.Sentences)),
	}
	for i, s := range d.Sentences {
		sr := SentenceResult{
			Index:     s.Index,
			Text:      s.Raw,
			Label:     s.Label,
			Paragraph: s.Paragraph,
			Source:    s.Source,
			Rule:      s.Rule,
		}
		if s.Truth != nil {
			t := s.Truth.Label
			sr.TrueLabel = &t
		}
		res.Sentences[i] = sr
	}
	return res
}

// Summarize fills the summary counts from the document results
func (r *Report) Summarize() {
	r.Summary.Documents = len(r.Documents)
	r.Summary.Skipped = len(r.Skipped)
	r.Summary.ByLabel = make(map[string]int)
	r.Summary.BySource = make(map[string]int)
	r.Summary.Sentences = 0
	for _, d := range r.Documents {
		for _, s := range d.Sentences {
			r.Summary.Sentences++
			r.Summary.ByLabel[s.Label.String()]++
			r.Summary.BySource[string(s.Source)]++
		}
	}
	r.Summary.Violations = 0
	for _, sig := range r.Signals {
		if sig.Type == SignalOrderViolation || sig.Type == SignalUnlabeled {
			r.Summary.Violations++
		}
	}
}
