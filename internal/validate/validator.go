package validate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/logging"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/preprocess"
)

// Result is the outcome of qualifying one document
type Result struct {
	Document *model.Document
	Err      error
}

// Qualified reports whether the document can be classified
func (r Result) Qualified() bool {
	return r.Err == nil
}

// Validator qualifies and prepares documents concurrently
type Validator struct {
	prep       *preprocess.Preprocessor
	maxWorkers int
	logger     *zap.Logger
}

// NewValidator creates a new validator
func NewValidator(prep *preprocess.Preprocessor, maxWorkers int, logger *zap.Logger) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	logger = logging.OrNop(logger)
	return &Validator{
		prep:       prep,
		maxWorkers: maxWorkers,
		logger:     logger.Named("validate"),
	}
}

// Validate qualifies, prepares and prunes all documents concurrently.
// Results keep the input order.
func (v *Validator) Validate(ctx context.Context, docs []*model.Document) []Result {
	results := make([]Result, len(docs))
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent work
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, d := range docs {
		wg.Add(1)
		go func(idx int, doc *model.Document) {
			defer wg.Done()

			if ctx.Err() != nil {
				results[idx] = Result{Document: doc, Err: ctx.Err()}
				return
			}

			select {
			case <-ctx.Done():
				results[idx] = Result{Document: doc, Err: ctx.Err()}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = Result{Document: doc, Err: v.validateSingle(doc)}
		}(i, d)
	}

	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			v.logger.Info("document skipped",
				zap.String("document", r.Document.ID),
				zap.String("reason", Reason(r.Err)),
				zap.Error(r.Err))
		}
	}
	return results
}

func (v *Validator) validateSingle(d *model.Document) error {
	if err := Qualify(d); err != nil {
		return err
	}
	v.prep.PrepareAll(d.Sentences)
	return Prune(d)
}
