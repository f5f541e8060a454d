// Package pipeline wires loading, qualification, preprocessing and
// reconciliation into classification and evaluation runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/cache"
	"github.com/ppiankov/charta/internal/evaluate"
	"github.com/ppiankov/charta/internal/extract/adapters"
	"github.com/ppiankov/charta/internal/indicator"
	"github.com/ppiankov/charta/internal/llm"
	"github.com/ppiankov/charta/internal/logging"
	"github.com/ppiankov/charta/internal/metrics"
	"github.com/ppiankov/charta/internal/milestones"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/preprocess"
	"github.com/ppiankov/charta/internal/reconcile"
	"github.com/ppiankov/charta/internal/score"
	"github.com/ppiankov/charta/internal/store"
	"github.com/ppiankov/charta/internal/util"
	"github.com/ppiankov/charta/internal/validate"
	"github.com/ppiankov/charta/internal/worker"
)

var (
	// ErrNoUsableDocuments is returned when every document of a batch was
	// skipped
	ErrNoUsableDocuments = errors.New("no usable documents")
	// ErrNoTrainingDocuments is returned when no annotated document is left
	// to compute priors and train the scorer from
	ErrNoTrainingDocuments = errors.New("no annotated training documents")
)

// Pipeline orchestrates classification and evaluation runs
type Pipeline struct {
	config    *model.Config
	loader    *worker.BatchLoader
	prep      *preprocess.Preprocessor
	validator *validate.Validator
	rules     []indicator.Rule
	llmScorer score.Scorer // Optional LLM scorer (nil if disabled)
	metrics   *metrics.Metrics
	store     *store.Store // Optional run store (nil if disabled)
	renderer  *Renderer
	limiter   *worker.Limiter // Shared by fetcher, HTTP lemmatizer and LLM scorer
	logger    *zap.Logger

	// ruleSignals report indicator rows dropped at load time
	ruleSignals []model.Signal
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	logger = logging.OrNop(logger)

	c := cache.New(cfg.Cache)
	limiter := worker.NewLimiter(cfg.HTTP.RequestsPerSecond, 0)

	lemmatizer, err := newLemmatizer(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}

	resources, err := preprocess.LoadResources(cfg.Resources, logger)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	prep := preprocess.New(resources, preprocess.NewLemmaStore(lemmatizer, c, cfg.Cache.DiskTTL, logger), logger)

	p := &Pipeline{
		config:    cfg,
		prep:      prep,
		validator: validate.NewValidator(prep, cfg.Concurrency.QualifyWorkers, logger),
		metrics:   metrics.New(),
		renderer:  NewRenderer(),
		limiter:   limiter,
		logger:    logger.Named("pipeline"),
	}

	if cfg.Resources.Indicators != "" {
		rules, rejected, err := indicator.Load(cfg.Resources.Indicators, prep.Normalizer().Normalize, logger)
		if err != nil {
			return nil, err
		}
		p.rules = rules
		for _, r := range rejected {
			p.ruleSignals = append(p.ruleSignals, model.Signal{
				Type:        model.SignalDroppedRule,
				Severity:    model.SeverityWarning,
				Description: fmt.Sprintf("Indicator row %d dropped: %s", r.Line, r.Reason),
				Data:        map[string]interface{}{"line": r.Line, "reason": r.Reason},
			})
		}
	}

	// Create LLM scorer if configured
	if cfg.LLM.Provider != "" {
		s, err := llm.NewScorer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP), c, limiter, logger)
		if err != nil {
			p.logger.Warn("failed to initialize LLM scorer", zap.Error(err))
		} else {
			p.llmScorer = s
		}
	}

	fetcher := NewFetcher(cfg.HTTP, limiter)
	p.loader = worker.NewBatchLoader(NewCorpusLoader(adapters.NewRegistry(), fetcher), cfg.Concurrency.LoadWorkers)

	return p, nil
}

func newLemmatizer(cfg *model.Config, limiter *worker.Limiter, logger *zap.Logger) (preprocess.Lemmatizer, error) {
	lc := cfg.Lemmatizer
	switch lc.Kind {
	case "", "identity":
		return preprocess.Identity{}, nil
	case "lemlat":
		return preprocess.NewLemlat(lc.Command, lc.WorkDir, lc.BatchSize, lc.Timeout, logger), nil
	case "http":
		if _, err := worker.HostOf(lc.URL); err != nil {
			return nil, fmt.Errorf("lemmatizer kind http needs a valid url, got %q", lc.URL)
		}
		if lc.RatePerSecond > 0 {
			if err := limiter.SetRate(lc.URL, lc.RatePerSecond, 0); err != nil {
				return nil, err
			}
		}
		httpConfig := cfg.HTTP
		if lc.Timeout > 0 {
			httpConfig.Timeout = lc.Timeout
		}
		return preprocess.NewHTTPLemmatizer(lc.URL, util.NewHTTPClient(httpConfig), limiter, lc.BatchSize, cfg.HTTP.UserAgent, logger), nil
	default:
		return nil, fmt.Errorf("unknown lemmatizer: %s (supported: identity, lemlat, http)", lc.Kind)
	}
}

// SetStore attaches a run store; every finished run is saved to it
func (p *Pipeline) SetStore(s *store.Store) {
	p.store = s
}

// Metrics returns the pipeline's metric set
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Rules returns the loaded indicator rules
func (p *Pipeline) Rules() []indicator.Rule {
	return p.rules
}

// Batch is a set of prepared documents and the ones skipped on the way
type Batch struct {
	Documents []*model.Document
	Skipped   []model.SkippedDocument
}

// Load reads, qualifies and preprocesses the corpus files at paths.
// Documents that fail any step are skipped, never fatal.
func (p *Pipeline) Load(ctx context.Context, paths []string) (*Batch, error) {
	batch := &Batch{}

	// 1. Load files concurrently
	var loaded []*model.Document
	for _, r := range p.loader.LoadPaths(ctx, paths) {
		if r.Error != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.skip(batch, documentIDFor(r), r.Path, "load_error", r.Error)
			continue
		}
		loaded = append(loaded, r.Document)
	}

	// 2. Qualify, normalize and prune
	for _, r := range p.validator.Validate(ctx, loaded) {
		if !r.Qualified() {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.skip(batch, r.Document.ID, r.Document.Path, validate.Reason(r.Err), r.Err)
			continue
		}
		batch.Documents = append(batch.Documents, r.Document)
	}

	// 3. Lemmas and bigrams
	sentences := model.Flatten(batch.Documents)
	lemmatized, err := p.prep.Lemmatize(ctx, sentences)
	if err != nil {
		return nil, err
	}
	p.metrics.FormsLemmatized(lemmatized)
	p.prep.Bigrams(sentences)

	p.logger.Info("corpus loaded",
		zap.Int("paths", len(paths)),
		zap.Int("documents", len(batch.Documents)),
		zap.Int("skipped", len(batch.Skipped)),
		zap.Int("sentences", len(sentences)))
	return batch, nil
}

func documentIDFor(r *worker.LoadResult) string {
	if r.Document != nil {
		return r.Document.ID
	}
	return r.Path
}

func (p *Pipeline) skip(batch *Batch, id, path, reason string, err error) {
	p.metrics.DocumentSkipped(reason)
	batch.Skipped = append(batch.Skipped, model.SkippedDocument{
		ID:     id,
		Path:   path,
		Reason: fmt.Sprintf("%s: %v", reason, err),
	})
}

// Classifier labels documents with components trained for one setting
type Classifier struct {
	Settings   model.ClassificationConfig
	Priors     *milestones.Priors
	Reconciler *reconcile.Reconciler
	Scorer     score.Scorer
}

// Train builds priors, indicator matcher and scorer from annotated
// documents. Documents without complete annotation are ignored.
func (p *Pipeline) Train(train []*model.Document, cfg model.ClassificationConfig) (*Classifier, error) {
	annotated := make([]*model.Document, 0, len(train))
	for _, d := range train {
		if d.IsTraining() {
			annotated = append(annotated, d)
		}
	}
	if len(annotated) == 0 {
		return nil, ErrNoTrainingDocuments
	}

	priors := milestones.Compute(annotated, cfg.Tolerance)
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = model.DefaultSimilarityThreshold
	}
	matcher := indicator.NewMatcher(p.rules, priors, threshold)

	nb := score.NewNaiveBayes(cfg.VectorType, cfg.UseBigrams)
	if err := nb.Train(model.Flatten(annotated)); err != nil {
		return nil, fmt.Errorf("train naive bayes: %w", err)
	}
	p.logger.Debug("classifier trained",
		zap.String("settings", cfg.String()),
		zap.Int("documents", len(annotated)),
		zap.Int("vocabulary", len(nb.Vectorizer().Vocabulary())))

	var scorer score.Scorer = nb
	if p.llmScorer != nil {
		scorer = score.NewProduct(nb, p.llmScorer)
	}

	rec := reconcile.New(priors, matcher, scorer, p.logger)
	rec.SetRecorder(p.metrics)

	return &Classifier{
		Settings:   cfg,
		Priors:     priors,
		Reconciler: rec,
		Scorer:     nb,
	}, nil
}

// Run vectorizes and labels the documents
func (c *Classifier) Run(ctx context.Context, docs []*model.Document) (*reconcile.Result, error) {
	if nb, ok := c.Scorer.(*score.NaiveBayes); ok {
		nb.Vectorizer().Apply(model.Flatten(docs))
	}
	return c.Reconciler.Run(ctx, docs)
}

// ClassifyDocuments trains on train and labels test. It satisfies
// evaluate.ClassifyFunc.
func (p *Pipeline) ClassifyDocuments(ctx context.Context, train, test []*model.Document, cfg model.ClassificationConfig) error {
	c, err := p.Train(train, cfg)
	if err != nil {
		return err
	}
	_, err = c.Run(ctx, test)
	return err
}

// Classify labels the documents at paths, training on the documents at
// trainingPaths
func (p *Pipeline) Classify(ctx context.Context, trainingPaths, paths []string) (*model.Report, error) {
	start := time.Now()

	classifier, err := p.TrainFrom(ctx, trainingPaths)
	if err != nil {
		return nil, err
	}
	return p.classifyWith(ctx, classifier, paths, start)
}

// TrainFrom loads the training corpus at trainingPaths and trains a
// classifier with the configured settings
func (p *Pipeline) TrainFrom(ctx context.Context, trainingPaths []string) (*Classifier, error) {
	training, err := p.Load(ctx, trainingPaths)
	if err != nil {
		return nil, fmt.Errorf("load training corpus: %w", err)
	}
	return p.Train(training.Documents, p.config.Classification)
}

// ClassifyWith labels the documents at paths with an already trained
// classifier
func (p *Pipeline) ClassifyWith(ctx context.Context, classifier *Classifier, paths []string) (*model.Report, error) {
	return p.classifyWith(ctx, classifier, paths, time.Now())
}

func (p *Pipeline) classifyWith(ctx context.Context, classifier *Classifier, paths []string, start time.Time) (*model.Report, error) {
	// 1. Documents to classify
	batch, err := p.Load(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(batch.Documents) == 0 {
		return nil, fmt.Errorf("%w: %d skipped", ErrNoUsableDocuments, len(batch.Skipped))
	}

	// 2. Reconcile
	result, err := classifier.Run(ctx, batch.Documents)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	// 3. Build report
	report := p.newReport(model.ModeClassify, classifier.Settings)
	for _, d := range batch.Documents {
		report.Documents = append(report.Documents, model.NewDocumentResult(d))
	}
	report.Skipped = batch.Skipped
	report.Signals = append(report.Signals, skippedSignals(batch.Skipped)...)
	report.Signals = append(report.Signals, result.Signals...)

	p.metrics.DocumentsClassified(model.ModeClassify, len(batch.Documents))
	return p.finish(ctx, report, start)
}

// Evaluate cross-validates the configuration grid on the annotated
// documents at paths
func (p *Pipeline) Evaluate(ctx context.Context, paths []string, grid []model.ClassificationConfig) (*model.Report, error) {
	start := time.Now()

	batch, err := p.Load(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	var annotated []*model.Document
	for _, d := range batch.Documents {
		if d.IsTraining() {
			annotated = append(annotated, d)
			continue
		}
		p.skip(batch, d.ID, d.Path, "unannotated", errors.New("sentences without labels"))
	}
	if len(annotated) == 0 {
		return nil, fmt.Errorf("%w: %d skipped", ErrNoUsableDocuments, len(batch.Skipped))
	}

	evaluator := evaluate.NewEvaluator(p.ClassifyDocuments, p.config.Evaluation, p.config.Concurrency.EvaluateWorkers, p.logger)
	results, err := evaluator.EvaluateGrid(ctx, annotated, grid)
	if err != nil {
		return nil, err
	}

	settings := p.config.Classification
	if best := BestEvaluation(results); best != nil {
		settings = best.Settings
	}
	report := p.newReport(model.ModeEvaluate, settings)
	report.Evaluations = results
	report.Skipped = batch.Skipped
	report.Signals = append(report.Signals, skippedSignals(batch.Skipped)...)

	for _, res := range results {
		p.metrics.ObserveEvaluation(res)
	}
	p.metrics.DocumentsClassified(model.ModeEvaluate, len(annotated))
	return p.finish(ctx, report, start)
}

// BestEvaluation returns the result with the highest macro F1, first on ties
func BestEvaluation(results []model.EvaluationResult) *model.EvaluationResult {
	var best *model.EvaluationResult
	for i := range results {
		if best == nil || results[i].Macro.F1 > best.Macro.F1 {
			best = &results[i]
		}
	}
	return best
}

func (p *Pipeline) newReport(mode model.RunMode, settings model.ClassificationConfig) *model.Report {
	report := &model.Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
		Settings:  settings,
	}
	report.Signals = append(report.Signals, p.ruleSignals...)
	return report
}

func (p *Pipeline) finish(ctx context.Context, report *model.Report, start time.Time) (*model.Report, error) {
	elapsed := time.Since(start)
	report.Summarize()
	report.Summary.ElapsedSecs = elapsed.Seconds()
	p.metrics.ObserveRun(report.Mode, elapsed)

	if p.store != nil {
		if err := p.store.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}
	if path := p.config.Metrics.Textfile; path != "" {
		if err := p.metrics.WriteToTextfile(path); err != nil {
			p.logger.Warn("metrics export failed", zap.Error(err))
		}
	}

	for _, hs := range p.limiter.Stats() {
		p.logger.Debug("remote host",
			zap.String("host", hs.Host),
			zap.Int("requests", hs.Requests),
			zap.Int("pauses", hs.Pauses),
			zap.Duration("waited", hs.Waited))
	}

	p.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.String("mode", string(report.Mode)),
		zap.Int("documents", report.Summary.Documents),
		zap.Int("skipped", report.Summary.Skipped),
		zap.Int("violations", report.Summary.Violations),
		zap.Duration("elapsed", elapsed))
	return report, nil
}

func skippedSignals(skipped []model.SkippedDocument) []model.Signal {
	signals := make([]model.Signal, 0, len(skipped))
	for _, s := range skipped {
		signals = append(signals, model.Signal{
			Type:        model.SignalSkippedDocument,
			Severity:    model.SeverityInfo,
			Document:    s.ID,
			Description: s.Reason,
			Data:        map[string]interface{}{"path": s.Path},
		})
	}
	return signals
}

// RenderReport renders the report to the configured outputs
func (p *Pipeline) RenderReport(report *model.Report) error {
	out := p.config.Output

	// Render JSON
	if out.JSON != "" {
		if err := p.renderer.RenderJSON(report, out.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if out.Verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", out.JSON)
		}
	}

	// Render Markdown
	if out.Markdown != "" {
		if err := p.renderer.RenderMarkdown(report, out.Markdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if out.Verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", out.Markdown)
		}
	}

	// Print summary to stdout
	p.renderer.RenderSummary(report)

	return nil
}
