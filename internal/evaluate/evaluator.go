package evaluate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/charta/internal/logging"
	"github.com/ppiankov/charta/internal/model"
)

// ClassifyFunc trains on train and labels every sentence of test. It must
// not modify train.
type ClassifyFunc func(ctx context.Context, train, test []*model.Document, cfg model.ClassificationConfig) error

// Evaluator runs cross-validation over a configuration grid
type Evaluator struct {
	classify ClassifyFunc
	groups   int
	seed     int64
	workers  int
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator
func NewEvaluator(classify ClassifyFunc, cfg model.EvaluationConfig, workers int, logger *zap.Logger) *Evaluator {
	if workers <= 0 {
		workers = 1
	}
	logger = logging.OrNop(logger)
	return &Evaluator{
		classify: classify,
		groups:   cfg.Groups,
		seed:     cfg.Seed,
		workers:  workers,
		logger:   logger.Named("evaluate"),
	}
}

// Grid returns every combination of tolerance 0..maxTolerance, vector type
// and bigram use
func Grid(maxTolerance int, threshold float64) []model.ClassificationConfig {
	if maxTolerance < 0 {
		maxTolerance = 0
	}
	var grid []model.ClassificationConfig
	for tol := 0; tol <= maxTolerance; tol++ {
		for _, vt := range model.VectorTypes() {
			for _, bigrams := range []bool{false, true} {
				grid = append(grid, model.ClassificationConfig{
					Tolerance:           tol,
					VectorType:          vt,
					UseBigrams:          bigrams,
					SimilarityThreshold: threshold,
				})
			}
		}
	}
	return grid
}

// Evaluate cross-validates one configuration. The documents must be
// annotated and preprocessed; they are not modified.
func (e *Evaluator) Evaluate(ctx context.Context, docs []*model.Document, cfg model.ClassificationConfig) (model.EvaluationResult, error) {
	folds := Folds(docs, e.groups, e.seed)
	matrices := make([]Matrix, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, fold := range folds {
		i, fold := i, fold
		g.Go(func() error {
			test := model.CloneAll(fold.Test)
			for _, d := range test {
				d.ClearClassification()
			}
			if err := e.classify(gctx, fold.Train, test, cfg); err != nil {
				return fmt.Errorf("fold %d: %w", i+1, err)
			}

			m := NewMatrix()
			if skipped := m.AddDocuments(test); skipped > 0 {
				e.logger.Warn("sentences not counted",
					zap.Int("fold", i+1),
					zap.Int("sentences", skipped))
			}
			matrices[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.EvaluationResult{}, err
	}

	total := NewMatrix()
	for _, m := range matrices {
		total.Merge(m)
	}
	return Result(cfg, total), nil
}

// EvaluateGrid evaluates each configuration in turn
func (e *Evaluator) EvaluateGrid(ctx context.Context, docs []*model.Document, grid []model.ClassificationConfig) ([]model.EvaluationResult, error) {
	results := make([]model.EvaluationResult, 0, len(grid))
	for i, cfg := range grid {
		start := time.Now()
		res, err := e.Evaluate(ctx, docs, cfg)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", cfg, err)
		}
		e.logger.Info("configuration evaluated",
			zap.Int("n", i+1),
			zap.Int("of", len(grid)),
			zap.String("config", cfg.String()),
			zap.Float64("macro_f1", res.Macro.F1),
			zap.Float64("micro_f1", res.Micro.F1),
			zap.Duration("elapsed", time.Since(start)))
		results = append(results, res)
	}
	return results, nil
}
