package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/charta/internal/evaluate"
	"github.com/ppiankov/charta/internal/pipeline"
)

var (
	groups       int
	seed         int64
	maxTolerance int
	singleConfig bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <paths...>",
	Short: "Cross-validate the classifier on an annotated corpus",
	Long: `Evaluate splits the annotated documents into groups, trains on all but
one group and classifies the held-out group, for every combination of
tolerance, vector type and bigram use. Each configuration is reported with
its confusion matrix, per-label precision, recall, accuracy and F1, and the
macro and micro averages over the labels that occur in the corpus.

Example:
  charta evaluate corpus/annotated
  charta evaluate corpus/annotated --groups 5 --max-tolerance 3 --md eval.md
  charta evaluate @annotated.txt --single --tolerance 1 --vector tfidf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	addRunFlags(evaluateCmd.Flags())
	evaluateCmd.Flags().IntVar(&groups, "groups", evaluate.DefaultGroups, "number of cross-validation groups")
	evaluateCmd.Flags().Int64Var(&seed, "seed", 1, "shuffle seed for the group split")
	evaluateCmd.Flags().IntVar(&maxTolerance, "max-tolerance", 2, "largest tolerance in the configuration grid")
	evaluateCmd.Flags().BoolVar(&singleConfig, "single", false, "evaluate only the configured settings instead of the grid")
	evaluateCmd.Flags().IntVar(&tolerance, "tolerance", 1, "tolerance used with --single")
	evaluateCmd.Flags().StringVar(&vectorType, "vector", "binary", "vector type used with --single")
	evaluateCmd.Flags().BoolVar(&useBigrams, "bigrams", true, "bigram use with --single")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("groups") {
		cfg.Evaluation.Groups = groups
	}
	if flags.Changed("seed") {
		cfg.Evaluation.Seed = seed
	}
	if flags.Changed("max-tolerance") {
		cfg.Evaluation.MaxTolerance = maxTolerance
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	paths, err := pipeline.ExpandPaths(args)
	if err != nil {
		return err
	}

	grid := evaluate.Grid(cfg.Evaluation.MaxTolerance, cfg.Classification.SimilarityThreshold)
	if singleConfig {
		grid = grid[:0]
		grid = append(grid, cfg.Classification)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Charta Evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:          %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "  Groups:         %d\n", cfg.Evaluation.Groups)
	fmt.Fprintf(os.Stderr, "  Configurations: %d\n", len(grid))
	fmt.Fprintf(os.Stderr, "  Workers:        %d\n", cfg.Concurrency.EvaluateWorkers)
	fmt.Fprintf(os.Stderr, "\n")

	s, err := openSession(cfg, !noStore)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(os.Stderr, "⚙️  Cross-validating...\n")
	report, err := s.pipeline.Evaluate(ctx, paths, grid)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}

	if best := pipeline.BestEvaluation(report.Evaluations); best != nil {
		fmt.Fprintf(os.Stderr, "✓ Best configuration: %s (macro F1 %.3f)\n", best.Settings, best.Macro.F1)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := s.pipeline.RenderReport(report); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
