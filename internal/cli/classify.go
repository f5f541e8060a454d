package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/pipeline"
)

var (
	trainingArgs   []string
	indicatorsPath string
	outJSON        string
	outMD          string
	timeout        time.Duration
	tolerance      int
	vectorType     string
	useBigrams     bool
	noCache        bool
	noStore        bool
	httpProxy      string
	httpsProxy     string
	llmProvider    string
	llmModel       string
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <paths...>",
	Short: "Label every sentence of the given diplomas",
	Long: `Classify trains on an annotated corpus and labels each sentence of the
given documents with one of the twelve diplomatic parts.

Paths may be corpus files (.yaml, .json, .xml, .html, .txt), directories,
http(s) URLs or @manifest files listing one path per line. Documents that are
not Latin, have a tenor shorter than 500 characters or no usable sentences
are skipped and listed in the report.

Example:
  charta classify --training corpus/annotated corpus/new
  charta classify --training @train.txt 1189_V_18.xml --json out.json --md out.md
  charta classify --training corpus/annotated inbox --vector tfidf --tolerance 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringSliceVar(&trainingArgs, "training", nil, "annotated training corpus (files, directories or @manifest)")
	_ = classifyCmd.MarkFlagRequired("training")
	addRunFlags(classifyCmd.Flags())

	// Classification flags
	classifyCmd.Flags().IntVar(&tolerance, "tolerance", 1, "number of neighbouring labels a paragraph prior extends into")
	classifyCmd.Flags().StringVar(&vectorType, "vector", string(model.VectorBinary), "feature vector type (binary, count, tfidf)")
	classifyCmd.Flags().BoolVar(&useBigrams, "bigrams", true, "add lemma bigrams to the features")

	// LLM flags
	classifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "optional LLM scorer combined with naive Bayes (openai, ollama)")
	classifyCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// addRunFlags registers the flags shared by classify, evaluate and watch
func addRunFlags(flags *pflag.FlagSet) {
	flags.StringVar(&indicatorsPath, "indicators", "", "indicator rule file (CSV)")
	flags.StringVar(&outJSON, "json", "", "output JSON path")
	flags.StringVar(&outMD, "md", "", "output Markdown path (optional)")
	flags.DurationVar(&timeout, "timeout", 30*time.Minute, "overall run timeout")
	flags.BoolVar(&noCache, "no-cache", false, "disable lemma and LLM cache")
	flags.BoolVar(&noStore, "no-store", false, "do not persist the run")
	flags.StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// buildConfig loads the layered configuration and applies the flags that
// were set explicitly
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if flags.Changed("indicators") {
		cfg.Resources.Indicators = indicatorsPath
	}
	if flags.Changed("json") {
		cfg.Output.JSON = outJSON
	}
	if flags.Changed("md") {
		cfg.Output.Markdown = outMD
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}

	if flags.Changed("tolerance") {
		cfg.Classification.Tolerance = tolerance
	}
	if flags.Changed("vector") {
		vt, err := model.ParseVectorType(vectorType)
		if err != nil {
			return nil, err
		}
		cfg.Classification.VectorType = vt
	}
	if flags.Changed("bigrams") {
		cfg.Classification.UseBigrams = useBigrams
	}

	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if err := applyLLMEnv(&cfg.LLM); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLLMEnv fills provider credentials from the environment
func applyLLMEnv(cfg *model.LLMConfig) error {
	switch cfg.Provider {
	case "":
		return nil
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.BaseURL == "" {
			cfg.BaseURL = baseURL
		}
	default:
		return fmt.Errorf("unknown LLM provider: %q (supported: openai, ollama)", cfg.Provider)
	}
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	training, err := pipeline.ExpandPaths(trainingArgs)
	if err != nil {
		return fmt.Errorf("training corpus: %w", err)
	}
	paths, err := pipeline.ExpandPaths(args)
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Training files: %d\n", len(training))
		fmt.Fprintf(os.Stderr, "Documents:      %d\n", len(paths))
		fmt.Fprintf(os.Stderr, "Settings:       %s\n", cfg.Classification)
		fmt.Fprintf(os.Stderr, "Cache:          %v\n", cfg.Cache.Enabled)
		if cfg.LLM.Provider != "" {
			fmt.Fprintf(os.Stderr, "LLM:            %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	s, err := openSession(cfg, !noStore)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Training and classifying...\n")
	}

	report, err := s.pipeline.Classify(ctx, training, paths)
	if err != nil {
		return fmt.Errorf("classify failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Classified %d documents (%d sentences)\n", report.Summary.Documents, report.Summary.Sentences)
		fmt.Fprintf(os.Stderr, "✓ Skipped %d documents\n", report.Summary.Skipped)
		if s.store != nil {
			stored, err := s.store.CountSentences(ctx, report.RunID)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Saved run %s to %s (%d sentences)\n", report.RunID, cfg.Store.Path, stored)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := s.pipeline.RenderReport(report); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
