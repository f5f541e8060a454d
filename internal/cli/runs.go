package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/charta/internal/store"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted classification and evaluation runs",
	Long: `List the runs stored in the result database, newest first.

Example:
  charta runs
  charta runs --limit 5
  charta runs evaluations 5f0c...`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

var runsEvaluationsCmd = &cobra.Command{
	Use:   "evaluations <run-id>",
	Short: "Show the evaluation results of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsEvaluations,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsEvaluationsCmd)
	runsCmd.PersistentFlags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")
}

func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("no result database at %s", cfg.Store.Path)
	}
	return store.Open(cfg.Store.Path)
}

func runRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runs, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored yet")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-20s  %5s  %6s  %5s  %5s  %s\n", "RUN", "MODE", "CREATED", "DOCS", "SENTS", "SKIP", "VIOL", "SETTINGS")
	for _, r := range runs {
		fmt.Printf("%-36s  %-8s  %-20s  %5d  %6d  %5d  %5d  %s\n",
			r.ID, r.Mode, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Documents, r.Sentences, r.Skipped, r.Violations, r.Settings)
	}
	return nil
}

func runRunsEvaluations(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	results, err := st.Evaluations(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("Run %s has no evaluation results\n", args[0])
		return nil
	}

	fmt.Printf("%-40s  %8s  %8s  %8s  %8s\n", "SETTINGS", "MACRO F1", "MICRO F1", "PREC", "RECALL")
	for _, res := range results {
		fmt.Printf("%-40s  %8.3f  %8.3f  %8.3f  %8.3f\n",
			res.Settings, res.Macro.F1, res.Micro.F1, res.Macro.Precision, res.Macro.Recall)
	}
	return nil
}
