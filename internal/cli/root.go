package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/logging"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/pipeline"
	"github.com/ppiankov/charta/internal/store"
)

const version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "charta",
	Short: "Charta - sentence classifier for medieval Latin diplomas",
	Long: `Charta labels every sentence of a medieval Latin charter with the
diplomatic part it belongs to: invocatio, intitulatio, inscriptio, arenga,
publicatio, narratio, dispositio, sanctio, corroboratio, subscriptio,
datatio or apprecatio.

It combines hand-written indicator phrases, positional priors learned from
an annotated corpus and a naive Bayes text model, and guarantees that the
labels of a document never run backwards.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Cancelling ctx stops a running command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Charta.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("charta v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.charta/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.charta")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CHARTA_CLASSIFICATION_TOLERANCE overrides classification.tolerance
	viper.SetEnvPrefix("CHARTA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig overlays the config file and environment on the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	return cfg, nil
}

// session bundles what every classifying command needs
type session struct {
	cfg      *model.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	store    *store.Store
}

// openSession builds the logger, the pipeline and, unless disabled, the
// result store
func openSession(cfg *model.Config, persist bool) (*session, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	s := &session{cfg: cfg, logger: logger, pipeline: p}
	if persist && cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("open store: %w", err)
		}
		p.SetStore(st)
		s.store = st
	}
	return s, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close store failed", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}
