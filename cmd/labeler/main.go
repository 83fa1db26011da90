package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/config"
	"github.com/steveyegge/labeler/internal/logging"
	"github.com/steveyegge/labeler/internal/taxonomy"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfgFile      string
	taxonomyFile string
	dbPath       string
	logLevel     string

	cfg    config.LabelerConfig
	tax    *taxonomy.Taxonomy
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "labeler",
	Short: "Assign tracker labels to GitHub issues with a text-generation endpoint",
	Long: `labeler asks a text-generation endpoint which labels fit a GitHub issue,
maps the answer onto a fixed label taxonomy, and files a report issue
carrying those labels.

Configuration comes from an optional YAML file (--config) overridden by
environment variables (llm_endpoint, LLM_API_KEY, GITHUB_TOKEN, LABELER_*).`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Flags override file and environment
		if taxonomyFile != "" {
			cfg.TaxonomyFile = taxonomyFile
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		logger, err = logging.New(&logging.Config{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Fields: map[string]string{"service": "labeler", "version": version},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %v\n", err)
			os.Exit(1)
		}

		tax, err = taxonomy.Load(cfg.TaxonomyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger.Debug("configuration loaded",
			zap.String("endpoint", cfg.Endpoint),
			logging.RedactedString("api_key", cfg.APIKey),
			logging.RedactedString("github_token", cfg.GitHubToken),
			zap.Int("taxonomy_size", tax.Len()))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logging.Sync(logger)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&taxonomyFile, "taxonomy", "", "YAML taxonomy file (default: built-in WasmEdge labels)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Labeling history database (default: .labeler/history.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
