package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragbench/config"
	"ragbench/internal/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	log      *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragbench",
	Short: "Retrieval service - ingest text from many sources and query it by similarity",
	Long: `ragbench ingests text from raw input, web pages, local files, Wikipedia,
news and financial data, stores it in named vector indices and answers
similarity queries over HTTP or from the command line.

Example usage:
  ragbench serve                              # Start the HTTP API
  ragbench ingest --wikipedia "transformers"  # Ingest Wikipedia articles
  ragbench ingest dir ./notes                 # Ingest a directory of text files
  ragbench query -q "attention mechanism"     # Search the default index`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return fmt.Errorf("failed to apply environment: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log = logger.New(logger.Config{
			Level:  cfg.Logging.Level,
			Pretty: cfg.Logging.Pretty,
		})
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragbench.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory for .env and config lookup (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}
