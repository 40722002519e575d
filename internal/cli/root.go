package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"askdocs/config"
	"askdocs/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "askdocs",
	Short: "Ask questions over your own documents",
	Long: `askdocs ingests text, PDF, DOCX and web pages into a local vector store and
answers questions using only what it has ingested, citing the sources it used.

Example usage:
  askdocs ingest file handbook.pdf     # Add a document
  askdocs ingest url https://example.com/faq
  askdocs ask "What is the refund policy?"
  askdocs chat                         # Interactive question loop`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			config.LoadDotEnv(rootDir)
			cfg, err = config.Load(cfgFile)
			if err == nil {
				cfg.ResolvePaths(rootDir)
			}
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
		if verbose {
			logCfg.Level = "debug"
		}
		if jsonLogs {
			logCfg.Format = "json"
		}
		logging.Setup(os.Stderr, logCfg)
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./askdocs.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "write logs as JSON")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
