package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BgWv3/procore-doc-downloader/internal/config"
	"github.com/BgWv3/procore-doc-downloader/internal/console"
	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/internal/metrics"
	"github.com/BgWv3/procore-doc-downloader/internal/prompt"
)

var (
	envFile  string
	logLevel string
	logFile  string

	cfg      *config.Config
	con      = console.New(os.Stdout)
	prompter = prompt.Stdio()
)

var rootCmd = &cobra.Command{
	Use:   "docmirror",
	Short: "Mirror Procore project documents",
	Long: `docmirror authenticates against the Procore API, lets you pick a company
and one or more projects, and downloads the latest version of every document
while keeping the remote folder hierarchy.

Run without a sub-command it behaves like "docmirror download".`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runDownload,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with environment variables to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write the run log to this file (default from LOG_FILE)")

	addDownloadFlags(rootCmd)
	rootCmd.AddCommand(downloadCmd, loginCmd, logoutCmd, companiesCmd, projectsCmd, versionCmd)
}

// setup loads configuration and starts logging for every command but version.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	cobra.OnFinalize(func() { logging.Sync() })

	if cfg.MetricsAddr != "" {
		metrics.Serve(cmd.Context(), cfg.MetricsAddr)
	}

	logging.Debug("configuration loaded",
		zap.String("api", cfg.APIBaseURL),
		zap.String("storage", cfg.StorageBackend),
		zap.String("download_dir", cfg.DownloadDir))
	return nil
}
