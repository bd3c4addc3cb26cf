package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/snaptranslate/internal/api"
	"github.com/jackzampolin/snaptranslate/internal/config"
	"github.com/jackzampolin/snaptranslate/internal/home"
	"github.com/jackzampolin/snaptranslate/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "snaptranslate",
	Short: "OCR and translate scanned pages and PDFs",
	Long: `snaptranslate turns photos, scans and PDFs into searchable text.

Each file becomes one or more pages. A batch run recognizes every included
page that has no text yet, optionally translates the result, and the pages
are exported as a text bundle and a reconstructed PDF.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.snaptranslate/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "snaptranslate home directory (default: ~/.snaptranslate)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format and logger before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := api.ParseOutputFormat(outputFormat); err != nil {
			return err
		}
		api.SetOutputFormat(outputFormat)

		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the home directory and loads config from --config or
// the standard search paths.
func loadConfig(logger *slog.Logger) (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path(), logger)
	if err != nil {
		return nil, nil, err
	}
	if used := mgr.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config", "file", used)
	}
	return h, mgr, nil
}
