package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/snaptranslate/internal/api"
	"github.com/jackzampolin/snaptranslate/internal/config"
	"github.com/jackzampolin/snaptranslate/internal/home"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the default configuration to --config, or to {home}/config.yaml.
An existing file is left alone unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		return api.Output(map[string]string{"config": path})
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print effective configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadConfig(slog.Default())
		if err != nil {
			return err
		}
		entries := mgr.Entries()
		for i := range entries {
			entries[i] = entries[i].Masked()
		}
		return api.Output(struct {
			File    string         `json:"file,omitempty" yaml:"file,omitempty"`
			Entries []config.Entry `json:"entries" yaml:"entries"`
		}{File: mgr.ConfigFileUsed(), Entries: entries})
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
